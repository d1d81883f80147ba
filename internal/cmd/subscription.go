package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/centennial-infotech/portal/internal/form"
	"github.com/centennial-infotech/portal/internal/session"
	"github.com/centennial-infotech/portal/internal/subscription"
	"github.com/centennial-infotech/portal/internal/tui"
)

var subscriptionCmd = &cobra.Command{
	Use:     "subscription",
	Aliases: []string{"sub"},
	Short:   "Manage the company subscription plan",
}

var subscriptionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current plan",
	Args:  cobra.NoArgs,
	RunE:  runSubscriptionStatus,
}

var subscriptionCheckoutCmd = &cobra.Command{
	Use:   "checkout [plan]",
	Short: "Start payment for a plan",
	Long: `Start payment for a plan and print the approval link. After approving,
confirm with 'portal subscription verify'.

Plans: basic, standard, premium, enterprise.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSubscriptionCheckout,
}

var subscriptionVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Confirm an approved payment and activate the plan",
	Args:  cobra.NoArgs,
	RunE:  runSubscriptionVerify,
}

func init() {
	subscriptionVerifyCmd.Flags().String("payment-id", "", "payment id from the approval redirect")
	subscriptionVerifyCmd.Flags().String("payer-id", "", "payer id from the approval redirect")
	subscriptionCmd.AddCommand(subscriptionStatusCmd, subscriptionCheckoutCmd, subscriptionVerifyCmd)
	rootCmd.AddCommand(subscriptionCmd)
}

// planResult is the admin's plan after a refresh.
type planResult struct {
	Plan     string `json:"plan" yaml:"plan"`
	Active   bool   `json:"active" yaml:"active"`
	Entitled bool   `json:"entitled" yaml:"entitled"`
	Access   string `json:"access" yaml:"access"`
	Refresh  string `json:"refresh" yaml:"refresh"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
}

func (p planResult) WriteText(w io.Writer) error {
	var b strings.Builder
	if p.Message != "" {
		fmt.Fprintln(&b, p.Message)
	}
	fmt.Fprintf(&b, "Plan:   %s\n", p.Plan)
	fmt.Fprintf(&b, "Active: %t\n", p.Active)
	fmt.Fprintf(&b, "Access: %s\n", p.Access)
	if !p.Entitled {
		fmt.Fprintf(&b, "\nJob posts need a plan. Available: %s\n", strings.Join(paidPlans(), ", "))
		fmt.Fprintln(&b, "Run 'portal subscription checkout <plan>' to subscribe.")
	}
	if p.Refresh == subscription.ResultError {
		fmt.Fprintln(&b, "\nThe backend could not be reached; showing the last known plan.")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func paidPlans() []string {
	var out []string
	for _, p := range session.Plans {
		if p != session.PlanFree {
			out = append(out, string(p))
		}
	}
	return out
}

func newPlanResult(snap session.Snapshot, refresh string) planResult {
	sub := snap.Session.Subscription
	return planResult{
		Plan:     sub.Plan.String(),
		Active:   sub.IsActive,
		Entitled: sub.Entitled(),
		Access:   snap.Access.Kind().String(),
		Refresh:  refresh,
	}
}

func runSubscriptionStatus(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if _, err := requireRoute(cmd.Context(), app, "/subscription"); err != nil {
		return err
	}
	refresh := app.RefreshSubscription(cmd.Context())
	return printResult(cmd, newPlanResult(app.Session.Snapshot(), refresh))
}

// checkoutResult is a started payment.
type checkoutResult struct {
	Plan        string `json:"plan" yaml:"plan"`
	PaymentID   string `json:"payment_id" yaml:"payment_id"`
	ApprovalURL string `json:"approval_url" yaml:"approval_url"`
}

func (c checkoutResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Approve the %s plan payment at:\n  %s\n\nThen run:\n  portal subscription verify --payment-id %s --payer-id <payer-id>\n",
		c.Plan, c.ApprovalURL, c.PaymentID)
	return err
}

func runSubscriptionCheckout(cmd *cobra.Command, args []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if _, err := requireRoute(cmd.Context(), app, "/subscription"); err != nil {
		return err
	}

	var plan string
	if len(args) == 1 {
		plan = strings.ToLower(args[0])
	} else if tui.ShouldPrompt() {
		if plan, err = tui.PromptForSelect("Choose a plan", paidPlans()); err != nil {
			return err
		}
	}
	in := form.Checkout{Plan: plan}
	if err := validateForm(&in); err != nil {
		return err
	}

	co, err := app.Client.StartCheckout(cmd.Context(), in.Plan)
	if err != nil {
		return err
	}
	return printResult(cmd, checkoutResult{Plan: in.Plan, PaymentID: co.PaymentID, ApprovalURL: co.ApprovalURL})
}

func runSubscriptionVerify(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if _, err := requireRoute(ctx, app, "/subscription/success"); err != nil {
		return err
	}

	in := form.PaymentVerification{
		PaymentID: flagString(cmd, "payment-id"),
		PayerID:   flagString(cmd, "payer-id"),
	}
	if err := validateForm(&in); err != nil {
		return err
	}
	msg, err := app.Client.VerifyPayment(ctx, in.PaymentID, in.PayerID)
	if err != nil {
		return err
	}

	refresh := app.ReloadSubscription(ctx)
	if _, err := app.Router.Navigate("/"); err != nil {
		return err
	}
	res := newPlanResult(app.Session.Snapshot(), refresh)
	res.Message = msg
	return printResult(cmd, res)
}
