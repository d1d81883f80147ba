package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/centennial-infotech/portal/internal/form"
	"github.com/centennial-infotech/portal/internal/session"
	"github.com/centennial-infotech/portal/internal/tui"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in as a candidate or company administrator",
	Long: `Sign in and keep the session for later commands.

The password is read from --password, then PORTAL_PASSWORD, then an
interactive prompt.

Examples:
  portal login --email jane@example.com
  portal login --admin --email hr@acme.test`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and send a verification code",
	Long: `Create a candidate account, or a company administrator account with
--admin. A one-time code is emailed; confirm it with 'portal verify'.`,
	Args: cobra.NoArgs,
	RunE: runSignup,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Confirm an email address with its one-time code",
	Long: `Confirm the code sent after signup. With --resend a new code is sent
instead.

Examples:
  portal verify --email jane@example.com --otp 123456
  portal verify --email jane@example.com --resend`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password with a reset token",
	Args:  cobra.NoArgs,
	RunE:  runResetPassword,
}

func init() {
	adminFlag(loginCmd)
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password")

	adminFlag(signupCmd)
	signupCmd.Flags().String("name", "", "full name or company contact")
	signupCmd.Flags().String("email", "", "account email")
	signupCmd.Flags().String("password", "", "account password")

	adminFlag(verifyCmd)
	verifyCmd.Flags().String("email", "", "account email")
	verifyCmd.Flags().String("otp", "", "one-time code from the email")
	verifyCmd.Flags().Bool("resend", false, "send a new code instead of verifying")

	resetPasswordCmd.Flags().String("token", "", "reset token from the email")
	resetPasswordCmd.Flags().String("password", "", "new password")

	rootCmd.AddCommand(loginCmd, logoutCmd, signupCmd, verifyCmd, resetPasswordCmd)
}

// sessionResult describes the session after login or logout.
type sessionResult struct {
	Message   string `json:"message" yaml:"message"`
	Access    string `json:"access" yaml:"access"`
	Role      string `json:"role,omitempty" yaml:"role,omitempty"`
	LoginType string `json:"login_type,omitempty" yaml:"login_type,omitempty"`
	Plan      string `json:"plan,omitempty" yaml:"plan,omitempty"`
	Location  string `json:"location" yaml:"location"`
}

func (r sessionResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s\n  access:   %s\n  location: %s\n", r.Message, r.Access, r.Location)
	if err == nil && r.Plan != "" {
		_, err = fmt.Fprintf(w, "  plan:     %s\n", r.Plan)
	}
	return err
}

func newSessionResult(msg string, snap session.Snapshot, location string) sessionResult {
	r := sessionResult{
		Message:   msg,
		Access:    snap.Access.Kind().String(),
		Role:      string(snap.Session.Role),
		LoginType: string(snap.Session.LoginType),
		Location:  location,
	}
	if snap.Session.AdminLogin() {
		r.Plan = snap.Session.Subscription.Plan.String()
	}
	return r
}

func runLogin(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	admin := flagBool(cmd, "admin")

	if err := requireGuest(app, session.LoginPath(loginType(admin))); err != nil {
		return err
	}

	email, err := valueOrPrompt(flagString(cmd, "email"), tui.Prompt{Message: "Email", Placeholder: "you@example.com"})
	if err != nil {
		return err
	}
	password := flagString(cmd, "password")
	if password == "" {
		password = stateFrom(ctx).loader.Viper().GetString("password")
	}
	password, err = valueOrPrompt(password, tui.Prompt{Message: "Password", Secret: true})
	if err != nil {
		return err
	}

	if _, err := app.Auth.Login(ctx, email, password, admin); err != nil {
		return err
	}
	app.RefreshSubscription(ctx)

	loc, err := app.Router.Navigate("/")
	if err != nil {
		return err
	}
	return printResult(cmd, newSessionResult("Logged in", app.Session.Snapshot(), loc.Path))
}

func runLogout(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if !app.Session.Snapshot().Session.Authenticated() {
		return printResult(cmd, "Not logged in")
	}

	loc, err := app.Shell.Logout(cmd.Context())
	if err != nil {
		return err
	}
	return printResult(cmd, newSessionResult("Logged out", app.Session.Snapshot(), loc.Path))
}

// messageResult is a backend message plus the page to continue on.
type messageResult struct {
	Message string `json:"message" yaml:"message"`
	Next    string `json:"next,omitempty" yaml:"next,omitempty"`
}

func (r messageResult) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintln(w, r.Message); err != nil {
		return err
	}
	if r.Next != "" {
		_, err := fmt.Fprintf(w, "Next: %s\n", r.Next)
		return err
	}
	return nil
}

func runSignup(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	admin := flagBool(cmd, "admin")
	signupPath := "/signup"
	verifyPath := "/verify-otp"
	if admin {
		signupPath = "/admin/signup"
		verifyPath = "/admin/verify-otp"
	}
	if err := requireGuest(app, signupPath); err != nil {
		return err
	}

	name, err := valueOrPrompt(flagString(cmd, "name"), tui.Prompt{Message: "Name"})
	if err != nil {
		return err
	}
	email, err := valueOrPrompt(flagString(cmd, "email"), tui.Prompt{Message: "Email"})
	if err != nil {
		return err
	}
	password, err := valueOrPrompt(flagString(cmd, "password"), tui.Prompt{
		Message: "Password",
		Secret:  true,
		Validate: func(s string) error {
			if !form.StrongPassword(s) {
				return fmt.Errorf("use 8+ characters with upper and lower case, a digit and one of @$!%%*?&")
			}
			return nil
		},
	})
	if err != nil {
		return err
	}

	msg, err := app.Auth.Signup(cmd.Context(), name, email, password, admin)
	if err != nil {
		return err
	}
	if _, err := app.Router.Navigate(verifyPath); err != nil {
		return err
	}
	next := "portal verify --email " + email + " --otp <code>"
	if admin {
		next += " --admin"
	}
	return printResult(cmd, messageResult{Message: msg, Next: next})
}

func runVerify(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	admin := flagBool(cmd, "admin")
	verifyPath := "/verify-otp"
	if admin {
		verifyPath = "/admin/verify-otp"
	}
	if err := requireGuest(app, verifyPath); err != nil {
		return err
	}

	email, err := valueOrPrompt(flagString(cmd, "email"), tui.Prompt{Message: "Email"})
	if err != nil {
		return err
	}
	if flagBool(cmd, "resend") {
		msg, err := app.Auth.Resend(ctx, email)
		if err != nil {
			return err
		}
		return printResult(cmd, messageResult{Message: msg})
	}

	otp, err := valueOrPrompt(flagString(cmd, "otp"), tui.Prompt{Message: "Verification code"})
	if err != nil {
		return err
	}
	msg, loginPath, err := app.Auth.Verify(ctx, email, otp, admin)
	if err != nil {
		return err
	}
	if _, err := app.Router.Navigate(loginPath); err != nil {
		return err
	}
	next := "portal login"
	if loginPath == session.LoginPath(session.LoginAdmin) {
		next += " --admin"
	}
	return printResult(cmd, messageResult{Message: msg, Next: next})
}

func runResetPassword(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if _, err := app.Router.Navigate("/reset-password"); err != nil {
		return err
	}

	token, err := valueOrPrompt(flagString(cmd, "token"), tui.Prompt{Message: "Reset token"})
	if err != nil {
		return err
	}
	password, err := valueOrPrompt(flagString(cmd, "password"), tui.Prompt{Message: "New password", Secret: true})
	if err != nil {
		return err
	}
	if err := app.Auth.ResetPassword(cmd.Context(), token, password); err != nil {
		return err
	}
	return printResult(cmd, messageResult{Message: "Password updated", Next: "portal login"})
}
