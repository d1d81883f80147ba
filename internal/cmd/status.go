package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/centennial-infotech/portal/internal/guard"
	"github.com/centennial-infotech/portal/internal/router"
	"github.com/centennial-infotech/portal/internal/session"
	"github.com/centennial-infotech/portal/internal/shell"
	"github.com/centennial-infotech/portal/internal/ux"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session and access level",
	Long: `Show who is signed in, through which portal, the subscription plan and
the resulting access level.

Examples:
  portal status
  portal status --refresh --format json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var navCmd = &cobra.Command{
	Use:   "nav",
	Short: "List the screens the current session can open",
	Long: `List the navigation links for the current access level. With --all every
route is listed with the guard's decision for it.`,
	Args: cobra.NoArgs,
	RunE: runNav,
}

var openCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Navigate to a path and show where the guard lands",
	Long: `Navigate to a path exactly as the interactive client would and report the
resulting location, including any guard redirects.

Examples:
  portal open /admin/job-posts
  portal open /`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	statusCmd.Flags().Bool("refresh", false, "refresh the subscription from the backend first")
	navCmd.Flags().Bool("all", false, "list every route with the guard decision")
	rootCmd.AddCommand(statusCmd, navCmd, openCmd)
}

// StatusReport is the output of portal status.
type StatusReport struct {
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	Access        string `json:"access" yaml:"access"`
	UserID        string `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Role          string `json:"role,omitempty" yaml:"role,omitempty"`
	LoginType     string `json:"login_type,omitempty" yaml:"login_type,omitempty"`
	Plan          string `json:"plan,omitempty" yaml:"plan,omitempty"`
	PlanActive    bool   `json:"plan_active" yaml:"plan_active"`
	NewUser       bool   `json:"new_user" yaml:"new_user"`
	Home          string `json:"home" yaml:"home"`
	API           string `json:"api" yaml:"api"`
	Storage       string `json:"storage" yaml:"storage"`
	Refresh       string `json:"refresh,omitempty" yaml:"refresh,omitempty"`
}

func (r StatusReport) WriteText(w io.Writer) error {
	var b strings.Builder
	if r.Authenticated {
		fmt.Fprintf(&b, "Signed in (%s)\n", r.Access)
		fmt.Fprintf(&b, "  user:       %s\n", r.UserID)
		fmt.Fprintf(&b, "  role:       %s\n", r.Role)
		fmt.Fprintf(&b, "  portal:     %s\n", r.LoginType)
		if r.Plan != "" {
			state := "inactive"
			if r.PlanActive {
				state = "active"
			}
			fmt.Fprintf(&b, "  plan:       %s (%s)\n", r.Plan, state)
		}
	} else {
		fmt.Fprintf(&b, "Not signed in\n")
	}
	fmt.Fprintf(&b, "  home:       %s\n", r.Home)
	fmt.Fprintf(&b, "  api:        %s\n", r.API)
	fmt.Fprintf(&b, "  storage:    %s\n", r.Storage)
	if r.Refresh != "" {
		fmt.Fprintf(&b, "  refresh:    %s\n", r.Refresh)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func buildStatusReport(app *App, snap session.Snapshot) StatusReport {
	s := snap.Session
	r := StatusReport{
		Authenticated: s.Authenticated(),
		Access:        snap.Access.Kind().String(),
		UserID:        s.UserID,
		Role:          string(s.Role),
		LoginType:     string(s.LoginType),
		NewUser:       s.IsNewUser,
		Home:          session.HomePath(snap.Access),
		API:           app.Client.BaseURL(),
		Storage:       app.Config.Storage.Backend,
	}
	if s.AdminLogin() {
		r.Plan = s.Subscription.Plan.String()
		r.PlanActive = s.Subscription.IsActive
	}
	return r
}

func runStatus(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	var refresh string
	if flagBool(cmd, "refresh") {
		refresh = app.ReloadSubscription(cmd.Context())
	}
	report := buildStatusReport(app, app.Session.Snapshot())
	report.Refresh = refresh
	if flagBool(cmd, "ephemeral") {
		report.Storage = "memory"
	}
	return printResult(cmd, report)
}

// navLinks lists shell links, or every route with its guard decision.
type navLinks struct {
	Access string     `json:"access" yaml:"access"`
	Links  []navEntry `json:"links" yaml:"links"`
}

type navEntry struct {
	Label    string `json:"label" yaml:"label"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Redirect string `json:"redirect,omitempty" yaml:"redirect,omitempty"`
}

func (n navLinks) WriteText(w io.Writer) error {
	rows := make([][]string, 0, len(n.Links))
	for _, l := range n.Links {
		rows = append(rows, []string{l.Label, l.Path, l.Redirect})
	}
	if _, err := fmt.Fprintf(w, "Access: %s\n", n.Access); err != nil {
		return err
	}
	return ux.Table(w, []string{"SCREEN", "PATH", "REDIRECT"}, rows, "no screens")
}

func runNav(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	app.RefreshSubscription(cmd.Context())
	snap := app.Session.Snapshot()
	out := navLinks{Access: snap.Access.Kind().String()}

	if flagBool(cmd, "all") {
		for _, r := range router.DefaultRoutes {
			e := navEntry{Label: r.Title, Path: r.Pattern}
			if d := guard.Evaluate(snap, r); !d.Allowed {
				e.Redirect = d.Redirect
			}
			out.Links = append(out.Links, e)
		}
		return printResult(cmd, out)
	}

	for _, l := range shell.Links(snap.Access) {
		e := navEntry{Label: l.Label, Path: l.Path}
		if l.Logout {
			e.Path = "portal logout"
		}
		out.Links = append(out.Links, e)
	}
	return printResult(cmd, out)
}

// locationResult is where a navigation ended.
type locationResult struct {
	Path      string            `json:"path" yaml:"path"`
	Title     string            `json:"title" yaml:"title"`
	Params    map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Requested string            `json:"requested,omitempty" yaml:"requested,omitempty"`
	Redirects []string          `json:"redirects,omitempty" yaml:"redirects,omitempty"`
}

func (r locationResult) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s (%s)\n", r.Title, r.Path); err != nil {
		return err
	}
	if r.Requested != "" {
		_, err := fmt.Fprintf(w, "  redirected from %s via %s\n", r.Requested, strings.Join(r.Redirects, " -> "))
		return err
	}
	return nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	app.RefreshSubscription(cmd.Context())
	loc, err := app.Router.Navigate(args[0])
	if err != nil {
		return err
	}
	return printResult(cmd, locationResult{
		Path:      loc.Path,
		Title:     loc.Route.Title,
		Params:    loc.Params,
		Requested: loc.Requested,
		Redirects: loc.Redirects,
	})
}
