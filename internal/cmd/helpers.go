package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/centennial-infotech/portal/internal/errors"
	"github.com/centennial-infotech/portal/internal/form"
	"github.com/centennial-infotech/portal/internal/router"
	"github.com/centennial-infotech/portal/internal/session"
	"github.com/centennial-infotech/portal/internal/tui"
	"github.com/centennial-infotech/portal/internal/ux"
)

// printResult writes data in the format chosen with --format.
func printResult(cmd *cobra.Command, data any) error {
	f, err := ux.NewFormatter(flagString(cmd, "format"), &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	return f.Format(data)
}

// printYAML writes data as YAML regardless of --format.
func printYAML(cmd *cobra.Command, data any) error {
	f, err := ux.NewFormatter("yaml", &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	return f.Format(data)
}

// requireRoute moves the router to path and fails if the guard sent the
// session anywhere else. Admin plans are refreshed first so plan-gated
// routes see the backend's current subscription.
func requireRoute(ctx context.Context, app *App, path string) (router.Location, error) {
	app.RefreshSubscription(ctx)

	loc, err := app.Router.Navigate(path)
	if err != nil {
		return router.Location{}, err
	}
	if !loc.Redirected() {
		return loc, nil
	}
	if !app.Session.Snapshot().Session.Authenticated() {
		return loc, errors.NewNotLoggedInError()
	}
	return loc, errors.NewForbiddenRouteError(path, loc.Path)
}

// requireGuest opens a login-type page and fails if a session already
// exists.
func requireGuest(app *App, path string) error {
	loc, err := app.Router.Navigate(path)
	if err != nil {
		return err
	}
	if loc.Redirected() {
		snap := app.Session.Snapshot()
		return errors.New(errors.ErrCodeSessionInvalid,
			"already signed in as "+snap.Access.Kind().String()).
			WithSuggestion("Run 'portal logout' first")
	}
	return nil
}

// valueOrPrompt returns value, or asks for it when the terminal allows.
// A value that is still missing is left for form validation to report.
func valueOrPrompt(value string, p tui.Prompt) (string, error) {
	if strings.TrimSpace(value) != "" || !tui.ShouldPrompt() {
		return value, nil
	}
	return tui.PromptForString(p)
}

// loginType is the portal selected with --admin.
func loginType(admin bool) session.LoginType {
	if admin {
		return session.LoginAdmin
	}
	return session.LoginUser
}

func adminFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("admin", false, "use the company administrator portal")
}

// validateForm reports field errors as a coded validation error.
func validateForm(v any) error {
	err := form.Validate(v)
	if fe, ok := form.FieldsOf(err); ok {
		return fe.Err()
	}
	return err
}
