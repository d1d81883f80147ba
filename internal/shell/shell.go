// Package shell holds the navigation chrome shared by the CLI and the TUI:
// which links a session sees, and the logout action.
package shell

import (
	"context"

	"github.com/centennial-infotech/portal/internal/log"
	"github.com/centennial-infotech/portal/internal/router"
	"github.com/centennial-infotech/portal/internal/session"
)

// Link is one navigation entry. Logout entries have no Path.
type Link struct {
	Label  string `json:"label" yaml:"label"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	Logout bool   `json:"logout,omitempty" yaml:"logout,omitempty"`
}

var logoutLink = Link{Label: "Logout", Logout: true}

// Links returns the navigation entries for an access level.
func Links(a session.Access) []Link {
	switch a.(type) {
	case session.StandardUser:
		return []Link{
			{Label: "Profile", Path: "/profile/preview"},
			{Label: "Jobs", Path: "/jobs"},
			{Label: "Notifications", Path: "/notifications"},
			logoutLink,
		}
	case session.AdminNoPlan:
		return []Link{
			{Label: "Profile", Path: "/admin/profile/preview"},
			{Label: "Subscription", Path: "/subscription"},
			logoutLink,
		}
	case session.AdminActive:
		return []Link{
			{Label: "Profile", Path: "/admin/profile/preview"},
			{Label: "Job Posts", Path: "/admin/job-posts"},
			{Label: "Subscription", Path: "/subscription"},
			logoutLink,
		}
	default:
		return []Link{
			{Label: "Login", Path: "/login"},
			{Label: "Signup", Path: "/signup"},
			{Label: "Admin Login", Path: "/admin/login"},
		}
	}
}

// Shell binds the session context and the router.
type Shell struct {
	sc     *session.Context
	router *router.Router
	logger *log.Logger
}

// New creates a Shell.
func New(sc *session.Context, r *router.Router, logger *log.Logger) *Shell {
	if logger == nil {
		logger = log.Discard()
	}
	return &Shell{sc: sc, router: r, logger: logger.WithComponent("shell")}
}

// Links returns the entries for the current session.
func (s *Shell) Links() []Link {
	return Links(s.sc.Snapshot().Access)
}

// Logout clears the session for its login type and navigates to the
// matching login page. Navigating completes the logout.
func (s *Shell) Logout(ctx context.Context) (router.Location, error) {
	lt := s.sc.Snapshot().Session.LoginType
	target := s.sc.ClearSession(ctx, lt)
	s.logger.Debug("logging out", "target", target)
	return s.router.Navigate(target)
}

// Follow navigates to a non-logout link.
func (s *Shell) Follow(ctx context.Context, l Link) (router.Location, error) {
	if l.Logout {
		return s.Logout(ctx)
	}
	return s.router.Navigate(l.Path)
}
