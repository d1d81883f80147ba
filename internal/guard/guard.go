// Package guard decides whether the current session may see a route.
package guard

import (
	"github.com/centennial-infotech/portal/internal/session"
)

// Requirement is what a route asks of the session.
type Requirement struct {
	// Authenticated routes need a token.
	Authenticated bool
	// Role, when set, must be matched by an admin login for RoleAdmin.
	Role session.Role
	// Plan routes need an entitling subscription.
	Plan bool
	// GuestOnly routes (login, signup) send signed-in sessions home.
	GuestOnly bool
}

// Route is one entry of the route table.
type Route struct {
	Pattern     string
	Title       string
	Requirement Requirement

	// Home routes always redirect to the access level's home page.
	Home bool
}

// Decision is the guard's verdict for one evaluation.
type Decision struct {
	Allowed  bool
	Redirect string
	Reason   string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func redirect(to, reason string) Decision {
	return Decision{Redirect: to, Reason: reason}
}

// Evaluate decides whether snap may render route. It never renders the
// route's content itself; a redirect means the content must not be shown.
func Evaluate(snap session.Snapshot, route Route) Decision {
	access := snap.Access
	if access == nil {
		access = session.AccessFor(snap.Session)
	}
	req := route.Requirement

	if route.Home {
		return redirect(home(snap, access), "home")
	}

	if req.GuestOnly {
		if snap.Session.Authenticated() {
			return redirect(session.HomePath(access), "already signed in")
		}
		return allow()
	}

	if !req.Authenticated {
		return allow()
	}

	if !snap.Session.Authenticated() {
		return redirect(loginTarget(snap, access), "not signed in")
	}

	if req.Role == session.RoleAdmin {
		switch access.(type) {
		case session.AdminNoPlan, session.AdminActive:
		default:
			return redirect("/profile", "admin only")
		}
	}

	if req.Plan {
		switch access.(type) {
		case session.AdminActive:
		case session.AdminNoPlan:
			return redirect("/subscription", "no active plan")
		default:
			return redirect("/profile", "admin plan required")
		}
	}

	return allow()
}

// loginTarget picks where an unauthenticated session goes: the logout in
// flight wins, then the last known role.
func loginTarget(snap session.Snapshot, access session.Access) string {
	if snap.Session.PendingLogoutTarget != "" {
		return snap.Session.PendingLogoutTarget
	}
	return session.HomePath(access)
}

func home(snap session.Snapshot, access session.Access) string {
	if !snap.Session.Authenticated() {
		return loginTarget(snap, access)
	}
	return session.HomePath(access)
}
