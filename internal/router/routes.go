package router

import (
	"strings"

	"github.com/centennial-infotech/portal/internal/guard"
	"github.com/centennial-infotech/portal/internal/session"
)

var (
	public        = guard.Requirement{}
	guestOnly     = guard.Requirement{GuestOnly: true}
	authenticated = guard.Requirement{Authenticated: true}
	admin         = guard.Requirement{Authenticated: true, Role: session.RoleAdmin}
	adminWithPlan = guard.Requirement{Authenticated: true, Role: session.RoleAdmin, Plan: true}
)

// NotFound is served for any path the table does not know.
var NotFound = guard.Route{Pattern: "*", Title: "Not Found"}

// DefaultRoutes is the portal's route table.
var DefaultRoutes = []guard.Route{
	{Pattern: "/", Title: "Home", Home: true},

	{Pattern: "/login", Title: "Login", Requirement: guestOnly},
	{Pattern: "/signup", Title: "Signup", Requirement: guestOnly},
	{Pattern: "/verify-otp", Title: "Verify Email", Requirement: guestOnly},
	{Pattern: "/admin/login", Title: "Admin Login", Requirement: guestOnly},
	{Pattern: "/admin/signup", Title: "Admin Signup", Requirement: guestOnly},
	{Pattern: "/admin/verify-otp", Title: "Admin Verify Email", Requirement: guestOnly},
	{Pattern: "/reset-password", Title: "Reset Password", Requirement: public},
	{Pattern: "/subscription/cancel", Title: "Payment Cancelled", Requirement: public},

	{Pattern: "/profile", Title: "Profile", Requirement: authenticated},
	{Pattern: "/profile/preview", Title: "Profile Preview", Requirement: authenticated},
	{Pattern: "/jobs", Title: "Jobs", Requirement: authenticated},
	{Pattern: "/jobs/:id", Title: "Job", Requirement: authenticated},
	{Pattern: "/notifications", Title: "Notifications", Requirement: authenticated},
	{Pattern: "/subscription/success", Title: "Payment Complete", Requirement: authenticated},

	{Pattern: "/admin/profile", Title: "Company Profile", Requirement: admin},
	{Pattern: "/admin/profile/preview", Title: "Company Profile Preview", Requirement: admin},
	{Pattern: "/subscription", Title: "Subscription", Requirement: admin},
	{Pattern: "/admin/users", Title: "Candidates", Requirement: admin},
	{Pattern: "/admin/subscription/switch/:id", Title: "Switch Plan", Requirement: admin},

	{Pattern: "/admin/job-posts", Title: "Job Posts", Requirement: adminWithPlan},
	{Pattern: "/admin/job-posts/:id/applications", Title: "Applications", Requirement: adminWithPlan},
}

// Match finds the route for path, returning its parameters. Unknown paths
// match NotFound.
func Match(routes []guard.Route, path string) (guard.Route, map[string]string) {
	segs := split(path)
	for _, r := range routes {
		if params, ok := matchPattern(split(r.Pattern), segs); ok {
			return r, params
		}
	}
	return NotFound, nil
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func matchPattern(pattern, segs []string) (map[string]string, bool) {
	if len(pattern) != len(segs) {
		return nil, false
	}
	var params map[string]string
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if segs[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[p[1:]] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return params, true
}
