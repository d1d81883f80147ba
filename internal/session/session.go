// Package session holds the client's authentication state: who is signed
// in, through which portal, and on which subscription plan. The Store
// persists it between runs and the Context is the single in-process owner
// every other component reads from.
package session

import "strings"

// Role is the account kind the backend reported at login.
type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// ParseRole accepts "standard" and "admin" (case-insensitive).
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleStandard:
		return RoleStandard, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// LoginType records which login portal established the session.
type LoginType string

const (
	LoginNone  LoginType = ""
	LoginUser  LoginType = "user"
	LoginAdmin LoginType = "admin"
)

// ParseLoginType accepts "", "user" and "admin".
func ParseLoginType(s string) (LoginType, bool) {
	switch LoginType(strings.ToLower(strings.TrimSpace(s))) {
	case LoginNone:
		return LoginNone, true
	case LoginUser:
		return LoginUser, true
	case LoginAdmin:
		return LoginAdmin, true
	}
	return LoginNone, false
}

// Plan is a subscription tier. PlanNone means no plan at all.
type Plan string

const (
	PlanNone       Plan = ""
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanStandard   Plan = "standard"
	PlanPremium    Plan = "premium"
	PlanEnterprise Plan = "enterprise"
)

// Plans lists the known tiers in ascending order.
var Plans = []Plan{PlanFree, PlanBasic, PlanStandard, PlanPremium, PlanEnterprise}

// ParsePlan maps a backend or stored plan name to a Plan. Unknown names,
// "null" and the empty string all yield PlanNone.
func ParsePlan(s string) Plan {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Plans {
		if p == known {
			return p
		}
	}
	return PlanNone
}

func (p Plan) String() string {
	if p == PlanNone {
		return "none"
	}
	return string(p)
}

// Subscription is the admin billing state.
type Subscription struct {
	IsActive bool
	Plan     Plan
}

// Entitled reports whether the subscription unlocks plan-gated features.
// The free plan counts even though the backend reports it inactive.
func (s Subscription) Entitled() bool {
	return s.IsActive || s.Plan == PlanFree
}

// Session is the full authentication state of the client.
type Session struct {
	Token        string
	UserID       string
	Role         Role
	LoginType    LoginType
	Subscription Subscription

	// PendingLogoutTarget is the login page a logout in flight is heading to.
	PendingLogoutTarget string

	// IsNewUser is set after signup until the first successful login.
	IsNewUser bool
}

// Authenticated reports whether a token is present. Without one the role
// is only a hint for which login page to show.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// AdminLogin reports an admin account signed in through the admin portal,
// the only combination for which the subscription matters.
func (s Session) AdminLogin() bool {
	return s.Role == RoleAdmin && s.LoginType == LoginAdmin
}

// Phase tracks logout progress.
type Phase int

const (
	// PhaseActive means no logout is in flight.
	PhaseActive Phase = iota
	// PhaseLoggingOut means state was cleared and navigation to the
	// login page has not completed yet.
	PhaseLoggingOut
	// PhaseLoggedOut means the post-logout navigation finished.
	PhaseLoggedOut
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseLoggingOut:
		return "logging-out"
	case PhaseLoggedOut:
		return "logged-out"
	default:
		return "unknown"
	}
}

// LoginPath returns the login page for a portal.
func LoginPath(lt LoginType) string {
	if lt == LoginAdmin {
		return "/admin/login"
	}
	return "/login"
}
