package session

// AccessKind enumerates the effective access levels.
type AccessKind int

const (
	KindGuest AccessKind = iota
	KindStandardUser
	KindAdminNoPlan
	KindAdminActive
)

func (k AccessKind) String() string {
	switch k {
	case KindGuest:
		return "guest"
	case KindStandardUser:
		return "standard-user"
	case KindAdminNoPlan:
		return "admin-no-plan"
	case KindAdminActive:
		return "admin-active"
	default:
		return "unknown"
	}
}

// Access is the effective access level derived from a Session. It is
// computed once per session change and consumed by the guard and the
// navigation shell instead of re-deriving flag combinations.
//
// The set of implementations is closed: Guest, StandardUser, AdminNoPlan
// and AdminActive.
type Access interface {
	Kind() AccessKind
	access()
}

// Guest has no token. LastRole picks the login portal to send them to.
type Guest struct {
	LastRole Role
}

// StandardUser is any authenticated session that is not an admin login.
type StandardUser struct{}

// AdminNoPlan is an admin login without an entitling subscription.
type AdminNoPlan struct{}

// AdminActive is an admin login with an entitling subscription.
type AdminActive struct {
	Plan Plan
}

func (Guest) Kind() AccessKind        { return KindGuest }
func (StandardUser) Kind() AccessKind { return KindStandardUser }
func (AdminNoPlan) Kind() AccessKind  { return KindAdminNoPlan }
func (AdminActive) Kind() AccessKind  { return KindAdminActive }

func (Guest) access()        {}
func (StandardUser) access() {}
func (AdminNoPlan) access()  {}
func (AdminActive) access()  {}

// AccessFor derives the access level of s.
func AccessFor(s Session) Access {
	switch {
	case !s.Authenticated():
		return Guest{LastRole: s.Role}
	case !s.AdminLogin():
		return StandardUser{}
	case s.Subscription.Entitled():
		return AdminActive{Plan: s.Subscription.Plan}
	default:
		return AdminNoPlan{}
	}
}

// HomePath is where "/" and guest-only pages send a session at this level.
func HomePath(a Access) string {
	switch v := a.(type) {
	case StandardUser:
		return "/profile"
	case AdminNoPlan:
		return "/subscription"
	case AdminActive:
		return "/admin/job-posts"
	case Guest:
		if v.LastRole == RoleAdmin {
			return "/admin/login"
		}
		return "/login"
	default:
		return "/login"
	}
}
