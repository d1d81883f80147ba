package shell

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centennial-infotech/portal/internal/log"
	"github.com/centennial-infotech/portal/internal/router"
	"github.com/centennial-infotech/portal/internal/session"
	"github.com/centennial-infotech/portal/internal/storage"
)

func labels(links []Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.Label
	}
	return out
}

func TestLinksPerAccessLevel(t *testing.T) {
	tests := []struct {
		name   string
		access session.Access
		want   []string
	}{
		{"guest", session.Guest{}, []string{"Login", "Signup", "Admin Login"}},
		{"standard", session.StandardUser{}, []string{"Profile", "Jobs", "Notifications", "Logout"}},
		{"admin without plan", session.AdminNoPlan{}, []string{"Profile", "Subscription", "Logout"}},
		{"admin with plan", session.AdminActive{Plan: session.PlanBasic}, []string{"Profile", "Job Posts", "Subscription", "Logout"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, labels(Links(tt.access)))
		})
	}
}

func TestEveryLinkPassesTheGuard(t *testing.T) {
	cases := map[string]func(context.Context, *session.Context){
		"guest": func(context.Context, *session.Context) {},
		"standard": func(ctx context.Context, sc *session.Context) {
			require.NoError(t, sc.SetSession(ctx, "t", "u", session.RoleStandard, session.LoginUser))
		},
		"admin no plan": func(ctx context.Context, sc *session.Context) {
			require.NoError(t, sc.SetSession(ctx, "t", "u", session.RoleAdmin, session.LoginAdmin))
		},
		"admin active": func(ctx context.Context, sc *session.Context) {
			require.NoError(t, sc.SetSession(ctx, "t", "u", session.RoleAdmin, session.LoginAdmin))
			sc.UpdateSubscription(ctx, true, session.PlanPremium)
		},
	}

	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sh, sc, r := newShell(t)
			setup(ctx, sc)

			for _, l := range sh.Links() {
				if l.Logout {
					continue
				}
				loc, err := r.Resolve(l.Path)
				require.NoError(t, err)
				assert.False(t, loc.Redirected(), "%s link %s was redirected to %s", name, l.Path, loc.Path)
			}
		})
	}
}

func newShell(t *testing.T) (*Shell, *session.Context, *router.Router) {
	t.Helper()
	sc := session.NewContext(context.Background(), session.NewStore(storage.NewMemoryKV(), nil), nil)
	r := router.New(sc)
	t.Cleanup(r.Close)
	return New(sc, r, nil), sc, r
}

func TestLogoutNavigatesToLoginForLoginType(t *testing.T) {
	tests := []struct {
		name   string
		role   session.Role
		lt     session.LoginType
		target string
	}{
		{"candidate", session.RoleStandard, session.LoginUser, "/login"},
		{"admin", session.RoleAdmin, session.LoginAdmin, "/admin/login"},
		{"admin on user portal", session.RoleAdmin, session.LoginUser, "/login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			sh, sc, r := newShell(t)
			require.NoError(t, sc.SetSession(ctx, "tok", "u1", tt.role, tt.lt))
			_, err := r.Navigate("/profile")
			require.NoError(t, err)

			loc, err := sh.Logout(ctx)
			require.NoError(t, err)

			assert.Equal(t, tt.target, loc.Path)
			snap := sc.Snapshot()
			assert.Equal(t, session.PhaseLoggedOut, snap.Phase)
			assert.Empty(t, snap.Session.Token)
			assert.Equal(t, session.KindGuest, snap.Access.Kind())
			assert.Equal(t, []string{"Login", "Signup", "Admin Login"}, labels(sh.Links()))
		})
	}
}

func TestFollow(t *testing.T) {
	ctx := context.Background()
	sh, sc, _ := newShell(t)
	require.NoError(t, sc.SetSession(ctx, "tok", "u1", session.RoleStandard, session.LoginUser))

	loc, err := sh.Follow(ctx, Link{Label: "Jobs", Path: "/jobs"})
	require.NoError(t, err)
	assert.Equal(t, "/jobs", loc.Path)

	loc, err = sh.Follow(ctx, logoutLink)
	require.NoError(t, err)
	assert.Equal(t, "/login", loc.Path)
}

// captureDefaultLogger routes the process-wide logger into a buffer at
// debug level for the duration of the test.
func captureDefaultLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := log.DefaultLogger()
	var buf bytes.Buffer
	log.SetDefaultLogger(log.New(log.Config{Level: log.LevelDebug, Format: log.FormatText, Output: log.NewOutput(&buf)}))
	t.Cleanup(func() { log.SetDefaultLogger(prev) })
	return &buf
}

func TestNilLoggerStaysQuiet(t *testing.T) {
	buf := captureDefaultLogger(t)
	ctx := context.Background()
	sh, sc, _ := newShell(t)
	require.NoError(t, sc.SetSession(ctx, "tok", "u1", session.RoleStandard, session.LoginUser))

	_, err := sh.Logout(ctx)
	require.NoError(t, err)

	assert.Empty(t, buf.String())
}
