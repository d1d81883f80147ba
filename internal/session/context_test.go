package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centennial-infotech/portal/internal/errors"
	"github.com/centennial-infotech/portal/internal/storage"
)

func newTestContext(t *testing.T) (*Context, *Store, *storage.MemoryKV) {
	t.Helper()
	kv := storage.NewMemoryKV()
	store := NewStore(kv, nil)
	return NewContext(context.Background(), store, nil), store, kv
}

func TestSetSession_StandardUserScenario(t *testing.T) {
	ctx := context.Background()
	sc, store, _ := newTestContext(t)

	require.NoError(t, sc.SetSession(ctx, "abc", "u1", RoleStandard, LoginNone))

	loaded := store.Load(ctx)
	assert.Equal(t, Session{
		Token:        "abc",
		UserID:       "u1",
		Role:         RoleStandard,
		LoginType:    LoginNone,
		Subscription: Subscription{IsActive: false, Plan: PlanNone},
	}, loaded)
	assert.Equal(t, KindStandardUser, sc.Snapshot().Access.Kind())
}

func TestSetSession_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	sc, _, kv := newTestContext(t)

	tests := []struct {
		name      string
		token     string
		role      Role
		loginType LoginType
	}{
		{"empty token", "", RoleStandard, LoginUser},
		{"unknown role", "abc", Role("owner"), LoginUser},
		{"unknown login type", "abc", RoleAdmin, LoginType("sso")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sc.SetSession(ctx, tt.token, "u1", tt.role, tt.loginType)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeSessionInvalid))
		})
	}
	assert.Equal(t, 0, kv.Len(), "rejected sessions are never persisted")
	assert.False(t, sc.Snapshot().Session.Authenticated())
}

func TestSetSession_ResetsSubscription(t *testing.T) {
	ctx := context.Background()
	sc, _, _ := newTestContext(t)

	require.NoError(t, sc.SetSession(ctx, "t1", "a1", RoleAdmin, LoginAdmin))
	sc.UpdateSubscription(ctx, true, PlanPremium)
	require.Equal(t, KindAdminActive, sc.Snapshot().Access.Kind())

	require.NoError(t, sc.SetSession(ctx, "t2", "a2", RoleAdmin, LoginAdmin))

	snap := sc.Snapshot()
	assert.Equal(t, Subscription{}, snap.Session.Subscription)
	assert.Equal(t, KindAdminNoPlan, snap.Access.Kind())
}

func TestClearSession_TwoPhaseLogout(t *testing.T) {
	ctx := context.Background()
	sc, _, kv := newTestContext(t)
	require.NoError(t, sc.SetSession(ctx, "abc", "u1", RoleStandard, LoginUser))

	target := sc.ClearSession(ctx, LoginUser)

	assert.Equal(t, "/login", target)
	snap := sc.Snapshot()
	assert.Equal(t, PhaseLoggingOut, snap.Phase)
	assert.Equal(t, "/login", snap.Session.PendingLogoutTarget)
	assert.False(t, snap.Session.Authenticated())
	assert.Equal(t, 0, kv.Len())

	sc.CompleteLogout()

	snap = sc.Snapshot()
	assert.Equal(t, PhaseLoggedOut, snap.Phase)
	assert.Empty(t, snap.Session.PendingLogoutTarget)
}

func TestClearSession_AdminTarget(t *testing.T) {
	sc, _, _ := newTestContext(t)
	assert.Equal(t, "/admin/login", sc.ClearSession(context.Background(), LoginAdmin))
}

func TestCompleteLogout_NoopWhenActive(t *testing.T) {
	sc, _, _ := newTestContext(t)
	before := sc.Snapshot()

	sc.CompleteLogout()

	assert.Equal(t, before.Generation, sc.Snapshot().Generation)
	assert.Equal(t, PhaseActive, sc.Snapshot().Phase)
}

func TestForceLogout(t *testing.T) {
	ctx := context.Background()
	sc, _, _ := newTestContext(t)
	require.NoError(t, sc.SetSession(ctx, "abc", "a1", RoleAdmin, LoginAdmin))

	sc.ForceLogout(ctx, "/admin/login?expired=1")

	snap := sc.Snapshot()
	assert.False(t, snap.Session.Authenticated())
	assert.Equal(t, "/admin/login?expired=1", snap.Session.PendingLogoutTarget)
	assert.Equal(t, PhaseLoggingOut, snap.Phase)
}

func TestForceLogoutIf_IgnoresReplacedToken(t *testing.T) {
	ctx := context.Background()
	sc, store, _ := newTestContext(t)
	require.NoError(t, sc.SetSession(ctx, "old-token", "u1", RoleStandard, LoginUser))
	sc.ClearSession(ctx, LoginUser)
	require.NoError(t, sc.SetSession(ctx, "new-token", "u2", RoleStandard, LoginUser))
	before := sc.Snapshot()

	assert.False(t, sc.ForceLogoutIf(ctx, "old-token", "/login"))

	after := sc.Snapshot()
	assert.Equal(t, before.Generation, after.Generation)
	assert.Equal(t, "new-token", after.Session.Token)
	assert.Equal(t, "new-token", store.Load(ctx).Token)
}

func TestForceLogoutIf_ClearsCurrentToken(t *testing.T) {
	ctx := context.Background()
	sc, _, _ := newTestContext(t)
	require.NoError(t, sc.SetSession(ctx, "abc", "a1", RoleAdmin, LoginAdmin))

	assert.True(t, sc.ForceLogoutIf(ctx, "abc", ""))

	snap := sc.Snapshot()
	assert.False(t, snap.Session.Authenticated())
	assert.Equal(t, "/login", snap.Session.PendingLogoutTarget)
	assert.Equal(t, PhaseLoggingOut, snap.Phase)
}

func TestApplySubscription_RejectsStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	sc, store, _ := newTestContext(t)
	require.NoError(t, sc.SetSession(ctx, "abc", "a1", RoleAdmin, LoginAdmin))
	started := sc.Snapshot()

	sc.ClearSession(ctx, LoginAdmin)

	applied := sc.ApplySubscription(ctx, started, true, PlanPremium)

	assert.False(t, applied)
	assert.Equal(t, Subscription{}, sc.Snapshot().Session.Subscription)
	assert.Equal(t, PlanNone, store.Load(ctx).Subscription.Plan)
}

func TestApplySubscription_RejectsNewerSessionWithSameToken(t *testing.T) {
	ctx := context.Background()
	sc, _, _ := newTestContext(t)
	require.NoError(t, sc.SetSession(ctx, "abc", "a1", RoleAdmin, LoginAdmin))
	started := sc.Snapshot()

	sc.ClearSession(ctx, LoginAdmin)
	require.NoError(t, sc.SetSession(ctx, "abc", "a1", RoleAdmin, LoginAdmin))

	assert.False(t, sc.ApplySubscription(ctx, started, true, PlanBasic))
}

func TestApplySubscription_AppliesCurrent(t *testing.T) {
	ctx := context.Background()
	sc, store, _ := newTestContext(t)
	require.NoError(t, sc.SetSession(ctx, "abc", "a1", RoleAdmin, LoginAdmin))

	assert.True(t, sc.ApplySubscription(ctx, sc.Snapshot(), true, PlanBasic))
	assert.Equal(t, AdminActive{Plan: PlanBasic}, sc.Snapshot().Access)
	assert.Equal(t, PlanBasic, store.Load(ctx).Subscription.Plan)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	sc, _, _ := newTestContext(t)

	var changes []Change
	unsubscribe := sc.Subscribe(func(c Change) { changes = append(changes, c) })

	require.NoError(t, sc.SetSession(ctx, "abc", "u1", RoleStandard, LoginUser))
	require.Len(t, changes, 1)
	assert.True(t, changes[0].IdentityChanged())
	assert.Equal(t, changes[0].Previous.Generation+1, changes[0].Current.Generation)

	unsubscribe()
	unsubscribe()
	sc.ClearSession(ctx, LoginUser)
	assert.Len(t, changes, 1)
}

func TestSubscriberMayCallBack(t *testing.T) {
	ctx := context.Background()
	sc, _, _ := newTestContext(t)

	sc.Subscribe(func(c Change) {
		if c.Current.Phase == PhaseLoggingOut {
			sc.CompleteLogout()
		}
	})

	require.NoError(t, sc.SetSession(ctx, "abc", "u1", RoleStandard, LoginUser))
	sc.ClearSession(ctx, LoginUser)

	assert.Equal(t, PhaseLoggedOut, sc.Snapshot().Phase)
}

func TestNewContext_SeedsFromStore(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	store := NewStore(kv, nil)
	store.Save(ctx, Session{Token: "abc", UserID: "a1", Role: RoleAdmin, LoginType: LoginAdmin, Subscription: Subscription{Plan: PlanFree}})

	sc := NewContext(ctx, store, nil)

	assert.Equal(t, AdminActive{Plan: PlanFree}, sc.Snapshot().Access)
}

func TestSetNewUser(t *testing.T) {
	ctx := context.Background()
	sc, store, _ := newTestContext(t)

	sc.SetNewUser(ctx, true)
	assert.True(t, store.Load(ctx).IsNewUser)

	require.NoError(t, sc.SetSession(ctx, "abc", "u1", RoleStandard, LoginUser))
	assert.False(t, store.Load(ctx).IsNewUser, "login clears the new-user flag")
}

func TestConcurrentMutationsKeepStateConsistent(t *testing.T) {
	ctx := context.Background()
	sc, _, _ := newTestContext(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = sc.SetSession(ctx, "admin-token", "a1", RoleAdmin, LoginAdmin)
		}()
		go func() {
			defer wg.Done()
			sc.ClearSession(ctx, LoginUser)
		}()
	}
	wg.Wait()

	s := sc.Snapshot().Session
	if s.Authenticated() {
		assert.Equal(t, RoleAdmin, s.Role)
		assert.Equal(t, LoginAdmin, s.LoginType)
	} else {
		assert.Empty(t, s.UserID)
		assert.Equal(t, LoginNone, s.LoginType)
	}
}
