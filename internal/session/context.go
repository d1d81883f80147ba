package session

import (
	"context"
	"sync"

	"github.com/centennial-infotech/portal/internal/errors"
	"github.com/centennial-infotech/portal/internal/log"
)

// Snapshot is an immutable view of the context at one generation.
type Snapshot struct {
	Session Session
	Access  Access
	Phase   Phase

	// Generation increases on every state change.
	Generation uint64

	// Epoch increases whenever a session is established or torn down.
	// Work started for one epoch must not be applied in another.
	Epoch uint64
}

// SameIdentity reports whether both snapshots describe the same signed-in
// identity (token, role and login type).
func (s Snapshot) SameIdentity(o Snapshot) bool {
	return s.Session.Token == o.Session.Token &&
		s.Session.Role == o.Session.Role &&
		s.Session.LoginType == o.Session.LoginType
}

// Change is delivered to subscribers after each state change.
type Change struct {
	Previous Snapshot
	Current  Snapshot
}

// IdentityChanged reports whether the change replaced the signed-in identity.
func (c Change) IdentityChanged() bool {
	return !c.Previous.SameIdentity(c.Current)
}

// Context owns the session for the whole process. Every mutation replaces
// the state as one value, so readers never see a token from one session
// next to a role from another. The last write wins.
type Context struct {
	mu     sync.Mutex
	state  Snapshot
	store  *Store
	logger *log.Logger

	subsMu  sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// NewContext seeds a context from the store.
func NewContext(ctx context.Context, store *Store, logger *log.Logger) *Context {
	if logger == nil {
		logger = log.Discard()
	}
	sess := store.Load(ctx)
	c := &Context{
		store:  store,
		logger: logger.WithComponent("session"),
		subs:   make(map[int]func(Change)),
	}
	c.state = Snapshot{
		Session:    sess,
		Access:     AccessFor(sess),
		Phase:      PhaseActive,
		Generation: 1,
		Epoch:      1,
	}
	c.logger.Debug("session loaded",
		"authenticated", sess.Authenticated(),
		"role", sess.Role,
		"login_type", sess.LoginType,
		"access", c.state.Access.Kind())
	return c
}

// Snapshot returns the current state.
func (c *Context) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for every subsequent change and returns a function
// that removes it. fn runs on the goroutine that made the change, after the
// state lock is released, so it may call back into the context.
func (c *Context) Subscribe(fn func(Change)) func() {
	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subs, id)
			c.subsMu.Unlock()
		})
	}
}

// SetSession establishes a new signed-in session. The subscription resets
// to none until the fetcher reports otherwise.
func (c *Context) SetSession(ctx context.Context, token, userID string, role Role, loginType LoginType) error {
	if token == "" {
		return errors.New(errors.ErrCodeSessionInvalid, "token is empty")
	}
	r, ok := ParseRole(string(role))
	if !ok {
		return errors.New(errors.ErrCodeSessionInvalid, "unknown role "+string(role))
	}
	lt, ok := ParseLoginType(string(loginType))
	if !ok {
		return errors.New(errors.ErrCodeSessionInvalid, "unknown login type "+string(loginType))
	}

	sess := Session{
		Token:     token,
		UserID:    userID,
		Role:      r,
		LoginType: lt,
	}

	change := c.mutate(func(s *Snapshot) bool {
		s.Session = sess
		s.Phase = PhaseActive
		s.Epoch++
		c.store.Save(ctx, sess)
		return true
	})
	c.logger.Info("session established", "user_id", userID, "role", r, "login_type", lt)
	c.notify(change)
	return nil
}

// ClearSession signs out. All fields and the store are wiped at once and
// the context enters PhaseLoggingOut toward the login page of loginType.
// It returns that target.
func (c *Context) ClearSession(ctx context.Context, loginType LoginType) string {
	target := LoginPath(loginType)
	c.clear(ctx, target, nil)
	return target
}

// ForceLogout clears the session like ClearSession but heads to a target
// chosen by the backend.
func (c *Context) ForceLogout(ctx context.Context, target string) {
	if target == "" {
		target = LoginPath(LoginUser)
	}
	c.logger.Warn("backend ended the session", "redirect_to", target)
	c.clear(ctx, target, nil)
}

// ForceLogoutIf is ForceLogout for a rejection of token. It does nothing
// and returns false when token is no longer the current one, so a late
// rejection of a replaced session cannot end its successor.
func (c *Context) ForceLogoutIf(ctx context.Context, token, target string) bool {
	if target == "" {
		target = LoginPath(LoginUser)
	}
	cleared := c.clear(ctx, target, func(s Session) bool { return s.Token == token })
	if !cleared {
		c.logger.Debug("ignoring rejection of a replaced session", "redirect_to", target)
		return false
	}
	c.logger.Warn("backend ended the session", "redirect_to", target)
	return true
}

func (c *Context) clear(ctx context.Context, target string, cond func(Session) bool) bool {
	change := c.mutate(func(s *Snapshot) bool {
		if cond != nil && !cond(s.Session) {
			return false
		}
		s.Session = Session{PendingLogoutTarget: target}
		s.Phase = PhaseLoggingOut
		s.Epoch++
		c.store.Clear(ctx)
		return true
	})
	if change == nil {
		return false
	}
	c.logger.Info("session cleared", "target", target)
	c.notify(change)
	return true
}

// CompleteLogout finishes a logout once navigation to its target is done.
// It does nothing unless a logout is in flight.
func (c *Context) CompleteLogout() {
	change := c.mutate(func(s *Snapshot) bool {
		if s.Phase != PhaseLoggingOut {
			return false
		}
		s.Phase = PhaseLoggedOut
		s.Session.PendingLogoutTarget = ""
		return true
	})
	c.notify(change)
}

// UpdateSubscription replaces the subscription. It returns false, and
// notifies nobody, when the value is unchanged.
func (c *Context) UpdateSubscription(ctx context.Context, isActive bool, plan Plan) bool {
	next := Subscription{IsActive: isActive, Plan: plan}
	change := c.mutate(func(s *Snapshot) bool {
		if s.Session.Subscription == next {
			return false
		}
		s.Session.Subscription = next
		c.store.SavePlan(ctx, plan)
		return true
	})
	if change == nil {
		return false
	}
	c.logger.Debug("subscription updated", "active", isActive, "plan", plan)
	c.notify(change)
	return true
}

// ApplySubscription is UpdateSubscription for asynchronous results: it only
// applies when the session the work started from is still current.
func (c *Context) ApplySubscription(ctx context.Context, expected Snapshot, isActive bool, plan Plan) bool {
	next := Subscription{IsActive: isActive, Plan: plan}
	stale := false
	change := c.mutate(func(s *Snapshot) bool {
		if s.Epoch != expected.Epoch || s.Session.Token != expected.Session.Token {
			stale = true
			return false
		}
		if s.Session.Subscription == next {
			return false
		}
		s.Session.Subscription = next
		c.store.SavePlan(ctx, plan)
		return true
	})
	if stale {
		c.logger.Debug("discarded subscription result for a superseded session")
	}
	if change == nil {
		return false
	}
	c.notify(change)
	return true
}

// SetNewUser records the post-signup flag.
func (c *Context) SetNewUser(ctx context.Context, isNew bool) {
	change := c.mutate(func(s *Snapshot) bool {
		if s.Session.IsNewUser == isNew {
			return false
		}
		s.Session.IsNewUser = isNew
		c.store.SaveNewUser(ctx, isNew)
		return true
	})
	c.notify(change)
}

// mutate applies fn to a copy of the state under the lock. When fn reports
// a change the copy becomes the new state and the change is returned.
func (c *Context) mutate(fn func(*Snapshot) bool) *Change {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state
	if !fn(&next) {
		return nil
	}
	next.Access = AccessFor(next.Session)
	next.Generation++

	change := &Change{Previous: c.state, Current: next}
	c.state = next
	return change
}

func (c *Context) notify(change *Change) {
	if change == nil {
		return
	}
	c.subsMu.Lock()
	fns := make([]func(Change), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subsMu.Unlock()

	for _, fn := range fns {
		fn(*change)
	}
}
