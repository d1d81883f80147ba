package health

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/centennial-infotech/portal/internal/session"
	"github.com/centennial-infotech/portal/internal/storage"
)

// Pinger reaches the backend and reports the HTTP status it answered.
type Pinger interface {
	BaseURL() string
	Ping(ctx context.Context) (int, error)
}

// BackendChecker checks that the backend answers at all.
type BackendChecker struct {
	pinger Pinger
}

func NewBackendChecker(p Pinger) *BackendChecker {
	return &BackendChecker{pinger: p}
}

func (c *BackendChecker) Name() string { return "backend" }

func (c *BackendChecker) Check(ctx context.Context) *Result {
	status, err := c.pinger.Ping(ctx)
	if err != nil {
		return Unhealthy("backend unreachable").
			WithDetail("url", c.pinger.BaseURL()).
			WithDetail("error", err.Error())
	}
	r := Healthy(fmt.Sprintf("backend answered %d", status))
	if status >= http.StatusInternalServerError {
		r = Degraded(fmt.Sprintf("backend answered %d", status))
	}
	return r.WithDetail("url", c.pinger.BaseURL()).WithDetail("status", status)
}

// probeKey never collides with session keys.
const probeKey = "portal.health.probe"

// StorageChecker writes, reads back and removes a probe value.
type StorageChecker struct {
	kv      storage.KV
	backend string
}

func NewStorageChecker(kv storage.KV, backend string) *StorageChecker {
	return &StorageChecker{kv: kv, backend: backend}
}

func (c *StorageChecker) Name() string { return "session-storage" }

func (c *StorageChecker) Check(ctx context.Context) *Result {
	fail := func(op string, err error) *Result {
		return Unhealthy(fmt.Sprintf("%s failed", op)).
			WithDetail("backend", c.backend).
			WithDetail("error", err.Error())
	}

	want := uuid.NewString()
	if err := c.kv.Set(ctx, probeKey, want); err != nil {
		return fail("write", err)
	}
	got, ok, err := c.kv.Get(ctx, probeKey)
	if err != nil {
		return fail("read", err)
	}
	if err := c.kv.Delete(ctx, probeKey); err != nil {
		return fail("delete", err)
	}
	if !ok || got != want {
		return Unhealthy("probe value did not round-trip").WithDetail("backend", c.backend)
	}
	return Healthy("read and write ok").WithDetail("backend", c.backend)
}

// SessionChecker reports the session state. A logout that never finished
// is degraded.
type SessionChecker struct {
	snapshot func() session.Snapshot
}

func NewSessionChecker(snapshot func() session.Snapshot) *SessionChecker {
	return &SessionChecker{snapshot: snapshot}
}

func (c *SessionChecker) Name() string { return "session" }

func (c *SessionChecker) Check(context.Context) *Result {
	snap := c.snapshot()
	access := snap.Access.Kind().String()
	if snap.Phase == session.PhaseLoggingOut {
		return Degraded("logout did not complete").
			WithDetail("access", access).
			WithDetail("target", snap.Session.PendingLogoutTarget)
	}
	msg := "not signed in"
	if snap.Session.Authenticated() {
		msg = "signed in"
	}
	return Healthy(msg).WithDetail("access", access)
}
