// Package subscription keeps the admin's subscription status in the
// session context up to date.
package subscription

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/centennial-infotech/portal/internal/api"
	"github.com/centennial-infotech/portal/internal/log"
	"github.com/centennial-infotech/portal/internal/metrics"
	"github.com/centennial-infotech/portal/internal/session"
	"github.com/centennial-infotech/portal/internal/telemetry"
)

// Source returns the current subscription from the backend.
type Source interface {
	CurrentSubscription(ctx context.Context) (*api.SubscriptionStatus, error)
}

// Result labels for refresh outcomes.
const (
	ResultSkipped  = "skipped"
	ResultActive   = "active"
	ResultInactive = "inactive"
	ResultNone     = "none"
	ResultError    = "error"
	ResultStale    = "stale"
)

// Fetcher refreshes the subscription for admin logins. Failures are never
// surfaced; they leave the session with no subscription.
type Fetcher struct {
	sc      *session.Context
	source  Source
	metrics *metrics.Metrics
	logger  *log.Logger
}

// NewFetcher creates a fetcher writing into sc.
func NewFetcher(sc *session.Context, source Source, m *metrics.Metrics, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.Discard()
	}
	return &Fetcher{
		sc:      sc,
		source:  source,
		metrics: m,
		logger:  logger.WithComponent("subscription"),
	}
}

// Refresh fetches the subscription for the session in snap. It only talks
// to the backend for an admin login with a token, and the result is only
// applied if that session is still current when the response arrives.
func (f *Fetcher) Refresh(ctx context.Context, snap session.Snapshot) string {
	s := snap.Session
	if !s.Authenticated() || !s.AdminLogin() {
		return f.record(ResultSkipped)
	}

	ctx, span := telemetry.StartBackgroundSpan(ctx, "subscription", "refresh")
	defer span.End()

	status, err := f.source.CurrentSubscription(ctx)
	active, plan, result := false, session.PlanNone, ResultNone
	switch {
	case err == nil:
		active, plan = status.IsActive, session.ParsePlan(status.Plan)
		result = ResultInactive
		if active {
			result = ResultActive
		}
	case api.IsNotFound(err):
		f.logger.Debug("no subscription found")
	case ctx.Err() != nil:
		return f.record(ResultSkipped)
	default:
		f.logger.WithError(err).Debug("subscription fetch failed")
		result = ResultError
	}

	if !f.sc.ApplySubscription(ctx, snap, active, plan) && !f.stillCurrent(snap) {
		result = ResultStale
	}
	span.SetAttributes(attribute.String("result", result))
	return f.record(result)
}

func (f *Fetcher) stillCurrent(snap session.Snapshot) bool {
	now := f.sc.Snapshot()
	return now.Epoch == snap.Epoch && now.Session.Token == snap.Session.Token
}

func (f *Fetcher) record(result string) string {
	if result != ResultSkipped {
		f.metrics.RecordSubscriptionRefresh(result)
	}
	return result
}

// Watch refreshes once for the current session and then again every time
// the signed-in identity changes, until ctx is done. Superseded fetches are
// cancelled.
func (f *Fetcher) Watch(ctx context.Context) {
	changes := make(chan session.Snapshot, 1)
	push := func(snap session.Snapshot) {
		// keep only the newest identity
		select {
		case <-changes:
		default:
		}
		changes <- snap
	}

	var pushMu sync.Mutex
	unsubscribe := f.sc.Subscribe(func(c session.Change) {
		if c.IdentityChanged() {
			pushMu.Lock()
			push(c.Current)
			pushMu.Unlock()
		}
	})
	defer unsubscribe()

	pushMu.Lock()
	push(f.sc.Snapshot())
	pushMu.Unlock()

	var (
		cancel context.CancelFunc
		wg     sync.WaitGroup
	)
	defer func() {
		if cancel != nil {
			cancel()
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-changes:
			if cancel != nil {
				cancel()
			}
			var fetchCtx context.Context
			fetchCtx, cancel = context.WithCancel(ctx)
			wg.Add(1)
			go func() {
				defer wg.Done()
				f.Refresh(fetchCtx, snap)
			}()
		}
	}
}
