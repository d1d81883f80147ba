// Package notification polls the candidate's notifications.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/centennial-infotech/portal/internal/api"
	"github.com/centennial-infotech/portal/internal/log"
	"github.com/centennial-infotech/portal/internal/metrics"
	"github.com/centennial-infotech/portal/internal/session"
	"github.com/centennial-infotech/portal/internal/telemetry"
)

// DefaultInterval is the polling period.
const DefaultInterval = 60 * time.Second

// Source is the backend surface the feed needs.
type Source interface {
	Notifications(ctx context.Context) ([]api.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// Options configures a Feed.
type Options struct {
	Interval time.Duration
	Metrics  *metrics.Metrics
	Logger   *log.Logger
}

// Feed holds the latest notifications for a standard user session. It
// stays idle for any other access level.
type Feed struct {
	sc       *session.Context
	source   Source
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *log.Logger

	mu    sync.Mutex
	items []api.Notification
	epoch uint64

	listenersMu sync.Mutex
	listeners   map[int]func()
	nextID      int
}

// NewFeed creates a feed for sc.
func NewFeed(sc *session.Context, source Source, opts Options) *Feed {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	return &Feed{
		sc:        sc,
		source:    source,
		interval:  opts.Interval,
		metrics:   opts.Metrics,
		logger:    opts.Logger.WithComponent("notifications"),
		listeners: make(map[int]func()),
	}
}

// Items returns a copy of the current notifications.
func (f *Feed) Items() []api.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.Notification(nil), f.items...)
}

// Unread counts unread notifications.
func (f *Feed) Unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return countUnread(f.items)
}

func countUnread(items []api.Notification) int {
	n := 0
	for _, it := range items {
		if !it.IsRead {
			n++
		}
	}
	return n
}

// OnChange registers fn to run after the item list changes.
func (f *Feed) OnChange(fn func()) func() {
	f.listenersMu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.listenersMu.Unlock()
	return func() {
		f.listenersMu.Lock()
		delete(f.listeners, id)
		f.listenersMu.Unlock()
	}
}

func (f *Feed) changed() {
	f.listenersMu.Lock()
	fns := make([]func(), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.listenersMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// eligible reports whether snap is a session the feed serves.
func eligible(snap session.Snapshot) bool {
	return snap.Access != nil && snap.Access.Kind() == session.KindStandardUser
}

// Poll fetches once for the current session. On failure the list becomes
// empty. Results for a session that ended meanwhile are dropped.
func (f *Feed) Poll(ctx context.Context) error {
	snap := f.sc.Snapshot()
	if !eligible(snap) {
		f.replace(snap.Epoch, nil)
		return nil
	}

	ctx, span := telemetry.StartBackgroundSpan(ctx, "notification", "poll")
	items, err := f.source.Notifications(ctx)
	telemetry.End(span, err)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.metrics.RecordNotificationPoll(err, countUnread(items))
	if err != nil {
		f.logger.WithError(err).Debug("notification poll failed")
		items = nil
	}

	now := f.sc.Snapshot()
	if now.Epoch != snap.Epoch || now.Session.Token != snap.Session.Token {
		f.logger.Debug("discarded notifications for a superseded session")
		return err
	}
	f.replace(snap.Epoch, items)
	return err
}

func (f *Feed) replace(epoch uint64, items []api.Notification) {
	f.mu.Lock()
	if len(f.items) == 0 && len(items) == 0 && f.epoch == epoch {
		f.mu.Unlock()
		return
	}
	f.items = items
	f.epoch = epoch
	f.mu.Unlock()
	f.changed()
}

// MarkRead flips a notification to read straight away and tells the
// backend. If the backend refuses, the flag is restored.
func (f *Feed) MarkRead(ctx context.Context, id string) error {
	if !f.setRead(id, true) {
		return nil
	}
	epoch := f.sc.Snapshot().Epoch

	if err := f.source.MarkNotificationRead(ctx, id); err != nil {
		f.logger.WithError(err).Debug("mark read failed, reverting", "id", id)
		if f.sc.Snapshot().Epoch == epoch {
			f.setRead(id, false)
		}
		return err
	}
	return nil
}

// setRead sets the read flag of id and reports whether anything changed.
func (f *Feed) setRead(id string, read bool) bool {
	f.mu.Lock()
	found := false
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].IsRead != read {
			f.items[i].IsRead = read
			found = true
		}
	}
	f.mu.Unlock()
	if found {
		f.changed()
	}
	return found
}

// Run polls every interval while the session is a standard user, backing
// off exponentially after failures. A login or logout triggers an
// immediate re-check. Run returns when ctx is done.
func (f *Feed) Run(ctx context.Context) {
	wake := make(chan struct{}, 1)
	unsubscribe := f.sc.Subscribe(func(c session.Change) {
		if c.IdentityChanged() {
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = minDuration(f.interval/4, 5*time.Second)
	b.MaxInterval = 5 * f.interval

	for {
		var wait time.Duration
		if !eligible(f.sc.Snapshot()) {
			f.replace(f.sc.Snapshot().Epoch, nil)
			b.Reset()
			wait = -1
		} else if err := f.Poll(ctx); err != nil && ctx.Err() == nil {
			wait = b.NextBackOff()
			f.logger.Debug("backing off", "wait", wait)
		} else {
			b.Reset()
			wait = f.interval
		}

		if !f.sleep(ctx, wake, wait) {
			return
		}
	}
}

// sleep waits for d, a wake-up, or ctx. A negative d waits without a timer.
// It returns false when ctx is done.
func (f *Feed) sleep(ctx context.Context, wake <-chan struct{}, d time.Duration) bool {
	var timer <-chan time.Time
	if d >= 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timer = t.C
	}
	select {
	case <-ctx.Done():
		return false
	case <-wake:
		return true
	case <-timer:
		return true
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
