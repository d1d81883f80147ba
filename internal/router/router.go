// Package router is the in-app navigator. Every navigation goes through
// the route guard, and the current location is re-checked whenever the
// session changes.
package router

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/centennial-infotech/portal/internal/guard"
	"github.com/centennial-infotech/portal/internal/log"
	"github.com/centennial-infotech/portal/internal/metrics"
	"github.com/centennial-infotech/portal/internal/session"
)

// MaxRedirects bounds a redirect chain.
const MaxRedirects = 8

// Location is a resolved, guard-approved position in the app.
type Location struct {
	Path   string
	Query  url.Values
	Route  guard.Route
	Params map[string]string

	// Requested is the path originally asked for when the guard redirected.
	Requested string
	// Redirects lists every intermediate path that was redirected away from.
	Redirects []string
}

// Redirected reports whether the guard changed the destination.
func (l Location) Redirected() bool {
	return len(l.Redirects) > 0
}

// Router tracks the current location for one session context.
type Router struct {
	sc      *session.Context
	routes  []guard.Route
	metrics *metrics.Metrics
	logger  *log.Logger

	mu      sync.Mutex
	current Location
	history []string
	// seq counts committed navigations.
	seq uint64

	listenersMu sync.Mutex
	listeners   map[int]func(Location)
	nextID      int

	unsubscribe func()

	// resolved runs between resolving a navigation and committing it.
	resolved func()
}

// Option configures a Router.
type Option func(*Router)

// WithRoutes replaces the route table.
func WithRoutes(routes []guard.Route) Option {
	return func(r *Router) { r.routes = routes }
}

// WithMetrics records guard decisions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New creates a router bound to sc. It re-evaluates the current location
// on every session change until Close is called.
func New(sc *session.Context, opts ...Option) *Router {
	r := &Router{
		sc:        sc,
		routes:    DefaultRoutes,
		logger:    log.Discard(),
		listeners: make(map[int]func(Location)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("router")
	r.unsubscribe = sc.Subscribe(r.onSessionChange)
	return r
}

// Close stops following session changes.
func (r *Router) Close() {
	r.unsubscribe()
}

// Current returns the current location. It is the zero Location before
// the first navigation.
func (r *Router) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// History returns the paths navigated to, oldest first.
func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history...)
}

// OnNavigate registers fn for every completed navigation.
func (r *Router) OnNavigate(fn func(Location)) func() {
	r.listenersMu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.listenersMu.Unlock()

	return func() {
		r.listenersMu.Lock()
		delete(r.listeners, id)
		r.listenersMu.Unlock()
	}
}

// Resolve runs the guard for path against the current session, following
// redirects, without moving.
func (r *Router) Resolve(path string) (Location, error) {
	return r.resolve(r.sc.Snapshot(), path)
}

func (r *Router) resolve(snap session.Snapshot, path string) (Location, error) {
	requested := path
	var redirects []string
	seen := make(map[string]bool)

	for {
		u, err := url.Parse(path)
		if err != nil {
			return Location{}, fmt.Errorf("invalid path %q: %w", path, err)
		}
		route, params := Match(r.routes, u.Path)
		d := guard.Evaluate(snap, route)
		r.metrics.RecordGuard(route.Pattern, d.Redirect)

		if d.Allowed {
			loc := Location{
				Path:      u.Path,
				Query:     u.Query(),
				Route:     route,
				Params:    params,
				Redirects: redirects,
			}
			if len(redirects) > 0 {
				loc.Requested = requested
			}
			return loc, nil
		}

		r.logger.Debug("guard redirect", "from", u.Path, "to", d.Redirect, "reason", d.Reason)
		if seen[u.Path] || len(redirects) >= MaxRedirects {
			return Location{}, fmt.Errorf("redirect loop resolving %s: %v", requested, append(redirects, u.Path))
		}
		seen[u.Path] = true
		redirects = append(redirects, u.Path)
		path = d.Redirect
	}
}

// Navigate moves to path, or wherever the guard sends it. A completed
// navigation finishes any logout in flight. If the session changes while
// the path is being resolved, it is resolved again for the new session.
func (r *Router) Navigate(path string) (Location, error) {
	for attempt := 0; attempt <= MaxRedirects; attempt++ {
		snap := r.sc.Snapshot()
		loc, err := r.resolve(snap, path)
		if err != nil {
			return Location{}, err
		}
		if r.resolved != nil {
			r.resolved()
		}
		if r.commit(loc, snap.Generation, nil) {
			return loc, nil
		}
		r.logger.Debug("session changed during navigation, resolving again", "path", path)
	}
	return Location{}, fmt.Errorf("session kept changing while navigating to %s", path)
}

// commit installs loc if the session is still at generation and, when seq
// is set, no other navigation was committed since. Checking under r.mu
// orders it against onSessionChange, which reads the current location
// under the same lock after every change.
func (r *Router) commit(loc Location, generation uint64, seq *uint64) bool {
	r.mu.Lock()
	if r.sc.Snapshot().Generation != generation || (seq != nil && *seq != r.seq) {
		r.mu.Unlock()
		return false
	}
	r.seq++
	r.current = loc
	r.history = append(r.history, loc.Path)
	r.mu.Unlock()

	r.logger.Debug("navigated", "path", loc.Path, "route", loc.Route.Pattern, "requested", loc.Requested)

	r.sc.CompleteLogout()

	r.listenersMu.Lock()
	fns := make([]func(Location), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.listenersMu.Unlock()
	for _, fn := range fns {
		fn(loc)
	}
	return true
}

// onSessionChange re-checks the mounted route. A logout while a protected
// view is shown moves straight to the login page.
func (r *Router) onSessionChange(change session.Change) {
	r.metrics.SetAccessLevel(change.Current.Access.Kind().String())

	r.mu.Lock()
	current, seq := r.current, r.seq
	r.mu.Unlock()
	if current.Path == "" {
		return
	}

	snap := r.sc.Snapshot()
	if d := guard.Evaluate(snap, current.Route); d.Allowed {
		return
	}

	loc, err := r.resolve(snap, current.Path)
	if err != nil {
		r.logger.WithError(err).Warn("failed to re-route after session change")
		return
	}
	// A newer change or navigation re-checks the location on its own.
	r.commit(loc, snap.Generation, &seq)
}
