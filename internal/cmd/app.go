package cmd

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/centennial-infotech/portal/internal/api"
	"github.com/centennial-infotech/portal/internal/auth"
	"github.com/centennial-infotech/portal/internal/config"
	"github.com/centennial-infotech/portal/internal/log"
	"github.com/centennial-infotech/portal/internal/metrics"
	"github.com/centennial-infotech/portal/internal/notification"
	"github.com/centennial-infotech/portal/internal/router"
	"github.com/centennial-infotech/portal/internal/session"
	"github.com/centennial-infotech/portal/internal/shell"
	"github.com/centennial-infotech/portal/internal/storage"
	"github.com/centennial-infotech/portal/internal/subscription"
)

// AppOptions adjusts how NewApp wires the application.
type AppOptions struct {
	// Ephemeral keeps the session in memory regardless of storage.backend.
	Ephemeral bool
	// Transport replaces the HTTP transport of the API client.
	Transport http.RoundTripper
}

// App is the wired client: one session context shared by every component.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	KV      storage.KV
	Session *session.Context
	Client  *api.Client
	Router  *router.Router
	Shell   *shell.Shell
	Auth    *auth.Service
	Fetcher *subscription.Fetcher
	Feed    *notification.Feed

	refreshMu      sync.Mutex
	refreshed      string
	refreshedEpoch uint64
}

// NewApp opens session storage, restores the session and wires the
// services around it.
func NewApp(ctx context.Context, cfg *config.Config, opts AppOptions) (*App, error) {
	logger := log.DefaultLogger()

	storageCfg := cfg.StorageOptions()
	if opts.Ephemeral {
		storageCfg.Backend = storage.BackendMemory
	}
	kv, err := storage.Open(ctx, storageCfg)
	if err != nil {
		return nil, err
	}

	reg, m := metrics.NewRegistry()
	sc := session.NewContext(ctx, session.NewStore(kv, logger), logger)

	client := api.NewClient(api.Options{
		BaseURL:   cfg.API.URL,
		Timeout:   cfg.API.Timeout,
		Retries:   cfg.API.Retries,
		Token:     func() string { return sc.Snapshot().Session.Token },
		Observer:  m,
		Logger:    logger,
		Transport: opts.Transport,
	})

	r := router.New(sc, router.WithMetrics(m), router.WithLogger(logger))

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Metrics:  m,
		KV:       kv,
		Session:  sc,
		Client:   client,
		Router:   r,
		Shell:    shell.New(sc, r, logger),
		Auth:     auth.NewService(client, sc, logger),
		Fetcher:  subscription.NewFetcher(sc, client, m, logger),
		Feed: notification.NewFeed(sc, client, notification.Options{
			Interval: cfg.Notifications.Interval,
			Metrics:  m,
			Logger:   logger,
		}),
	}
	client.SetForcedReauthHandler(app.forcedReauth)
	return app, nil
}

// forcedReauth ends the session when the backend demands it and moves the
// router to the page the backend named. A rejection of a token that was
// already replaced is dropped.
func (a *App) forcedReauth(ctx context.Context, token, redirectTo string) {
	target := redirectTo
	if target == "" {
		target = session.LoginPath(session.LoginUser)
	}
	if !a.Session.ForceLogoutIf(ctx, token, target) {
		return
	}
	a.Metrics.RecordForcedReauth()
	if _, err := a.Router.Navigate(target); err != nil {
		a.Logger.WithError(err).Warn("navigation after forced logout failed")
	}
}

// RefreshSubscription brings the admin's plan up to date before a command
// evaluates the guard. The backend is asked once per session epoch.
func (a *App) RefreshSubscription(ctx context.Context) string {
	snap := a.Session.Snapshot()
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()
	if a.refreshed != "" && a.refreshedEpoch == snap.Epoch {
		return a.refreshed
	}
	return a.reload(ctx, snap)
}

// ReloadSubscription asks the backend even if the plan was already fetched.
func (a *App) ReloadSubscription(ctx context.Context) string {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()
	return a.reload(ctx, a.Session.Snapshot())
}

func (a *App) reload(ctx context.Context, snap session.Snapshot) string {
	result := a.Fetcher.Refresh(ctx, snap)
	a.refreshed, a.refreshedEpoch = result, snap.Epoch
	return result
}

// MetricsHandler serves this app's registry.
func (a *App) MetricsHandler() http.Handler {
	return metrics.HandlerFor(a.Registry, promhttp.HandlerOpts{})
}

// Close releases storage and stops following the session.
func (a *App) Close() error {
	a.Router.Close()
	return a.KV.Close()
}
