package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/centennial-infotech/portal/internal/errors"
)

// Metrics holds all Prometheus metrics for the portal client.
// Every method is safe to call on a nil *Metrics.
type Metrics struct {
	// Command execution metrics
	CommandExecutions *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec

	// Backend API metrics
	APIRequests        *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Route guard metrics
	GuardDecisions *prometheus.CounterVec

	// Session metrics
	AccessLevel   *prometheus.GaugeVec
	ForcedReauths prometheus.Counter

	// Enrichment metrics
	SubscriptionRefreshes *prometheus.CounterVec
	NotificationPolls     *prometheus.CounterVec
	NotificationsUnread   prometheus.Gauge

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// AccessLevels are the label values of AccessLevel.
var AccessLevels = []string{"guest", "standard-user", "admin-no-plan", "admin-active"}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		CommandExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_command_executions_total",
				Help: "Total number of command executions",
			},
			[]string{"command", "success"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_command_duration_seconds",
				Help:    "Command execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),

		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_api_requests_total",
				Help: "Total number of backend API requests",
			},
			[]string{"op", "method", "status"},
		),
		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_api_request_duration_seconds",
				Help:    "Backend API request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"op"},
		),

		GuardDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_guard_decisions_total",
				Help: "Route guard decisions by route pattern and outcome",
			},
			[]string{"route", "outcome", "target"},
		),

		AccessLevel: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "portal_session_access_level",
				Help: "1 for the current effective access level, 0 otherwise",
			},
			[]string{"level"},
		),
		ForcedReauths: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_forced_reauth_total",
				Help: "Sessions ended by the backend with a redirect",
			},
		),

		SubscriptionRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_subscription_refreshes_total",
				Help: "Subscription status fetches by result",
			},
			[]string{"result"},
		),
		NotificationPolls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_notification_polls_total",
				Help: "Notification feed polls by result",
			},
			[]string{"result"},
		),
		NotificationsUnread: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "portal_notifications_unread",
				Help: "Unread notifications in the last successful poll",
			},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code"},
		),
	}
}

// RecordCommand records one CLI command run.
func (m *Metrics) RecordCommand(command string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.CommandExecutions.WithLabelValues(command, strconv.FormatBool(err == nil)).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
	if err != nil {
		m.RecordError(err)
	}
}

// RecordError counts err under its error code, or "unknown".
func (m *Metrics) RecordError(err error) {
	if m == nil || err == nil {
		return
	}
	code := string(errors.CodeOf(err))
	if code == "" {
		code = "unknown"
	}
	m.Errors.WithLabelValues(code).Inc()
}

// ObserveRequest records a backend request. status 0 means no response.
func (m *Metrics) ObserveRequest(op, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.APIRequests.WithLabelValues(op, method, label).Inc()
	m.APIRequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// RecordGuard records a guard decision. target is empty when allowed.
func (m *Metrics) RecordGuard(route, target string) {
	if m == nil {
		return
	}
	outcome := "allow"
	if target != "" {
		outcome = "redirect"
	}
	m.GuardDecisions.WithLabelValues(route, outcome, target).Inc()
}

// SetAccessLevel marks level as the current access level.
func (m *Metrics) SetAccessLevel(level string) {
	if m == nil {
		return
	}
	for _, l := range AccessLevels {
		v := 0.0
		if l == level {
			v = 1
		}
		m.AccessLevel.WithLabelValues(l).Set(v)
	}
}

// RecordForcedReauth counts a session ended by the backend.
func (m *Metrics) RecordForcedReauth() {
	if m == nil {
		return
	}
	m.ForcedReauths.Inc()
}

// RecordSubscriptionRefresh counts a subscription fetch outcome.
func (m *Metrics) RecordSubscriptionRefresh(result string) {
	if m == nil {
		return
	}
	m.SubscriptionRefreshes.WithLabelValues(result).Inc()
}

// RecordNotificationPoll counts a poll outcome and, on success, the unread count.
func (m *Metrics) RecordNotificationPoll(err error, unread int) {
	if m == nil {
		return
	}
	if err != nil {
		m.NotificationPolls.WithLabelValues("error").Inc()
		return
	}
	m.NotificationPolls.WithLabelValues("ok").Inc()
	m.NotificationsUnread.Set(float64(unread))
}
