package metrics

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/centennial-infotech/portal/internal/errors"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if m == nil {
		t.Fatal("expected metrics, got nil")
	}

	tests := []struct {
		name   string
		metric interface{}
	}{
		{"CommandExecutions", m.CommandExecutions},
		{"CommandDuration", m.CommandDuration},
		{"APIRequests", m.APIRequests},
		{"APIRequestDuration", m.APIRequestDuration},
		{"GuardDecisions", m.GuardDecisions},
		{"AccessLevel", m.AccessLevel},
		{"ForcedReauths", m.ForcedReauths},
		{"SubscriptionRefreshes", m.SubscriptionRefreshes},
		{"NotificationPolls", m.NotificationPolls},
		{"NotificationsUnread", m.NotificationsUnread},
		{"Errors", m.Errors},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestRecordCommand(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordCommand("status", 20*time.Millisecond, nil)
	m.RecordCommand("login", time.Second, errors.NewInvalidCredentialsError(""))

	if got := testutil.ToFloat64(m.CommandExecutions.WithLabelValues("status", "true")); got != 1 {
		t.Errorf("CommandExecutions status/true = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CommandExecutions.WithLabelValues("login", "false")); got != 1 {
		t.Errorf("CommandExecutions login/false = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Errors.WithLabelValues("AUTH-001")); got != 1 {
		t.Errorf("Errors AUTH-001 = %v, want 1", got)
	}
}

func TestRecordErrorUnknownCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordError(stderrors.New("boom"))

	if got := testutil.ToFloat64(m.Errors.WithLabelValues("unknown")); got != 1 {
		t.Errorf("Errors unknown = %v, want 1", got)
	}
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveRequest("jobs", "GET", 200, 100*time.Millisecond)
	m.ObserveRequest("jobs", "GET", 0, time.Second)

	if got := testutil.ToFloat64(m.APIRequests.WithLabelValues("jobs", "GET", "200")); got != 1 {
		t.Errorf("APIRequests 200 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.APIRequests.WithLabelValues("jobs", "GET", "error")); got != 1 {
		t.Errorf("APIRequests error = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.APIRequestDuration); got != 1 {
		t.Errorf("APIRequestDuration series = %v, want 1", got)
	}
}

func TestRecordGuard(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordGuard("/admin/job-posts", "/subscription")
	m.RecordGuard("/profile", "")

	if got := testutil.ToFloat64(m.GuardDecisions.WithLabelValues("/admin/job-posts", "redirect", "/subscription")); got != 1 {
		t.Errorf("redirect = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GuardDecisions.WithLabelValues("/profile", "allow", "")); got != 1 {
		t.Errorf("allow = %v, want 1", got)
	}
}

func TestSetAccessLevel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetAccessLevel("admin-active")
	m.SetAccessLevel("guest")

	if got := testutil.ToFloat64(m.AccessLevel.WithLabelValues("guest")); got != 1 {
		t.Errorf("guest = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AccessLevel.WithLabelValues("admin-active")); got != 0 {
		t.Errorf("admin-active = %v, want 0", got)
	}
}

func TestEnrichmentMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordSubscriptionRefresh("active")
	m.RecordNotificationPoll(nil, 3)
	m.RecordNotificationPoll(stderrors.New("timeout"), 0)
	m.RecordForcedReauth()

	if got := testutil.ToFloat64(m.SubscriptionRefreshes.WithLabelValues("active")); got != 1 {
		t.Errorf("SubscriptionRefreshes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.NotificationsUnread); got != 3 {
		t.Errorf("NotificationsUnread = %v, want 3 (failed poll must not reset it)", got)
	}
	if got := testutil.ToFloat64(m.NotificationPolls.WithLabelValues("error")); got != 1 {
		t.Errorf("NotificationPolls error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ForcedReauths); got != 1 {
		t.Errorf("ForcedReauths = %v, want 1", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.RecordCommand("x", time.Second, stderrors.New("x"))
	m.ObserveRequest("x", "GET", 200, time.Second)
	m.RecordGuard("/", "")
	m.SetAccessLevel("guest")
	m.RecordForcedReauth()
	m.RecordSubscriptionRefresh("none")
	m.RecordNotificationPoll(nil, 1)
}

func TestMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordGuard("/jobs", "/login")

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %v, want %v", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `portal_guard_decisions_total{outcome="redirect",route="/jobs",target="/login"} 1`) {
		t.Errorf("exported metrics missing guard decision:\n%s", w.Body.String())
	}
}
