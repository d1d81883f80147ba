package telemetry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestInitProviderDisabled(t *testing.T) {
	ctx := context.Background()
	shutdown, err := InitProvider(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	_, isNoop := GetTracerProvider().(noop.TracerProvider)
	assert.True(t, isNoop, "disabled tracing should install the noop provider")
	assert.NoError(t, shutdown(ctx))
}

func TestInitProviderEnabledWithoutEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true

	ctx := context.Background()
	shutdown, err := InitProvider(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(ctx) })

	_, isSDK := GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, isSDK)
}

func TestInitProviderEnabledWithEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = "collector.example.com:4318"
	cfg.SampleRate = 0.5

	ctx := context.Background()
	shutdown, err := InitProvider(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
}

func TestShutdownWithoutProvider(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background()))
}

type flakyExporter struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakyExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error {
	if f.calls.Add(1) <= f.failures {
		return errors.New("collector unavailable")
	}
	return nil
}

func (f *flakyExporter) Shutdown(context.Context) error { return nil }

func TestRetryingExporterRecovers(t *testing.T) {
	inner := &flakyExporter{failures: 2}
	re := newRetryingExporter(inner)

	require.NoError(t, re.ExportSpans(context.Background(), nil))
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestRetryingExporterOpensBreaker(t *testing.T) {
	inner := &flakyExporter{failures: 1 << 30}
	re := newRetryingExporter(inner)
	re.maxTries = 1

	now := time.Unix(0, 0)
	re.breaker.now = func() time.Time { return now }

	for i := 0; i < breakerThreshold; i++ {
		assert.Error(t, re.ExportSpans(context.Background(), nil))
	}
	calls := inner.calls.Load()

	err := re.ExportSpans(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, calls, inner.calls.Load(), "open breaker must not call the exporter")

	now = now.Add(breakerReset + time.Second)
	assert.Error(t, re.ExportSpans(context.Background(), nil))
	assert.Equal(t, calls+1, inner.calls.Load(), "half-open breaker lets one attempt through")
}
