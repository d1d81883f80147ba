package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/centennial-infotech/portal/internal/config"
	"github.com/centennial-infotech/portal/internal/log"
	"github.com/centennial-infotech/portal/internal/metrics"
	"github.com/centennial-infotech/portal/internal/telemetry"
	"github.com/centennial-infotech/portal/internal/version"
)

// annotationLogToFile marks commands that own the terminal and must log to
// log.file instead of stderr.
const annotationLogToFile = "portal/log-to-file"

// commandState is what setupCommand prepared for the running command.
type commandState struct {
	config  *config.Config
	loader  *config.Loader
	app     *App
	started time.Time
	span    trace.Span
	cleanup []func()

	stopMetrics context.CancelFunc
}

type stateKey struct{}

func withState(ctx context.Context, s *commandState) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

func stateFrom(ctx context.Context) *commandState {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(stateKey{}).(*commandState)
	return s
}

// appFrom returns the wired application for cmd.
func appFrom(cmd *cobra.Command) (*App, error) {
	s := stateFrom(cmd.Context())
	if s == nil || s.app == nil {
		return nil, fmt.Errorf("%s: application not initialized", cmd.CommandPath())
	}
	return s.app, nil
}

// loadConfig reads configuration with the global flag overrides applied.
func loadConfig(cmd *cobra.Command) (*config.Config, *config.Loader, error) {
	loader := config.NewLoader(flagString(cmd, "config"))
	v := loader.Viper()
	for key, flag := range map[string]string{
		"api.url":      "api-url",
		"log.level":    "log-level",
		"log.format":   "log-format",
		"metrics.addr": "metrics-addr",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			v.Set(key, f.Value.String())
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

// setupObservability configures logging and tracing for the command and
// queues their teardown on s.
func setupObservability(cmd *cobra.Command, s *commandState) error {
	output := log.OutputStderr()
	if logsToFile(cmd) && s.config.Log.File != "" {
		out, err := log.OutputFile(s.config.Log.File)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		output = out
		s.cleanup = append(s.cleanup, func() {
			log.SetDefaultLogger(log.New(log.DefaultConfig()))
			_ = out.Close()
		})
	}

	log.SetDefaultLogger(log.New(log.Config{
		Level:       log.ParseLevel(s.config.Log.Level),
		Format:      log.ParseFormat(s.config.Log.Format),
		Output:      output,
		ServiceName: "portal",
	}))

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = version.GetInfo().Version
	tcfg.Enabled = s.config.Telemetry.Enabled
	tcfg.Endpoint = s.config.Telemetry.Endpoint
	tcfg.SampleRate = s.config.Telemetry.SampleRate
	shutdown, err := telemetry.InitProvider(cmd.Context(), tcfg)
	if err != nil {
		// Tracing is optional; the command still runs.
		log.DefaultLogger().WithError(err).Warn("tracing disabled")
		return nil
	}
	s.cleanup = append(s.cleanup, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	})
	return nil
}

// startMetricsServer serves the app's registry on metrics.addr, if set,
// until the command finishes.
func startMetricsServer(s *commandState) {
	addr := s.config.Metrics.Addr
	if addr == "" || s.app == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopMetrics = cancel
	go func() {
		if err := metrics.Serve(ctx, addr, s.app.MetricsHandler()); err != nil {
			s.app.Logger.WithError(err).Warn("metrics endpoint stopped", "addr", addr)
		}
	}()
}

// finishCommand records the outcome and releases everything setupCommand
// acquired. It runs once per invocation, successful or not.
func finishCommand(cmd *cobra.Command, s *commandState, err error) {
	if s.app != nil {
		s.app.Metrics.RecordCommand(cmd.CommandPath(), time.Since(s.started), err)
		if err != nil {
			s.app.Metrics.RecordError(err)
		}
	}
	if s.span != nil {
		telemetry.End(s.span, err)
	}
	if s.stopMetrics != nil {
		s.stopMetrics()
	}
	if s.app != nil {
		if cerr := s.app.Close(); cerr != nil {
			log.DefaultLogger().WithError(cerr).Warn("closing session storage failed")
		}
	}
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

func logsToFile(cmd *cobra.Command) bool {
	return cmd.Annotations[annotationLogToFile] == "true"
}
