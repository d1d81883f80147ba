package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/centennial-infotech/portal/internal/telemetry"
	"github.com/centennial-infotech/portal/internal/ux"
)

// annotationStandalone marks commands that run without a session or backend.
const annotationStandalone = "portal/standalone"

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "Terminal client for the job portal",
	Long: `portal signs candidates and company administrators into the job portal,
keeps the session across invocations, and opens only the screens the current
session is allowed to see.

Candidates browse and apply to jobs and read notifications. Administrators
manage their subscription and, with an active plan, their job posts.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupCommand,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("config", "", "config file (default is $HOME/.portal/config.yaml)")
	f.String("log-level", "", "log level: debug, info, warn, error")
	f.String("log-format", "", "log format: text or json")
	f.String("api-url", "", "backend base URL")
	f.Bool("ephemeral", false, "keep the session in memory only")
	f.String("metrics-addr", "", "serve prometheus metrics on this address while the command runs")
	f.String("format", "text", "output format: text, json, yaml")
}

// Execute runs the root command. Cleanup runs here rather than in a
// post-run hook so it also happens when the command fails.
func Execute(ctx context.Context) error {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if state := stateFrom(cmd.Context()); state != nil {
		finishCommand(cmd, state, err)
		cmd.SetContext(ctx)
	}
	return ux.EnhanceError(err)
}

// setupCommand loads configuration and, unless the command is standalone,
// wires the application for it.
func setupCommand(cmd *cobra.Command, _ []string) error {
	cfg, loader, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	state := &commandState{config: cfg, loader: loader, started: time.Now()}
	cmd.SetContext(withState(cmd.Context(), state))
	if err := setupObservability(cmd, state); err != nil {
		return err
	}

	ctx, span := telemetry.StartCommandSpan(cmd.Context(), cmd.CommandPath())
	state.span = span
	cmd.SetContext(ctx)

	if isStandalone(cmd) {
		return nil
	}
	app, err := NewApp(ctx, cfg, AppOptions{Ephemeral: flagBool(cmd, "ephemeral")})
	if err != nil {
		return err
	}
	state.app = app
	startMetricsServer(state)
	return nil
}

func isStandalone(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationStandalone] == "true" {
			return true
		}
	}
	return false
}

func standalone() map[string]string {
	return map[string]string{annotationStandalone: "true"}
}

func flagBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
