package cmd

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/centennial-infotech/portal/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [path]",
	Short: "Open the interactive client",
	Long: `Open the full-screen client at path (default: the home page for the
current session). Logs go to log.file while it runs.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{annotationLogToFile: "true"},
	RunE:        runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	start := "/"
	if len(args) == 1 {
		start = args[0]
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.Fetcher.Watch(ctx)
	}()
	go func() {
		defer wg.Done()
		app.Feed.Run(ctx)
	}()

	return tui.Run(ctx, tui.Deps{
		Session: app.Session,
		Router:  app.Router,
		Shell:   app.Shell,
		Auth:    app.Auth,
		Backend: app.Client,
		Feed:    app.Feed,
	}, start)
}
