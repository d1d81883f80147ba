package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/centennial-infotech/portal/internal/errors"
	"github.com/centennial-infotech/portal/internal/health"
	"github.com/centennial-infotech/portal/internal/ux"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the backend, session storage and session state",
	Long: `Run diagnostics for everything the client depends on. Exits non-zero
when any check is unhealthy.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// doctorReport is the outcome of every check.
type doctorReport struct {
	Status health.Status             `json:"status" yaml:"status"`
	Checks map[string]*health.Result `json:"checks" yaml:"checks"`
}

func (r doctorReport) WriteText(w io.Writer) error {
	names := make([]string, 0, len(r.Checks))
	for name := range r.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		c := r.Checks[name]
		rows = append(rows, []string{name, c.Status.String(), c.Message, c.Latency.Round(time.Millisecond).String()})
	}
	if err := ux.Table(w, []string{"CHECK", "STATUS", "MESSAGE", "LATENCY"}, rows, "no checks"); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Overall: %s\n", r.Status)
	return err
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	backend := app.Config.Storage.Backend
	if flagBool(cmd, "ephemeral") {
		backend = "memory"
	}

	m := health.NewManager(
		health.NewBackendChecker(app.Client),
		health.NewStorageChecker(app.KV, backend),
		health.NewSessionChecker(app.Session.Snapshot),
	).WithTimeout(app.Config.API.Timeout)

	results := m.Check(cmd.Context())
	report := doctorReport{Status: health.OverallStatus(results), Checks: results}
	if err := printResult(cmd, report); err != nil {
		return err
	}
	switch {
	case results["backend"].Status == health.StatusUnhealthy:
		return errors.NewAPIUnavailableError(app.Client.BaseURL(), checkErr(results["backend"]))
	case results["session-storage"].Status == health.StatusUnhealthy:
		return errors.NewStorageError(backend, checkErr(results["session-storage"]))
	}
	return nil
}

func checkErr(r *health.Result) error {
	if detail, ok := r.Details["error"]; ok {
		return fmt.Errorf("%s: %v", r.Message, detail)
	}
	return stderrors.New(r.Message)
}
