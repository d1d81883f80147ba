package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/centennial-infotech/portal/internal/api"
	"github.com/centennial-infotech/portal/internal/router"
	"github.com/centennial-infotech/portal/internal/ux"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Read job notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications, newest first",
	Args:  cobra.NoArgs,
	RunE:  runNotificationsList,
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <notification-id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotificationsRead,
}

var notificationsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll for notifications and print unread counts until interrupted",
	Long: `Poll the backend on notifications.interval and print the unread count
whenever it changes. Stops on Ctrl+C or when the session ends.`,
	Args: cobra.NoArgs,
	RunE: runNotificationsWatch,
}

func init() {
	notificationsListCmd.Flags().Bool("unread", false, "only unread notifications")
	notificationsCmd.AddCommand(notificationsListCmd, notificationsReadCmd, notificationsWatchCmd)
	rootCmd.AddCommand(notificationsCmd)
}

type notificationList []api.Notification

func (l notificationList) WriteText(w io.Writer) error {
	rows := make([][]string, 0, len(l))
	for _, n := range l {
		mark := "*"
		if n.IsRead {
			mark = ""
		}
		job := n.Job.ID
		if n.Job.Post != nil {
			job = n.Job.Post.Title
		}
		rows = append(rows, []string{mark, n.ID, n.Message, job, date(n.CreatedAt)})
	}
	return ux.Table(w, []string{"", "ID", "MESSAGE", "JOB", "DATE"}, rows, "No notifications")
}

func runNotificationsList(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if _, err := requireRoute(cmd.Context(), app, "/notifications"); err != nil {
		return err
	}
	if err := app.Feed.Poll(cmd.Context()); err != nil {
		return err
	}
	items := app.Feed.Items()
	if flagBool(cmd, "unread") {
		unread := items[:0:0]
		for _, n := range items {
			if !n.IsRead {
				unread = append(unread, n)
			}
		}
		items = unread
	}
	return printResult(cmd, notificationList(items))
}

func runNotificationsRead(cmd *cobra.Command, args []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if _, err := requireRoute(ctx, app, "/notifications"); err != nil {
		return err
	}
	if err := app.Feed.Poll(ctx); err != nil {
		return err
	}
	if err := app.Feed.MarkRead(ctx, args[0]); err != nil {
		return err
	}
	return printResult(cmd, messageResult{Message: fmt.Sprintf("Marked %s as read (%d unread)", args[0], app.Feed.Unread())})
}

// unreadEvent is one line of watch output.
type unreadEvent struct {
	Unread int `json:"unread" yaml:"unread"`
	Total  int `json:"total" yaml:"total"`
}

func (e unreadEvent) String() string {
	return fmt.Sprintf("%d unread of %d", e.Unread, e.Total)
}

func runNotificationsWatch(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if _, err := requireRoute(cmd.Context(), app, "/notifications"); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// The watch ends when the session does, e.g. after a forced logout.
	unsubscribe := app.Router.OnNavigate(func(loc router.Location) {
		if loc.Path != "/notifications" {
			cancel()
		}
	})
	defer unsubscribe()

	var (
		mu   sync.Mutex
		last = -1
	)
	stopFeed := app.Feed.OnChange(func() {
		ev := unreadEvent{Unread: app.Feed.Unread(), Total: len(app.Feed.Items())}
		mu.Lock()
		defer mu.Unlock()
		if ev.Unread == last {
			return
		}
		last = ev.Unread
		if err := printResult(cmd, ev); err != nil {
			app.Logger.WithError(err).Warn("write failed")
		}
	})
	defer stopFeed()

	app.Feed.Run(ctx)
	return nil
}
