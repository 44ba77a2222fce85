package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/project-console/internal"
	"github.com/frahmantamala/project-console/internal/realtime"
	"github.com/frahmantamala/project-console/pkg/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow realtime updates",
	Long:  `Join the push channel and keep mail, notifications and projects in sync until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		runWatch()
	},
}

func runWatch() {
	ctx := context.Background()
	a := authenticatedApp(ctx)
	log := logger.LoggerWrapper()

	client, err := realtime.Connect(ctx, a.cfg.Realtime.RedisURL)
	if err != nil {
		fail(fmt.Errorf("connect realtime transport: %w", err))
	}
	channel := realtime.NewChannel(client, log)
	if err := channel.Start(ctx); err != nil {
		fail(err)
	}
	defer channel.Close()

	userID := strconv.FormatInt(a.sessions.CurrentUser().ID, 10)
	ctx = internal.ContextWithUserID(logger.With(ctx, "userID", userID), userID)
	if err := channel.JoinUserRoom(ctx, userID); err != nil {
		fail(err)
	}
	defer channel.LeaveUserRoom(ctx)

	// Symmetric teardown: every subscription is undone on exit.
	unbindMail := a.mails.Bind(channel)
	defer unbindMail()
	unbindNotifications := a.notifications.Bind(channel)
	defer unbindNotifications()
	unbindProjects := a.projects.Bind(channel)
	defer unbindProjects()

	if err := a.mails.FetchInbox(ctx); err != nil {
		os.Exit(1)
	}
	if err := a.notifications.Fetch(ctx); err != nil {
		os.Exit(1)
	}
	if err := a.projects.Fetch(ctx); err != nil {
		log.Warn("initial project fetch failed", "error", err)
	}

	fmt.Printf("Watching for updates as user %s, press Ctrl+C to stop\n", userID)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("\nStopping")
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
