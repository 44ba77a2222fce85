package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Notification commands",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications",
	Run: func(cmd *cobra.Command, args []string) {
		runNotificationsList()
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read [id]",
	Short: "Mark one notification read",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runNotificationsRead(args[0])
	},
}

var notificationsReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification read",
	Run: func(cmd *cobra.Command, args []string) {
		runNotificationsReadAll()
	},
}

var notificationsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete one notification",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runNotificationsDelete(args[0])
	},
}

func runNotificationsList() {
	ctx := context.Background()
	a := authenticatedApp(ctx)

	if err := a.notifications.Fetch(ctx); err != nil {
		os.Exit(1)
	}

	items := a.notifications.Notifications()
	if len(items) == 0 {
		fmt.Println("(no notifications)")
		return
	}
	for _, n := range items {
		marker := " "
		if !n.Read {
			marker = "*"
		}
		fmt.Printf("%s %-12s %-20s %s\n", marker, n.ID, n.Type, n.Title)
	}
	fmt.Printf("\n%d unread\n", a.notifications.UnreadCount())
}

func runNotificationsRead(id string) {
	ctx := context.Background()
	a := authenticatedApp(ctx)

	if err := a.notifications.Fetch(ctx); err != nil {
		os.Exit(1)
	}
	if err := a.notifications.MarkRead(ctx, id); err != nil {
		os.Exit(1)
	}
	fmt.Println("Marked read")
}

func runNotificationsReadAll() {
	ctx := context.Background()
	a := authenticatedApp(ctx)

	if err := a.notifications.Fetch(ctx); err != nil {
		os.Exit(1)
	}
	if err := a.notifications.MarkAllRead(ctx); err != nil {
		os.Exit(1)
	}
	fmt.Println("All notifications marked read")
}

func runNotificationsDelete(id string) {
	ctx := context.Background()
	a := authenticatedApp(ctx)

	if err := a.notifications.Fetch(ctx); err != nil {
		os.Exit(1)
	}
	if err := a.notifications.Delete(ctx, id); err != nil {
		os.Exit(1)
	}
	fmt.Println("Deleted")
}

func init() {
	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)
	notificationsCmd.AddCommand(notificationsReadAllCmd)
	notificationsCmd.AddCommand(notificationsDeleteCmd)

	rootCmd.AddCommand(notificationsCmd)
}
