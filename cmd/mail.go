package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/project-console/internal/mail"
)

var mailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Mail commands",
	Long:  `Read, send, reply to and delete mail threads.`,
}

var mailInboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List inbox threads",
	Run: func(cmd *cobra.Command, args []string) {
		runMailList(mail.ViewInbox)
	},
}

var mailSentCmd = &cobra.Command{
	Use:   "sent",
	Short: "List sent threads",
	Run: func(cmd *cobra.Command, args []string) {
		runMailList(mail.ViewSent)
	},
}

var mailAllCmd = &cobra.Command{
	Use:   "all",
	Short: "List all mail (admin)",
	Run: func(cmd *cobra.Command, args []string) {
		runMailList(mail.ViewAll)
	},
}

var mailShowCmd = &cobra.Command{
	Use:   "show [thread-id]",
	Short: "Open a thread from the inbox",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runMailShow(args[0])
	},
}

var (
	sendTo          string
	sendSubject     string
	sendBody        string
	sendAttachments []string
)

var mailSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Compose and send a mail",
	Run: func(cmd *cobra.Command, args []string) {
		runMailSend()
	},
}

var mailReplyCmd = &cobra.Command{
	Use:   "reply [thread-id] [body]",
	Short: "Reply to a thread in the inbox",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runMailReply(args[0], args[1])
	},
}

var mailDeleteCmd = &cobra.Command{
	Use:   "delete [thread-id]",
	Short: "Delete a thread",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runMailDelete(args[0])
	},
}

func authenticatedApp(ctx context.Context) *app {
	a, err := buildApp()
	if err != nil {
		fail(err)
	}
	a.sessions.Initialize(ctx)
	if !a.sessions.IsAuthenticated() {
		fail(errors.New("not signed in, run `project-console login` first"))
	}
	return a
}

func runMailList(view mail.View) {
	ctx := context.Background()
	a := authenticatedApp(ctx)

	var err error
	switch view {
	case mail.ViewSent:
		err = a.mails.FetchSent(ctx)
	case mail.ViewAll:
		err = a.mails.FetchAll(ctx)
	default:
		err = a.mails.FetchInbox(ctx)
	}
	if err != nil {
		os.Exit(1)
	}

	threads := a.mails.Threads(view)
	if len(threads) == 0 {
		fmt.Println("(empty)")
		return
	}
	for _, t := range threads {
		marker := " "
		if !t.IsRead && view == mail.ViewInbox {
			marker = "*"
		}
		fmt.Printf("%s %-12s %-28s %s\n", marker, t.ID, t.From, t.Subject)
	}
}

func runMailShow(threadID string) {
	ctx := context.Background()
	a := authenticatedApp(ctx)

	if err := a.mails.FetchInbox(ctx); err != nil {
		os.Exit(1)
	}
	if err := a.mails.SelectThread(ctx, threadID); err != nil {
		fail(err)
	}

	t := a.mails.Selected()
	if t == nil {
		fail(errors.New("thread not found"))
	}
	fmt.Printf("From:    %s\n", t.From)
	fmt.Printf("To:      %s\n", t.To)
	fmt.Printf("Subject: %s\n", t.Subject)
	fmt.Printf("Date:    %s\n\n", t.CreatedAt.Format("2006-01-02 15:04"))
	if t.Body != "" {
		fmt.Println(t.Body)
	} else {
		fmt.Println(t.Preview)
	}
	for _, attachment := range t.Attachments {
		fmt.Printf("\n[attachment] %s (%d bytes) %s\n", attachment.FileName, attachment.FileSize, a.client.ImageURL(attachment.FilePath))
	}
	for _, reply := range t.Replies {
		fmt.Printf("\n--- reply from %s at %s ---\n%s\n", reply.From, reply.CreatedAt.Format("2006-01-02 15:04"), reply.Body)
	}
}

func runMailSend() {
	ctx := context.Background()
	a := authenticatedApp(ctx)

	dto := mail.ComposeDTO{To: sendTo, Subject: sendSubject, Body: sendBody}
	for _, path := range sendAttachments {
		content, err := os.ReadFile(path)
		if err != nil {
			fail(fmt.Errorf("read attachment %s: %w", path, err))
		}
		dto.Attachments = append(dto.Attachments, mail.AttachmentUpload{
			FileName: filepath.Base(path),
			Content:  content,
		})
	}

	if err := a.mails.ComposeAndSend(ctx, dto); err != nil {
		os.Exit(1)
	}
	fmt.Println("Sent")
}

func runMailReply(threadID, body string) {
	ctx := context.Background()
	a := authenticatedApp(ctx)

	if err := a.mails.FetchInbox(ctx); err != nil {
		os.Exit(1)
	}
	if err := a.mails.SendReply(ctx, threadID, body); err != nil {
		os.Exit(1)
	}
	fmt.Println("Reply sent")
}

func runMailDelete(threadID string) {
	ctx := context.Background()
	a := authenticatedApp(ctx)

	if err := a.mails.FetchInbox(ctx); err != nil {
		os.Exit(1)
	}
	if err := a.mails.DeleteThread(ctx, threadID); err != nil {
		os.Exit(1)
	}
	fmt.Println("Deleted")
}

func init() {
	mailSendCmd.Flags().StringVar(&sendTo, "to", "", "Recipient")
	mailSendCmd.Flags().StringVar(&sendSubject, "subject", "", "Subject")
	mailSendCmd.Flags().StringVar(&sendBody, "body", "", "Message body")
	mailSendCmd.Flags().StringSliceVar(&sendAttachments, "attach", nil, "Attachment file paths")

	mailCmd.AddCommand(mailInboxCmd)
	mailCmd.AddCommand(mailSentCmd)
	mailCmd.AddCommand(mailAllCmd)
	mailCmd.AddCommand(mailShowCmd)
	mailCmd.AddCommand(mailSendCmd)
	mailCmd.AddCommand(mailReplyCmd)
	mailCmd.AddCommand(mailDeleteCmd)

	rootCmd.AddCommand(mailCmd)
}
