package mail

import (
	"context"
)

// View is one of the three mail lists the console displays.
type View string

const (
	ViewInbox View = "inbox"
	ViewSent  View = "sent"
	ViewAll   View = "all"
)

// Phase is the fetch state of one view. Failures never regress a Ready view
// to Idle: the stale list stays visible.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
)

// RepositoryAPI is the mail slice of the backend. Fetches return raw shapes;
// normalization happens in the service at one boundary.
type RepositoryAPI interface {
	FetchInbox(ctx context.Context) ([]RawThread, error)
	FetchSent(ctx context.Context) ([]RawThread, error)
	FetchAll(ctx context.Context) ([]RawThread, error)
	FetchThread(ctx context.Context, threadID string) (*RawThread, error)
	Send(ctx context.Context, dto ComposeDTO) error
	Reply(ctx context.Context, threadID, body string) error
	MarkRead(ctx context.Context, mailID string) error
	Delete(ctx context.Context, mailID string) error
}

// Gate is the permission surface the mail service consults before
// destructive operations.
type Gate interface {
	CanDeleteMail() bool
}
