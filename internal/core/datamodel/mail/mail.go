package mail

import "time"

type Attachment struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`
}

type Reply struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Thread is the canonical mail record after normalization. ID is the display
// identifier: thread_id when the server sent one, the message id otherwise,
// and a synthesized local id as a last resort. It is the reconciliation key
// between list and detail views and stays stable across refetches of the
// same thread.
type Thread struct {
	ID           string       `json:"id"`
	MessageID    string       `json:"message_id,omitempty"`
	ThreadID     string       `json:"thread_id,omitempty"`
	Subject      string       `json:"subject"`
	From         string       `json:"from"`
	To           string       `json:"to"`
	Preview      string       `json:"preview"`
	Body         string       `json:"body,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	IsRead       bool         `json:"is_read"`
	IsDeleted    bool         `json:"is_deleted"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	Replies      []Reply      `json:"replies,omitempty"`
	RepliesCount int          `json:"replies_count"`
}

// DetailID is the identifier used for detail fetches and replies: thread_id
// wins over the message id when both exist.
func (t *Thread) DetailID() string {
	if t.ThreadID != "" {
		return t.ThreadID
	}
	return t.MessageID
}
