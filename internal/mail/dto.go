package mail

import (
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/project-console/internal"
	mailDatamodel "github.com/frahmantamala/project-console/internal/core/datamodel/mail"
)

// RawThread is the union of shapes the mail endpoints have been seen to
// return: ids as strings or numbers, the body under preview/content/body,
// is_read as bool, 0/1 or "true". Normalize is the single place that
// tolerance is resolved.
type RawThread struct {
	ID           any             `json:"id"`
	ThreadID     any             `json:"thread_id"`
	Subject      string          `json:"subject"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	Preview      string          `json:"preview"`
	Content      string          `json:"content"`
	Body         string          `json:"body"`
	CreatedAt    any             `json:"created_at"`
	IsRead       any             `json:"is_read"`
	IsDeleted    any             `json:"is_deleted"`
	Attachments  []RawAttachment `json:"attachments"`
	Replies      []RawReply      `json:"replies"`
	RepliesCount any             `json:"replies_count"`
}

type RawAttachment struct {
	ID       any    `json:"id"`
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
	FileSize any    `json:"file_size"`
}

type RawReply struct {
	ID        any    `json:"id"`
	From      string `json:"from"`
	Body      string `json:"body"`
	CreatedAt any    `json:"created_at"`
}

// Normalize maps a raw server record onto the canonical Thread. It is
// idempotent: a raw record built from an already-normalized thread yields
// the same thread. The display id prefers thread_id, falls back to the
// message id, and as a last resort synthesizes a timestamp-based local id
// for records carrying neither.
func (r RawThread) Normalize() mailDatamodel.Thread {
	messageID := normalizeID(r.ID)
	threadID := normalizeID(r.ThreadID)

	displayID := threadID
	if displayID == "" {
		displayID = messageID
	}
	if displayID == "" {
		displayID = fmt.Sprintf("local-%d", time.Now().UnixNano())
	}

	preview := firstNonEmpty(r.Preview, r.Content, r.Body)
	body := firstNonEmpty(r.Body, r.Content)

	thread := mailDatamodel.Thread{
		ID:           displayID,
		MessageID:    messageID,
		ThreadID:     threadID,
		Subject:      r.Subject,
		From:         r.From,
		To:           r.To,
		Preview:      preview,
		Body:         body,
		CreatedAt:    normalizeTime(r.CreatedAt),
		IsRead:       normalizeBool(r.IsRead),
		IsDeleted:    normalizeBool(r.IsDeleted),
		RepliesCount: normalizeInt(r.RepliesCount),
	}

	for _, a := range r.Attachments {
		thread.Attachments = append(thread.Attachments, mailDatamodel.Attachment{
			ID:       normalizeInt64(a.ID),
			FileName: a.FileName,
			FilePath: a.FilePath,
			FileSize: normalizeInt64(a.FileSize),
		})
	}
	for _, reply := range r.Replies {
		thread.Replies = append(thread.Replies, mailDatamodel.Reply{
			ID:        normalizeID(reply.ID),
			From:      reply.From,
			Body:      reply.Body,
			CreatedAt: normalizeTime(reply.CreatedAt),
		})
	}
	if thread.RepliesCount == 0 {
		thread.RepliesCount = len(thread.Replies)
	}

	return thread
}

// AttachmentUpload is one outgoing attachment.
type AttachmentUpload struct {
	FileName string
	Content  []byte
}

// ComposeDTO is the outgoing mail payload. With attachments it is sent as
// multipart form data, otherwise as JSON; both paths carry the same
// recipient/subject/body fields.
type ComposeDTO struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	Attachments []AttachmentUpload `json:"-"`
}

// Validate gates compose before any network call.
func (d ComposeDTO) Validate() error {
	if strings.TrimSpace(d.To) == "" {
		return internal.NewValidationError("recipient is required", internal.ErrCodeMissingRecipient)
	}
	if strings.TrimSpace(d.Subject) == "" {
		return internal.NewValidationError("subject is required", internal.ErrCodeMissingSubject)
	}
	if strings.TrimSpace(d.Body) == "" {
		return internal.NewValidationError("message body is required", internal.ErrCodeMissingBody)
	}
	return nil
}

func normalizeID(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return fmt.Sprintf("%.0f", val)
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}

func normalizeBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val == 1
	case int:
		return val == 1
	case string:
		return val == "1" || strings.EqualFold(val, "true")
	default:
		return false
	}
}

func normalizeInt(v any) int {
	return int(normalizeInt64(v))
}

func normalizeInt64(v any) int64 {
	switch val := v.(type) {
	case float64:
		return int64(val)
	case int:
		return int64(val)
	case int64:
		return val
	default:
		return 0
	}
}

func normalizeTime(v any) time.Time {
	switch val := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, val); err == nil {
				return t
			}
		}
		return time.Time{}
	case float64:
		return time.Unix(int64(val), 0)
	case time.Time:
		return val
	default:
		return time.Time{}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
