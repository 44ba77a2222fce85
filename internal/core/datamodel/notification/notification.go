package notification

import "time"

// TypeCommentAdded is filtered out at ingestion; comment activity is shown
// inline on the task instead of in the notification tray.
const TypeCommentAdded = "COMMENT_ADDED"

type Notification struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Type       string    `json:"type"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
}
