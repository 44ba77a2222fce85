package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	notificationDatamodel "github.com/frahmantamala/project-console/internal/core/datamodel/notification"
)

// RepositoryAPI is the notification slice of the backend.
type RepositoryAPI interface {
	FetchAll(ctx context.Context) ([]RawNotification, error)
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// RawNotification tolerates the endpoint's shape variance the same way the
// mail layer does: ids and flags arrive as strings, numbers or bools.
type RawNotification struct {
	ID         any    `json:"id"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Read       any    `json:"read"`
	CreatedAt  any    `json:"created_at"`
	EntityType string `json:"entity_type"`
	EntityID   any    `json:"entity_id"`
}

func (r RawNotification) Normalize() notificationDatamodel.Notification {
	return notificationDatamodel.Notification{
		ID:         flattenID(r.ID),
		Title:      r.Title,
		Message:    r.Message,
		Type:       r.Type,
		Read:       flattenBool(r.Read),
		CreatedAt:  flattenTime(r.CreatedAt),
		EntityType: r.EntityType,
		EntityID:   flattenID(r.EntityID),
	}
}

func flattenID(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return fmt.Sprintf("%.0f", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case int:
		return fmt.Sprintf("%d", val)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}

func flattenBool(v any) bool {
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

func flattenTime(v any) time.Time {
	switch val := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
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
