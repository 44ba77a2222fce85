package rest

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/project-console/internal/api"
	"github.com/frahmantamala/project-console/internal/notification"
)

type NotificationRepository struct {
	client *api.Client
	logger *slog.Logger
}

func NewNotificationRepository(client *api.Client, logger *slog.Logger) *NotificationRepository {
	return &NotificationRepository{client: client, logger: logger}
}

func (r *NotificationRepository) FetchAll(ctx context.Context) ([]notification.RawNotification, error) {
	var items []notification.RawNotification
	if err := r.client.Get(ctx, "/notifications", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	return r.client.Put(ctx, "/notifications/"+id+"/read", nil, nil)
}

func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, "/notifications/"+id)
}
