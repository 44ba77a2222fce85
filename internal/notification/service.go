package notification

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/frahmantamala/project-console/internal"
	notificationDatamodel "github.com/frahmantamala/project-console/internal/core/datamodel/notification"
	"github.com/frahmantamala/project-console/internal/core/events"
	"github.com/frahmantamala/project-console/internal/realtime"
	"github.com/frahmantamala/project-console/pkg/logger"
)

// markAllConcurrency caps the parallel per-item read calls during
// mark-all-read so a large tray does not open hundreds of connections.
const markAllConcurrency = 8

// Service is the notification counterpart of the mail sync layer, without
// the per-view split: one list, unconditional refetch on push.
type Service struct {
	repo    RepositoryAPI
	toaster internal.Toaster
	logger  *slog.Logger

	mu    sync.Mutex
	items []notificationDatamodel.Notification
}

func NewService(repo RepositoryAPI, toaster internal.Toaster, logger *slog.Logger) *Service {
	if toaster == nil {
		toaster = internal.NopToaster()
	}
	return &Service{repo: repo, toaster: toaster, logger: logger}
}

// Notifications returns a copy of the current list.
func (s *Service) Notifications() []notificationDatamodel.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notificationDatamodel.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// UnreadCount is always derived from the list, never stored, so it cannot
// drift.
func (s *Service) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// Fetch loads the tray. COMMENT_ADDED entries are filtered at ingestion and
// never enter the list.
func (s *Service) Fetch(ctx context.Context) error {
	return s.fetch(ctx, false)
}

// fetch does the work; quiet suppresses the toast for push-triggered
// background refetches, which only log.
func (s *Service) fetch(ctx context.Context, quiet bool) error {
	raws, err := s.repo.FetchAll(ctx)
	if err != nil {
		s.logger.Warn("notification fetch failed", "error", err)
		if !quiet {
			s.toaster.Toast(toastMessage(err, "Failed to load notifications"))
		}
		return err
	}

	items := make([]notificationDatamodel.Notification, 0, len(raws))
	for _, raw := range raws {
		n := raw.Normalize()
		if n.Type == notificationDatamodel.TypeCommentAdded {
			continue
		}
		items = append(items, n)
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	s.logger.Debug("notifications loaded", "count", len(items))
	return nil
}

// MarkRead flips one entry read locally and confirms with the server. The
// local flip is optimistic and monotonic: nothing here ever flips an entry
// back to unread.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
			break
		}
	}
	s.mu.Unlock()

	if err := s.repo.MarkRead(ctx, id); err != nil {
		s.logger.Debug("mark-read confirmation failed", "notification_id", id, "error", err)
		return err
	}
	return nil
}

// MarkAllRead fires the per-item read calls in parallel, then flips the
// whole list locally regardless of individual failures; the next fetch is
// authoritative.
func (s *Service) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	unread := make([]string, 0)
	for _, n := range s.items {
		if !n.Read {
			unread = append(unread, n.ID)
		}
	}
	s.mu.Unlock()

	if len(unread) == 0 {
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(markAllConcurrency)
	for _, id := range unread {
		id := id
		group.Go(func() error {
			return s.repo.MarkRead(groupCtx, id)
		})
	}
	err := group.Wait()

	s.mu.Lock()
	for i := range s.items {
		s.items[i].Read = true
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Debug("some mark-read calls failed during mark-all", "error", err)
	}
	s.logger.Info("all notifications marked read", "count", len(unread))
	return err
}

// Delete removes one entry optimistically.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	filtered := s.items[:0:0]
	for _, n := range s.items {
		if n.ID != id {
			filtered = append(filtered, n)
		}
	}
	s.items = filtered
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Warn("notification delete failed after optimistic removal", "notification_id", id, "error", err)
		s.toaster.Toast(toastMessage(err, "Failed to delete notification"))
		return err
	}
	return nil
}

// DeleteAll clears the tray with parallel per-item deletes.
func (s *Service) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, len(s.items))
	for i, n := range s.items {
		ids[i] = n.ID
	}
	s.items = nil
	s.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(markAllConcurrency)
	for _, id := range ids {
		id := id
		group.Go(func() error {
			return s.repo.Delete(groupCtx, id)
		})
	}
	if err := group.Wait(); err != nil {
		s.logger.Warn("some deletes failed during delete-all", "error", err)
		s.toaster.Toast("Some notifications could not be deleted")
		return err
	}
	return nil
}

// Bind subscribes to notification pushes. Every push refetches
// unconditionally: there is no per-view split to guard.
func (s *Service) Bind(channel *realtime.Channel) (teardown func()) {
	return channel.Subscribe(realtime.TopicNotificationUpdate, func(ctx context.Context, _ events.Event) error {
		if err := s.fetch(ctx, true); err != nil {
			logger.From(ctx).Debug("push-triggered notification refetch failed", "error", err)
		}
		return nil
	})
}

func toastMessage(err error, fallback string) string {
	if appErr, ok := internal.IsAppError(err); ok && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
