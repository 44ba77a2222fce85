package project

import (
	"context"
	"log/slog"
	"sync"
	"time"

	projectDatamodel "github.com/frahmantamala/project-console/internal/core/datamodel/project"
	"github.com/frahmantamala/project-console/internal/core/events"
	"github.com/frahmantamala/project-console/internal/realtime"
)

// RepositoryAPI is the project slice of the backend.
type RepositoryAPI interface {
	FetchProjects(ctx context.Context) ([]projectDatamodel.Project, error)
	FetchProject(ctx context.Context, id string) (*projectDatamodel.Project, error)
}

// statusColors drives the calendar projection. Unknown statuses fall back
// to the default color rather than being dropped.
var statusColors = map[string]string{
	"planned":     "#6b7280",
	"active":      "#2563eb",
	"in_progress": "#2563eb",
	"on_hold":     "#f59e0b",
	"completed":   "#16a34a",
	"cancelled":   "#dc2626",
}

const defaultEventColor = "#6b7280"

// Service caches the project list and keeps it fresh against
// project-assignment pushes.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger

	mu       sync.Mutex
	projects []projectDatamodel.Project
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Projects() []projectDatamodel.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]projectDatamodel.Project, len(s.projects))
	copy(out, s.projects)
	return out
}

func (s *Service) Fetch(ctx context.Context) error {
	projects, err := s.repo.FetchProjects(ctx)
	if err != nil {
		s.logger.Warn("project fetch failed", "error", err)
		return err
	}

	s.mu.Lock()
	s.projects = projects
	s.mu.Unlock()

	s.logger.Debug("projects loaded", "count", len(projects))
	return nil
}

// CalendarEvents projects the cached project records into calendar view
// models. The projection is rebuilt on every call and never mutated in
// place.
func (s *Service) CalendarEvents() []projectDatamodel.CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]projectDatamodel.CalendarEvent, 0, len(s.projects))
	for _, p := range s.projects {
		if p.StartDate == nil {
			continue
		}
		end := p.StartDate.Add(24 * time.Hour)
		if p.EndDate != nil {
			end = *p.EndDate
		}
		color, ok := statusColors[p.Status]
		if !ok {
			color = defaultEventColor
		}
		out = append(out, projectDatamodel.CalendarEvent{
			ID:    p.ID,
			Title: p.Name,
			Start: *p.StartDate,
			End:   end,
			Color: color,
		})
	}
	return out
}

// Bind subscribes to project-assignment pushes. A push carrying a project id
// refreshes just that project; one without an id refetches the whole list.
func (s *Service) Bind(channel *realtime.Channel) (teardown func()) {
	return channel.Subscribe(realtime.TopicProjectAssignment, func(ctx context.Context, event events.Event) error {
		projectID := ""
		if base, ok := event.(events.BaseEvent); ok {
			projectID = base.StringField("project_id")
		}
		if projectID == "" {
			if err := s.Fetch(ctx); err != nil {
				s.logger.Debug("push-triggered project refetch failed", "error", err)
			}
			return nil
		}
		s.refreshOne(ctx, projectID)
		return nil
	})
}

func (s *Service) refreshOne(ctx context.Context, id string) {
	fresh, err := s.repo.FetchProject(ctx, id)
	if err != nil {
		s.logger.Debug("scoped project refresh failed", "project_id", id, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.projects {
		if s.projects[i].ID == fresh.ID {
			s.projects[i] = *fresh
			return
		}
	}
	s.projects = append(s.projects, *fresh)
}
