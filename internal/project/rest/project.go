package rest

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/project-console/internal/api"
	projectDatamodel "github.com/frahmantamala/project-console/internal/core/datamodel/project"
)

type ProjectRepository struct {
	client *api.Client
	logger *slog.Logger
}

func NewProjectRepository(client *api.Client, logger *slog.Logger) *ProjectRepository {
	return &ProjectRepository{client: client, logger: logger}
}

func (r *ProjectRepository) FetchProjects(ctx context.Context) ([]projectDatamodel.Project, error) {
	var projects []projectDatamodel.Project
	if err := r.client.Get(ctx, "/projects", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepository) FetchProject(ctx context.Context, id string) (*projectDatamodel.Project, error) {
	var p projectDatamodel.Project
	if err := r.client.Get(ctx, "/projects/"+id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
