package rest

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/project-console/internal/api"
	userDatamodel "github.com/frahmantamala/project-console/internal/core/datamodel/user"
	"github.com/frahmantamala/project-console/internal/session"
)

// AuthRepository maps the session store's needs onto the auth endpoints.
type AuthRepository struct {
	client *api.Client
	logger *slog.Logger
}

func NewAuthRepository(client *api.Client, logger *slog.Logger) *AuthRepository {
	return &AuthRepository{client: client, logger: logger}
}

func (r *AuthRepository) Login(ctx context.Context, dto session.LoginDTO) (session.LoginResult, error) {
	var result session.LoginResult
	if err := r.client.Post(ctx, "/auth/login", dto, &result); err != nil {
		return session.LoginResult{}, err
	}
	return result, nil
}

func (r *AuthRepository) Logout(ctx context.Context) error {
	return r.client.Post(ctx, "/auth/logout", nil, nil)
}

func (r *AuthRepository) Me(ctx context.Context) (*userDatamodel.User, error) {
	var u userDatamodel.User
	if err := r.client.Get(ctx, "/auth/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}
