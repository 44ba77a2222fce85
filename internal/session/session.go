package session

import (
	"context"

	userDatamodel "github.com/frahmantamala/project-console/internal/core/datamodel/user"
)

// Session is the in-memory auth state. IsAuthenticated is true iff Token and
// User are both set and the user's status resolved to active; the service
// only ever swaps Token and User together.
type Session struct {
	User            *userDatamodel.User
	Token           string
	IsAuthenticated bool
	IsLoading       bool
}

// AuthAPI is the slice of the backend the session store talks to.
type AuthAPI interface {
	Login(ctx context.Context, dto LoginDTO) (LoginResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*userDatamodel.User, error)
}

type LoginResult struct {
	Token string              `json:"token"`
	User  *userDatamodel.User `json:"user"`
}

// CredentialStore is the durable side of the session: the bearer token, the
// normalized user subset and the mirrored profile image URL.
type CredentialStore interface {
	Save(token string, user *userDatamodel.User) error
	Load() (token string, user *userDatamodel.User, err error)
	Clear() error
}
