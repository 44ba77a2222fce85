package session

import "github.com/frahmantamala/project-console/internal"

// LoginDTO is the credential payload for the login endpoint.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields before any network call is made.
func (d LoginDTO) Validate() error {
	if d.Email == "" {
		return internal.NewValidationError("email is required", internal.ErrCodeMissingCredentials)
	}
	if d.Password == "" {
		return internal.NewValidationError("password is required", internal.ErrCodeMissingCredentials)
	}
	return nil
}
