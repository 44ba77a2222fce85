package user

type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is the cached account record. Status is deliberately untyped: the
// backend has shipped it as a string, a number and a bool at different times,
// and normalization happens in one place (session.IsUserActive).
type User struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Role         Role     `json:"role"`
	Permissions  []string `json:"permissions"`
	Status       any      `json:"status,omitempty"`
	Avatar       string   `json:"avatar,omitempty"`
	ProfileImage string   `json:"profile_image,omitempty"`
}
