package domain

// UserRole enumerates roles reported by the backend.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// User is the operator profile returned on login and by /auth/me.
type User struct {
	ID       string   `json:"_id,omitempty"`
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Role     UserRole `json:"role,omitempty"`
}

// IsAdmin reports whether the operator holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// ProfileUpdate is the payload accepted by PUT /auth/profile.
type ProfileUpdate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}
