// Package models defines server-side data models persisted in the database.
package models

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is a stored account. PasswordHash holds a bcrypt hash; the plaintext
// password never reaches this struct.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the authenticated caller of a request. It is derived from a
// User on every request and never stored on its own.
type Identity struct {
	ID       int64
	Username string
	Email    string
	Role     string
	IsActive bool
}

// Identity projects the user onto the fields visible to authorization code.
func (u *User) Identity() *Identity {
	return &Identity{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}
