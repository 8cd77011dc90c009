package types

import (
	"strings"
	"time"
)

// Role is the authorization level carried in access tokens.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole normalizes raw to a known role.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case RoleAdmin, RoleUser:
		return role, true
	default:
		return "", false
	}
}

// User represents an account that can authenticate against the API.
type User struct {
	// ID is the store-assigned identifier of the user.
	ID string `json:"id" db:"id"`

	// Email is the unique login name of the user.
	Email string `json:"email" db:"email"`

	// Name is the optional display name.
	Name string `json:"name,omitempty" db:"name"`

	// Role indicates the user's authorization level.
	Role Role `json:"role" db:"role"`

	// ProfilePicture is an optional reference into the blob store.
	ProfilePicture string `json:"profilePicture,omitempty" db:"profile_picture"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Employees lists the employee records owned by the user, when loaded.
	Employees []Employee `json:"employees,omitempty" db:"-"`
}
