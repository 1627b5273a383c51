// Package domain contains the core business entities for Pantry.
// These are pure Go structs with no external dependencies beyond value
// types, representing the fundamental concepts of the recipe catalog.
package domain

import (
	"time"
)

// User represents a registered account in the system.
// Users own recipes, tags, and ingredients; the email address is the
// unique login identifier.
type User struct {
	// ID is the unique identifier for the user (auto-generated).
	ID int64 `json:"id"`

	// Email is the unique email address used for login.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This must never be exposed in API responses.
	PasswordHash string `json:"-"`

	// Name is the optional display name.
	Name string `json:"name"`

	// IsActive indicates whether the account is active.
	// Inactive users cannot authenticate or perform any operations.
	IsActive bool `json:"is_active"`

	// IsStaff indicates whether the user may access the admin console.
	IsStaff bool `json:"is_staff"`

	// IsSuperuser indicates whether the user has full administrative
	// privileges.
	IsSuperuser bool `json:"is_superuser"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with default values.
func NewUser(email, passwordHash, name string) *User {
	now := time.Now().UTC()
	return &User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		IsActive:     true,
		IsStaff:      false,
		IsSuperuser:  false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewSuperuser creates a new User with staff and superuser privileges.
func NewSuperuser(email, passwordHash string) *User {
	u := NewUser(email, passwordHash, "")
	u.IsStaff = true
	u.IsSuperuser = true
	return u
}

// CanAuthenticate returns true if the user is allowed to authenticate.
func (u *User) CanAuthenticate() bool {
	return u.IsActive
}

// CanAccessAdmin returns true if the user may use the admin console.
func (u *User) CanAccessAdmin() bool {
	return u.IsActive && u.IsStaff
}
