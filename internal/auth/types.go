// Package auth provides bearer token authentication for Pantry.
package auth

import (
	"context"
	"time"
)

// Identity describes the account a validated token belongs to.
// Returned by the TokenStore and attached to the request context.
type Identity struct {
	// UserID is the authenticated user's ID.
	UserID int64

	// Email is the user's login email.
	Email string

	// Name is the user's display name.
	Name string

	// IsStaff indicates admin console access.
	IsStaff bool

	// IsSuperuser indicates full administrative privileges.
	IsSuperuser bool
}

// TokenStore validates plaintext bearer tokens.
// Implemented by the token service; the middleware depends only on this.
type TokenStore interface {
	// ValidateToken resolves a plaintext token to the owning identity.
	// Returns ErrInvalidToken for unknown tokens and ErrUserInactive for
	// deactivated owners.
	ValidateToken(ctx context.Context, token string) (*Identity, error)
}

// AuthContext contains authentication information attached to a request.
// This is set by the auth middleware after successful authentication.
type AuthContext struct {
	// Identity is the authenticated account.
	Identity Identity

	// RequestTime is when the request was authenticated.
	RequestTime time.Time
}

// authContextKey is the context key for AuthContext.
type authContextKey struct{}

// AuthContextKey is the key used to store AuthContext in request context.
var AuthContextKey = authContextKey{}
