// Package auth provides bearer token authentication for Pantry.
package auth

import "errors"

// Authentication errors.
var (
	// ErrMissingCredentials indicates no Authorization header was provided.
	ErrMissingCredentials = errors.New("authentication credentials were not provided")

	// ErrInvalidAuthorizationHeader indicates the Authorization header is malformed.
	ErrInvalidAuthorizationHeader = errors.New("invalid authorization header")

	// ErrInvalidToken indicates the token is unknown or revoked.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUserInactive indicates the token's owner has been deactivated.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrNotAuthenticated indicates no identity is attached to the request.
	ErrNotAuthenticated = errors.New("not authenticated")
)
