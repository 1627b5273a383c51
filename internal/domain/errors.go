// Package domain contains the core business entities for Pantry.
package domain

import "errors"

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).
// The service layer owns the request-level sentinels; only the errors
// raised by the entities themselves live here.

var (
	// ErrUserAlreadyExists indicates a user with the same email exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrBlobNotFound indicates the requested image blob does not exist.
	ErrBlobNotFound = errors.New("blob not found")
)
