// Package domain contains the core business entities for Pantry.
package domain

import (
	"time"
)

// Token represents an opaque bearer credential issued after a successful
// password verification. Only the SHA-256 digest of the token is stored;
// the plaintext is returned to the client exactly once.
type Token struct {
	// ID is the unique identifier for the token row (auto-generated).
	ID int64 `json:"id"`

	// UserID is the owner of the token.
	UserID int64 `json:"user_id"`

	// Digest is the hex-encoded SHA-256 digest of the plaintext token.
	Digest string `json:"-"`

	// CreatedAt is the timestamp when the token was issued.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is the timestamp of the most recent authenticated
	// request, nil if the token has never been used.
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// NewToken creates a Token row for the given user and digest.
func NewToken(userID int64, digest string) *Token {
	return &Token{
		UserID:    userID,
		Digest:    digest,
		CreatedAt: time.Now().UTC(),
	}
}
