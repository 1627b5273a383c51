// Package crypto provides credential generation and hashing utilities
// for Pantry.
package crypto

import (
	"crypto/rand"
	"fmt"
)

// Character sets for token generation
const (
	// tokenChars contains characters used in bearer tokens (mixed case
	// alphanumeric, safe to carry in an Authorization header).
	tokenChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// TokenLength is the plaintext length of an issued bearer token.
	TokenLength = 40

	// SessionIDLength is the length of an admin console session ID.
	SessionIDLength = 32
)

// GenerateToken generates a random 40-character bearer token.
// The plaintext is returned to the client once; only its digest is stored.
func GenerateToken() (string, error) {
	return generateRandomString(TokenLength, tokenChars)
}

// GenerateSessionID generates a random 32-character session identifier
// for the admin console cookie.
func GenerateSessionID() (string, error) {
	return generateRandomString(SessionIDLength, tokenChars)
}

// generateRandomString generates a random string of the specified length
// using characters from the provided character set.
func generateRandomString(length int, charset string) (string, error) {
	result := make([]byte, length)
	charsetLen := len(charset)

	// Generate random bytes
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	// Map to charset
	for i := 0; i < length; i++ {
		result[i] = charset[int(randomBytes[i])%charsetLen]
	}

	return string(result), nil
}
