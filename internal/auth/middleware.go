// Package auth provides bearer token authentication for Pantry.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config contains configuration for the auth middleware.
type Config struct {
	// SkipPaths are paths that skip authentication.
	SkipPaths []string
}

// DefaultConfig returns the default auth configuration.
func DefaultConfig() Config {
	return Config{
		SkipPaths: []string{"/health", "/api/user/create", "/api/user/token"},
	}
}

// Middleware creates an authentication middleware. Requests carrying a
// valid "Token <key>" (or "Bearer <key>") Authorization header proceed
// with the owning identity in the request context; everything else gets
// a 401.
func Middleware(store TokenStore, config Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check if path should skip authentication
			for _, path := range config.SkipPaths {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}

			token, err := extractToken(r)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			identity, err := store.ValidateToken(r.Context(), token)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("token authentication failed")
				writeAuthError(w, err)
				return
			}

			authCtx := &AuthContext{
				Identity:    *identity,
				RequestTime: time.Now().UTC(),
			}
			r = r.WithContext(context.WithValue(r.Context(), AuthContextKey, authCtx))

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken pulls the plaintext token out of the Authorization header.
func extractToken(r *http.Request) (string, error) {
	header := r.Header.Get(AuthorizationHeader)
	if header == "" {
		return "", ErrMissingCredentials
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", ErrInvalidAuthorizationHeader
	}

	switch parts[0] {
	case SchemeToken, SchemeBearer:
		return parts[1], nil
	default:
		return "", ErrInvalidAuthorizationHeader
	}
}

// writeAuthError writes a 401 JSON error response.
func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": err.Error()})
}

// GetAuthContext retrieves the AuthContext from a request context.
func GetAuthContext(ctx context.Context) *AuthContext {
	if authCtx, ok := ctx.Value(AuthContextKey).(*AuthContext); ok {
		return authCtx
	}
	return nil
}

// RequireAuth is a helper to get the auth context or return an error.
func RequireAuth(ctx context.Context) (*AuthContext, error) {
	authCtx := GetAuthContext(ctx)
	if authCtx == nil {
		return nil, ErrNotAuthenticated
	}
	return authCtx, nil
}
