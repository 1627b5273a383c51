package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pantrylabs/pantry/internal/pkg/crypto"
	"github.com/pantrylabs/pantry/internal/repository"
)

const sessionCacheKeyPrefix = "session:"

// ErrInvalidSession indicates a missing, expired, or forged session ID.
var ErrInvalidSession = errors.New("invalid session")

// Session is an authenticated admin console session.
type Session struct {
	ID     string `json:"-"`
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// SessionService manages admin console sessions. Sessions live in the
// cache under a random ID and expire after the configured TTL.
type SessionService struct {
	users  *UserService
	cache  repository.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(users *UserService, cache repository.Cache, ttl time.Duration, logger zerolog.Logger) *SessionService {
	return &SessionService{
		users:  users,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("service", "session").Logger(),
	}
}

// Login authenticates a staff account and opens a session. Non-staff
// accounts are rejected with ErrInvalidCredentials so the login page
// leaks nothing about which accounts exist.
func (s *SessionService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !user.CanAccessAdmin() {
		s.logger.Debug().Str("email", email).Msg("non-staff user attempted console login")
		return nil, ErrInvalidCredentials
	}

	id, err := crypto.GenerateSessionID()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate session id", ErrInternalError)
	}

	session := &Session{
		ID:     id,
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	}
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if err := s.cache.Set(ctx, sessionCacheKeyPrefix+id, data, s.ttl); err != nil {
		s.logger.Error().Err(err).Msg("failed to store session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("console session opened")
	return session, nil
}

// Validate resolves a session ID, sliding its expiry forward.
func (s *SessionService) Validate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrInvalidSession
	}

	data, err := s.cache.Get(ctx, sessionCacheKeyPrefix+id)
	if err != nil {
		if err == repository.ErrCacheMiss {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		_ = s.cache.Delete(ctx, sessionCacheKeyPrefix+id)
		return nil, ErrInvalidSession
	}
	session.ID = id

	if err := s.cache.Expire(ctx, sessionCacheKeyPrefix+id, s.ttl); err != nil {
		s.logger.Warn().Err(err).Msg("failed to slide session expiry")
	}
	return &session, nil
}

// Logout closes a session. Unknown IDs are not an error.
func (s *SessionService) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.cache.Delete(ctx, sessionCacheKeyPrefix+id)
}
