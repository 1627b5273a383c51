package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pantrylabs/pantry/internal/auth"
	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/metrics"
	"github.com/pantrylabs/pantry/internal/pkg/crypto"
	"github.com/pantrylabs/pantry/internal/repository"
)

// tokenCacheKeyPrefix namespaces cached token lookups.
const tokenCacheKeyPrefix = "token:"

// Authenticator verifies an email/password pair. *UserService satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}

// TokenService issues and validates opaque bearer tokens. Validated
// tokens are cached by digest so hot requests skip the database.
type TokenService struct {
	tokenRepo     repository.TokenRepository
	userRepo      repository.UserRepository
	authenticator Authenticator
	cache         repository.Cache
	cacheTTL      time.Duration
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewTokenService creates a new TokenService. The metrics collector may
// be nil when metrics are disabled.
func NewTokenService(
	tokenRepo repository.TokenRepository,
	userRepo repository.UserRepository,
	authenticator Authenticator,
	cache repository.Cache,
	cacheTTL time.Duration,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *TokenService {
	return &TokenService{
		tokenRepo:     tokenRepo,
		userRepo:      userRepo,
		authenticator: authenticator,
		cache:         cache,
		cacheTTL:      cacheTTL,
		metrics:       m,
		logger:        logger.With().Str("service", "token").Logger(),
	}
}

var _ auth.TokenStore = (*TokenService)(nil)

// cachedIdentity is the JSON shape stored in the token cache.
type cachedIdentity struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

// Issue verifies the credentials and returns a fresh plaintext token.
// The plaintext is never stored; only its digest is.
func (s *TokenService) Issue(ctx context.Context, email, password string) (string, error) {
	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}

	plaintext, err := crypto.GenerateToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate token")
		return "", fmt.Errorf("%w: failed to generate token", ErrInternalError)
	}

	token := domain.NewToken(user.ID, crypto.TokenDigest(plaintext))
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to store token")
		return "", fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("token issued")
	return plaintext, nil
}

// ValidateToken resolves a plaintext bearer token to an identity.
// Implements auth.TokenStore.
func (s *TokenService) ValidateToken(ctx context.Context, plaintext string) (*auth.Identity, error) {
	digest := crypto.TokenDigest(plaintext)
	cacheKey := tokenCacheKeyPrefix + digest

	if data, err := s.cache.Get(ctx, cacheKey); err == nil {
		var cached cachedIdentity
		if err := json.Unmarshal(data, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordTokenValidation("cache")
			}
			return &auth.Identity{
				UserID:      cached.UserID,
				Email:       cached.Email,
				Name:        cached.Name,
				IsStaff:     cached.IsStaff,
				IsSuperuser: cached.IsSuperuser,
			}, nil
		}
		// Unreadable entry: drop it and fall through to the database.
		_ = s.cache.Delete(ctx, cacheKey)
	}

	token, err := s.tokenRepo.GetByDigest(ctx, digest)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, auth.ErrInvalidToken
		}
		s.logger.Error().Err(err).Msg("failed to look up token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user, err := s.userRepo.GetByID(ctx, token.UserID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, auth.ErrInvalidToken
		}
		s.logger.Error().Err(err).Int64("user_id", token.UserID).Msg("failed to load token owner")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !user.IsActive {
		return nil, auth.ErrUserInactive
	}

	if err := s.tokenRepo.UpdateLastUsed(ctx, token.ID); err != nil {
		// Best effort; a stale last_used_at never blocks a request.
		s.logger.Warn().Err(err).Int64("token_id", token.ID).Msg("failed to update token last_used_at")
	}

	identity := &auth.Identity{
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.Name,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
	}

	if data, err := json.Marshal(cachedIdentity{
		UserID:      identity.UserID,
		Email:       identity.Email,
		Name:        identity.Name,
		IsStaff:     identity.IsStaff,
		IsSuperuser: identity.IsSuperuser,
	}); err == nil {
		if err := s.cache.Set(ctx, cacheKey, data, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache token identity")
		}
	}

	if s.metrics != nil {
		s.metrics.RecordTokenValidation("database")
	}
	return identity, nil
}

// Revoke deletes a token by its plaintext and evicts its cache entry.
func (s *TokenService) Revoke(ctx context.Context, plaintext string) error {
	digest := crypto.TokenDigest(plaintext)

	if err := s.tokenRepo.DeleteByDigest(ctx, digest); err != nil {
		if err == repository.ErrNotFound {
			return ErrTokenNotFound
		}
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.cache.Delete(ctx, tokenCacheKeyPrefix+digest); err != nil {
		s.logger.Warn().Err(err).Msg("failed to evict revoked token from cache")
	}
	return nil
}

// RevokeAllForUser deletes every token a user holds. Cache entries for
// those tokens age out within the cache TTL.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	n, err := s.tokenRepo.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if n > 0 {
		s.logger.Info().Int64("user_id", userID).Int64("count", n).Msg("tokens revoked")
	}
	return n, nil
}
