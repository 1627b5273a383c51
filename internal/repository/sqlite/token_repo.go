package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/repository"
)

// tokenRepository implements repository.TokenRepository for SQLite.
type tokenRepository struct {
	db *DB
}

// NewTokenRepository creates a new SQLite token repository.
func NewTokenRepository(db *DB) repository.TokenRepository {
	return &tokenRepository{db: db}
}

// Create stores a new token row.
func (r *tokenRepository) Create(ctx context.Context, token *domain.Token) error {
	query := `
		INSERT INTO tokens (user_id, digest, created_at, last_used_at)
		VALUES (?, ?, ?, NULL)
	`

	result, err := r.db.ExecContext(ctx, query,
		token.UserID,
		token.Digest,
		token.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	token.ID = id

	return nil
}

// GetByDigest retrieves a token by its SHA-256 digest.
func (r *tokenRepository) GetByDigest(ctx context.Context, digest string) (*domain.Token, error) {
	query := `
		SELECT id, user_id, digest, created_at, last_used_at
		FROM tokens
		WHERE digest = ?
	`

	token := &domain.Token{}
	var createdAt string
	var lastUsedAt sql.NullString

	err := r.db.QueryRowContext(ctx, query, digest).Scan(
		&token.ID,
		&token.UserID,
		&token.Digest,
		&createdAt,
		&lastUsedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get token by digest: %w", err)
	}

	token.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if lastUsedAt.Valid {
		t, _ := time.Parse(time.RFC3339, lastUsedAt.String)
		token.LastUsedAt = &t
	}

	return token, nil
}

// UpdateLastUsed updates the last_used_at timestamp.
func (r *tokenRepository) UpdateLastUsed(ctx context.Context, id int64) error {
	query := `UPDATE tokens SET last_used_at = ? WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update token last_used_at: %w", err)
	}
	return nil
}

// DeleteByDigest deletes a token by digest.
func (r *tokenRepository) DeleteByDigest(ctx context.Context, digest string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE digest = ?`, digest)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteByUserID deletes all tokens for a user.
func (r *tokenRepository) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user tokens: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

// Ensure tokenRepository implements repository.TokenRepository.
var _ repository.TokenRepository = (*tokenRepository)(nil)
