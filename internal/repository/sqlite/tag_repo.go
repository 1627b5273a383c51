package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/repository"
)

// tagRepository implements repository.TagRepository for SQLite.
type tagRepository struct {
	db *DB
}

// NewTagRepository creates a new SQLite tag repository.
func NewTagRepository(db *DB) repository.TagRepository {
	return &tagRepository{db: db}
}

// Create inserts a new tag for a user.
func (r *tagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	query := `INSERT INTO tags (user_id, name, created_at) VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		tag.UserID,
		tag.Name,
		tag.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create tag: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	tag.ID = id

	return nil
}

// GetByID retrieves a tag owned by the given user.
func (r *tagRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Tag, error) {
	query := `SELECT id, user_id, name, created_at FROM tags WHERE id = ? AND user_id = ?`

	tag, err := scanTag(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}

	return tag, nil
}

// GetOrCreateByName returns the user's tag with the given name,
// creating it if absent. A concurrent insert losing the race on the
// (user_id, name) constraint falls back to re-reading the winner's row.
func (r *tagRepository) GetOrCreateByName(ctx context.Context, userID int64, name string) (*domain.Tag, error) {
	existing, err := r.getByName(ctx, userID, name)
	if err == nil {
		return existing, nil
	}
	if err != repository.ErrNotFound {
		return nil, err
	}

	tag := domain.NewTag(userID, name)
	if err := r.Create(ctx, tag); err != nil {
		if err == repository.ErrDuplicate {
			return r.getByName(ctx, userID, name)
		}
		return nil, err
	}

	return tag, nil
}

// List returns the user's tags ordered by descending name. With
// AssignedOnly set, only tags linked to at least one recipe are
// returned, each exactly once.
func (r *tagRepository) List(ctx context.Context, userID int64, filter repository.VocabularyFilter) ([]*domain.Tag, error) {
	query := `SELECT id, user_id, name, created_at FROM tags WHERE user_id = ?`
	if filter.AssignedOnly {
		query += ` AND EXISTS (SELECT 1 FROM recipe_tags rt WHERE rt.tag_id = tags.id)`
	}
	query += ` ORDER BY name DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}

// Update renames an owned tag.
func (r *tagRepository) Update(ctx context.Context, tag *domain.Tag) error {
	query := `UPDATE tags SET name = ? WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query, tag.Name, tag.ID, tag.UserID)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to update tag: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes an owned tag and its recipe links.
func (r *tagRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM recipe_tags WHERE tag_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete tag links: %w", err)
	}

	return nil
}

func (r *tagRepository) getByName(ctx context.Context, userID int64, name string) (*domain.Tag, error) {
	query := `SELECT id, user_id, name, created_at FROM tags WHERE user_id = ? AND name = ?`

	tag, err := scanTag(r.db.QueryRowContext(ctx, query, userID, name))
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tag by name: %w", err)
	}

	return tag, nil
}

func scanTag(row rowScanner) (*domain.Tag, error) {
	tag := &domain.Tag{}
	var createdAt string

	if err := row.Scan(&tag.ID, &tag.UserID, &tag.Name, &createdAt); err != nil {
		return nil, err
	}
	tag.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return tag, nil
}

// Ensure tagRepository implements repository.TagRepository.
var _ repository.TagRepository = (*tagRepository)(nil)
