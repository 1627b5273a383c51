package postgres

import (
	"context"
	"fmt"

	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/repository"
)

// tagRepository implements repository.TagRepository for PostgreSQL.
type tagRepository struct {
	db *DB
}

// NewTagRepository creates a new PostgreSQL tag repository.
func NewTagRepository(db *DB) repository.TagRepository {
	return &tagRepository{db: db}
}

// Create inserts a new tag for a user.
func (r *tagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	query := `INSERT INTO tags (user_id, name, created_at) VALUES ($1, $2, $3) RETURNING id`

	err := r.db.Pool.QueryRow(ctx, query, tag.UserID, tag.Name, tag.CreatedAt).Scan(&tag.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create tag: %w", err)
	}

	return nil
}

// GetByID retrieves a tag owned by the given user.
func (r *tagRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Tag, error) {
	query := `SELECT id, user_id, name, created_at FROM tags WHERE id = $1 AND user_id = $2`

	tag := &domain.Tag{}
	err := r.db.Pool.QueryRow(ctx, query, id, userID).Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}

	return tag, nil
}

// GetOrCreateByName returns the user's tag with the given name, creating
// it if absent. The insert races on UNIQUE(user_id, name); losers
// re-read the winner's row.
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

// List returns the user's tags ordered by descending name, optionally
// restricted to those assigned to at least one recipe.
func (r *tagRepository) List(ctx context.Context, userID int64, filter repository.VocabularyFilter) ([]*domain.Tag, error) {
	query := `SELECT id, user_id, name, created_at FROM tags WHERE user_id = $1`
	if filter.AssignedOnly {
		query += ` AND EXISTS (SELECT 1 FROM recipe_tags rt WHERE rt.tag_id = tags.id)`
	}
	query += ` ORDER BY name DESC`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		tag := &domain.Tag{}
		if err := rows.Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt); err != nil {
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
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE tags SET name = $3 WHERE id = $1 AND user_id = $2`,
		tag.ID, tag.UserID, tag.Name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to update tag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes an owned tag; recipe links cascade.
func (r *tagRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM tags WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *tagRepository) getByName(ctx context.Context, userID int64, name string) (*domain.Tag, error) {
	query := `SELECT id, user_id, name, created_at FROM tags WHERE user_id = $1 AND name = $2`

	tag := &domain.Tag{}
	err := r.db.Pool.QueryRow(ctx, query, userID, name).Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tag by name: %w", err)
	}

	return tag, nil
}

// Ensure tagRepository implements repository.TagRepository.
var _ repository.TagRepository = (*tagRepository)(nil)
