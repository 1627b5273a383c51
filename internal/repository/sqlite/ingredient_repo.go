package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/repository"
)

// ingredientRepository implements repository.IngredientRepository for SQLite.
type ingredientRepository struct {
	db *DB
}

// NewIngredientRepository creates a new SQLite ingredient repository.
func NewIngredientRepository(db *DB) repository.IngredientRepository {
	return &ingredientRepository{db: db}
}

// Create inserts a new ingredient for a user.
func (r *ingredientRepository) Create(ctx context.Context, ingredient *domain.Ingredient) error {
	query := `INSERT INTO ingredients (user_id, name, created_at) VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		ingredient.UserID,
		ingredient.Name,
		ingredient.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create ingredient: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	ingredient.ID = id

	return nil
}

// GetByID retrieves an ingredient owned by the given user.
func (r *ingredientRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Ingredient, error) {
	query := `SELECT id, user_id, name, created_at FROM ingredients WHERE id = ? AND user_id = ?`

	ingredient, err := scanIngredient(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}

	return ingredient, nil
}

// GetOrCreateByName returns the user's ingredient with the given name,
// creating it if absent. Losing a concurrent insert race falls back to
// re-reading the winner's row.
func (r *ingredientRepository) GetOrCreateByName(ctx context.Context, userID int64, name string) (*domain.Ingredient, error) {
	existing, err := r.getByName(ctx, userID, name)
	if err == nil {
		return existing, nil
	}
	if err != repository.ErrNotFound {
		return nil, err
	}

	ingredient := domain.NewIngredient(userID, name)
	if err := r.Create(ctx, ingredient); err != nil {
		if err == repository.ErrDuplicate {
			return r.getByName(ctx, userID, name)
		}
		return nil, err
	}

	return ingredient, nil
}

// List returns the user's ingredients ordered by descending name,
// optionally restricted to those assigned to at least one recipe.
func (r *ingredientRepository) List(ctx context.Context, userID int64, filter repository.VocabularyFilter) ([]*domain.Ingredient, error) {
	query := `SELECT id, user_id, name, created_at FROM ingredients WHERE user_id = ?`
	if filter.AssignedOnly {
		query += ` AND EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.ingredient_id = ingredients.id)`
	}
	query += ` ORDER BY name DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []*domain.Ingredient
	for rows.Next() {
		ingredient, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		ingredients = append(ingredients, ingredient)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingredients: %w", err)
	}

	return ingredients, nil
}

// Update renames an owned ingredient.
func (r *ingredientRepository) Update(ctx context.Context, ingredient *domain.Ingredient) error {
	query := `UPDATE ingredients SET name = ? WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query, ingredient.Name, ingredient.ID, ingredient.UserID)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to update ingredient: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes an owned ingredient and its recipe links.
func (r *ingredientRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM ingredients WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete ingredient: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE ingredient_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete ingredient links: %w", err)
	}

	return nil
}

func (r *ingredientRepository) getByName(ctx context.Context, userID int64, name string) (*domain.Ingredient, error) {
	query := `SELECT id, user_id, name, created_at FROM ingredients WHERE user_id = ? AND name = ?`

	ingredient, err := scanIngredient(r.db.QueryRowContext(ctx, query, userID, name))
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ingredient by name: %w", err)
	}

	return ingredient, nil
}

func scanIngredient(row rowScanner) (*domain.Ingredient, error) {
	ingredient := &domain.Ingredient{}
	var createdAt string

	if err := row.Scan(&ingredient.ID, &ingredient.UserID, &ingredient.Name, &createdAt); err != nil {
		return nil, err
	}
	ingredient.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return ingredient, nil
}

// Ensure ingredientRepository implements repository.IngredientRepository.
var _ repository.IngredientRepository = (*ingredientRepository)(nil)
