package postgres

import (
	"context"
	"fmt"

	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/repository"
)

// ingredientRepository implements repository.IngredientRepository for PostgreSQL.
type ingredientRepository struct {
	db *DB
}

// NewIngredientRepository creates a new PostgreSQL ingredient repository.
func NewIngredientRepository(db *DB) repository.IngredientRepository {
	return &ingredientRepository{db: db}
}

// Create inserts a new ingredient for a user.
func (r *ingredientRepository) Create(ctx context.Context, ingredient *domain.Ingredient) error {
	query := `INSERT INTO ingredients (user_id, name, created_at) VALUES ($1, $2, $3) RETURNING id`

	err := r.db.Pool.QueryRow(ctx, query, ingredient.UserID, ingredient.Name, ingredient.CreatedAt).Scan(&ingredient.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create ingredient: %w", err)
	}

	return nil
}

// GetByID retrieves an ingredient owned by the given user.
func (r *ingredientRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Ingredient, error) {
	query := `SELECT id, user_id, name, created_at FROM ingredients WHERE id = $1 AND user_id = $2`

	ingredient := &domain.Ingredient{}
	err := r.db.Pool.QueryRow(ctx, query, id, userID).Scan(
		&ingredient.ID, &ingredient.UserID, &ingredient.Name, &ingredient.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}

	return ingredient, nil
}

// GetOrCreateByName returns the user's ingredient with the given name,
// creating it if absent.
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
	query := `SELECT id, user_id, name, created_at FROM ingredients WHERE user_id = $1`
	if filter.AssignedOnly {
		query += ` AND EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.ingredient_id = ingredients.id)`
	}
	query += ` ORDER BY name DESC`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []*domain.Ingredient
	for rows.Next() {
		ingredient := &domain.Ingredient{}
		if err := rows.Scan(&ingredient.ID, &ingredient.UserID, &ingredient.Name, &ingredient.CreatedAt); err != nil {
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
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE ingredients SET name = $3 WHERE id = $1 AND user_id = $2`,
		ingredient.ID, ingredient.UserID, ingredient.Name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to update ingredient: %w", err)
	}

	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes an owned ingredient; recipe links cascade.
func (r *ingredientRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM ingredients WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete ingredient: %w", err)
	}

	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *ingredientRepository) getByName(ctx context.Context, userID int64, name string) (*domain.Ingredient, error) {
	query := `SELECT id, user_id, name, created_at FROM ingredients WHERE user_id = $1 AND name = $2`

	ingredient := &domain.Ingredient{}
	err := r.db.Pool.QueryRow(ctx, query, userID, name).Scan(
		&ingredient.ID, &ingredient.UserID, &ingredient.Name, &ingredient.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ingredient by name: %w", err)
	}

	return ingredient, nil
}

// Ensure ingredientRepository implements repository.IngredientRepository.
var _ repository.IngredientRepository = (*ingredientRepository)(nil)
