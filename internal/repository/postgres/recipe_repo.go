package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/repository"
)

// recipeRepository implements repository.RecipeRepository for PostgreSQL.
type recipeRepository struct {
	db *DB
}

// NewRecipeRepository creates a new PostgreSQL recipe repository.
func NewRecipeRepository(db *DB) repository.RecipeRepository {
	return &recipeRepository{db: db}
}

const recipeColumns = `id, user_id, title, time_minutes, price::text, description, link, image_path, created_at, updated_at`

// Create inserts the recipe and its link rows in a single transaction.
func (r *recipeRepository) Create(ctx context.Context, recipe *domain.Recipe) error {
	return r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		query := `
			INSERT INTO recipes (user_id, title, time_minutes, price, description, link, image_path, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`

		err := tx.QueryRow(ctx, query,
			recipe.UserID,
			recipe.Title,
			recipe.TimeMinutes,
			recipe.Price.String(),
			recipe.Description,
			recipe.Link,
			recipe.ImagePath,
			recipe.CreatedAt,
			recipe.UpdatedAt,
		).Scan(&recipe.ID)
		if err != nil {
			return fmt.Errorf("failed to create recipe: %w", err)
		}

		if err := insertLinks(ctx, tx, "recipe_tags", "tag_id", recipe.ID, recipe.TagIDs()); err != nil {
			return err
		}
		return insertLinks(ctx, tx, "recipe_ingredients", "ingredient_id", recipe.ID, recipe.IngredientIDs())
	})
}

// GetByID retrieves an owned recipe with nested tags and ingredients.
func (r *recipeRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE id = $1 AND user_id = $2`

	recipe, err := scanRecipe(r.db.Pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	if err := r.loadLinks(ctx, []*domain.Recipe{recipe}); err != nil {
		return nil, err
	}
	return recipe, nil
}

// List returns the user's recipes ordered by descending ID. Filter
// dimensions use EXISTS subqueries so multi-link matches stay unique.
func (r *recipeRepository) List(ctx context.Context, userID int64, filter repository.RecipeFilter) ([]*domain.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE user_id = $1`
	args := []any{userID}

	if len(filter.TagIDs) > 0 {
		args = append(args, filter.TagIDs)
		query += fmt.Sprintf(
			` AND EXISTS (SELECT 1 FROM recipe_tags rt WHERE rt.recipe_id = recipes.id AND rt.tag_id = ANY($%d))`,
			len(args),
		)
	}

	if len(filter.IngredientIDs) > 0 {
		args = append(args, filter.IngredientIDs)
		query += fmt.Sprintf(
			` AND EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.recipe_id = recipes.id AND ri.ingredient_id = ANY($%d))`,
			len(args),
		)
	}

	query += ` ORDER BY id DESC`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []*domain.Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipes: %w", err)
	}

	if err := r.loadLinks(ctx, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// Update updates the scalar fields and both link sets of an owned
// recipe in a single transaction; a failure leaves the row untouched.
func (r *recipeRepository) Update(ctx context.Context, recipe *domain.Recipe) error {
	recipe.UpdatedAt = time.Now().UTC()

	return r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		query := `
			UPDATE recipes
			SET title = $3, time_minutes = $4, price = $5, description = $6, link = $7, updated_at = $8
			WHERE id = $1 AND user_id = $2
		`

		result, err := tx.Exec(ctx, query,
			recipe.ID,
			recipe.UserID,
			recipe.Title,
			recipe.TimeMinutes,
			recipe.Price.String(),
			recipe.Description,
			recipe.Link,
			recipe.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}

		if result.RowsAffected() == 0 {
			return repository.ErrNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM recipe_tags WHERE recipe_id = $1`, recipe.ID); err != nil {
			return fmt.Errorf("failed to clear recipe tags: %w", err)
		}
		if err := insertLinks(ctx, tx, "recipe_tags", "tag_id", recipe.ID, recipe.TagIDs()); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = $1`, recipe.ID); err != nil {
			return fmt.Errorf("failed to clear recipe ingredients: %w", err)
		}
		return insertLinks(ctx, tx, "recipe_ingredients", "ingredient_id", recipe.ID, recipe.IngredientIDs())
	})
}

// UpdateImagePath sets the stored image reference for an owned recipe.
func (r *recipeRepository) UpdateImagePath(ctx context.Context, userID, id int64, path string) error {
	query := `UPDATE recipes SET image_path = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool.Exec(ctx, query, id, userID, path, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update recipe image: %w", err)
	}

	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes an owned recipe; link rows cascade.
func (r *recipeRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// loadLinks populates Tags and Ingredients for the given recipes.
func (r *recipeRepository) loadLinks(ctx context.Context, recipes []*domain.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Recipe, len(recipes))
	ids := make([]int64, 0, len(recipes))
	for _, recipe := range recipes {
		recipe.Tags = []*domain.Tag{}
		recipe.Ingredients = []*domain.Ingredient{}
		byID[recipe.ID] = recipe
		ids = append(ids, recipe.ID)
	}

	tagQuery := `
		SELECT rt.recipe_id, t.id, t.user_id, t.name, t.created_at
		FROM recipe_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.recipe_id = ANY($1)
		ORDER BY t.name DESC
	`
	rows, err := r.db.Pool.Query(ctx, tagQuery, ids)
	if err != nil {
		return fmt.Errorf("failed to load recipe tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recipeID int64
		tag := &domain.Tag{}
		if err := rows.Scan(&recipeID, &tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan recipe tag: %w", err)
		}
		if recipe, ok := byID[recipeID]; ok {
			recipe.Tags = append(recipe.Tags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating recipe tags: %w", err)
	}

	ingredientQuery := `
		SELECT ri.recipe_id, i.id, i.user_id, i.name, i.created_at
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id = ANY($1)
		ORDER BY i.name DESC
	`
	inRows, err := r.db.Pool.Query(ctx, ingredientQuery, ids)
	if err != nil {
		return fmt.Errorf("failed to load recipe ingredients: %w", err)
	}
	defer inRows.Close()

	for inRows.Next() {
		var recipeID int64
		ingredient := &domain.Ingredient{}
		if err := inRows.Scan(&recipeID, &ingredient.ID, &ingredient.UserID, &ingredient.Name, &ingredient.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan recipe ingredient: %w", err)
		}
		if recipe, ok := byID[recipeID]; ok {
			recipe.Ingredients = append(recipe.Ingredients, ingredient)
		}
	}
	if err := inRows.Err(); err != nil {
		return fmt.Errorf("error iterating recipe ingredients: %w", err)
	}

	return nil
}

// scanRecipe scans a recipe row in recipeColumns order.
func scanRecipe(row pgx.Row) (*domain.Recipe, error) {
	recipe := &domain.Recipe{}
	var price string

	err := row.Scan(
		&recipe.ID,
		&recipe.UserID,
		&recipe.Title,
		&recipe.TimeMinutes,
		&price,
		&recipe.Description,
		&recipe.Link,
		&recipe.ImagePath,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	recipe.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", price, err)
	}

	return recipe, nil
}

// insertLinks inserts recipe link rows, ignoring duplicates. A foreign
// key violation means the referenced tag or ingredient row is gone.
func insertLinks(ctx context.Context, tx pgx.Tx, table, column string, recipeID int64, ids []int64) error {
	for _, id := range ids {
		query := `INSERT INTO ` + table + ` (recipe_id, ` + column + `) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		if _, err := tx.Exec(ctx, query, recipeID, id); err != nil {
			if isForeignKeyViolation(err) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("failed to insert %s link: %w", table, err)
		}
	}
	return nil
}

// Ensure recipeRepository implements repository.RecipeRepository.
var _ repository.RecipeRepository = (*recipeRepository)(nil)
