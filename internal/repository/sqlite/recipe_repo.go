package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/repository"
)

// recipeRepository implements repository.RecipeRepository for SQLite.
// Every query carries the owner's user_id so foreign rows are
// indistinguishable from missing ones.
type recipeRepository struct {
	db *DB
}

// NewRecipeRepository creates a new SQLite recipe repository.
func NewRecipeRepository(db *DB) repository.RecipeRepository {
	return &recipeRepository{db: db}
}

const recipeColumns = `id, user_id, title, time_minutes, price, description, link, image_path, created_at, updated_at`

// Create inserts the recipe and its link rows in a single transaction.
func (r *recipeRepository) Create(ctx context.Context, recipe *domain.Recipe) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO recipes (user_id, title, time_minutes, price, description, link, image_path, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		result, err := tx.ExecContext(ctx, query,
			recipe.UserID,
			recipe.Title,
			recipe.TimeMinutes,
			recipe.Price.String(),
			recipe.Description,
			recipe.Link,
			recipe.ImagePath,
			recipe.CreatedAt.Format(time.RFC3339),
			recipe.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to create recipe: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		recipe.ID = id

		if err := insertLinks(ctx, tx, "recipe_tags", "tag_id", id, recipe.TagIDs()); err != nil {
			return err
		}
		return insertLinks(ctx, tx, "recipe_ingredients", "ingredient_id", id, recipe.IngredientIDs())
	})
}

// GetByID retrieves an owned recipe with nested tags and ingredients.
func (r *recipeRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE id = ? AND user_id = ?`

	recipe, err := scanRecipe(r.db.QueryRowContext(ctx, query, id, userID))
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

// List returns the user's recipes ordered by descending ID.
// Filter dimensions are applied with EXISTS subqueries, so a recipe
// linking several matching rows still appears exactly once.
func (r *recipeRepository) List(ctx context.Context, userID int64, filter repository.RecipeFilter) ([]*domain.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE user_id = ?`
	args := []interface{}{userID}

	if len(filter.TagIDs) > 0 {
		query += ` AND EXISTS (SELECT 1 FROM recipe_tags rt WHERE rt.recipe_id = recipes.id AND rt.tag_id IN (` +
			placeholders(len(filter.TagIDs)) + `))`
		for _, tagID := range filter.TagIDs {
			args = append(args, tagID)
		}
	}

	if len(filter.IngredientIDs) > 0 {
		query += ` AND EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.recipe_id = recipes.id AND ri.ingredient_id IN (` +
			placeholders(len(filter.IngredientIDs)) + `))`
		for _, ingredientID := range filter.IngredientIDs {
			args = append(args, ingredientID)
		}
	}

	query += ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
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

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE recipes
			SET title = ?, time_minutes = ?, price = ?, description = ?, link = ?, updated_at = ?
			WHERE id = ? AND user_id = ?
		`

		result, err := tx.ExecContext(ctx, query,
			recipe.Title,
			recipe.TimeMinutes,
			recipe.Price.String(),
			recipe.Description,
			recipe.Link,
			recipe.UpdatedAt.Format(time.RFC3339),
			recipe.ID,
			recipe.UserID,
		)
		if err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return repository.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_tags WHERE recipe_id = ?`, recipe.ID); err != nil {
			return fmt.Errorf("failed to clear recipe tags: %w", err)
		}
		if err := insertLinks(ctx, tx, "recipe_tags", "tag_id", recipe.ID, recipe.TagIDs()); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = ?`, recipe.ID); err != nil {
			return fmt.Errorf("failed to clear recipe ingredients: %w", err)
		}
		return insertLinks(ctx, tx, "recipe_ingredients", "ingredient_id", recipe.ID, recipe.IngredientIDs())
	})
}

// UpdateImagePath sets the stored image reference for an owned recipe.
func (r *recipeRepository) UpdateImagePath(ctx context.Context, userID, id int64, path string) error {
	query := `UPDATE recipes SET image_path = ?, updated_at = ? WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		path,
		time.Now().UTC().Format(time.RFC3339),
		id,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recipe image: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes an owned recipe and its link rows.
func (r *recipeRepository) Delete(ctx context.Context, userID, id int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var owner int64
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM recipes WHERE id = ?`, id).Scan(&owner)
		if isNoRows(err) || (err == nil && owner != userID) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check recipe owner: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_tags WHERE recipe_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete recipe tag links: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete recipe ingredient links: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete recipe: %w", err)
		}
		return nil
	})
}

// loadLinks populates Tags and Ingredients for the given recipes.
func (r *recipeRepository) loadLinks(ctx context.Context, recipes []*domain.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Recipe, len(recipes))
	ids := make([]interface{}, 0, len(recipes))
	for _, recipe := range recipes {
		recipe.Tags = []*domain.Tag{}
		recipe.Ingredients = []*domain.Ingredient{}
		byID[recipe.ID] = recipe
		ids = append(ids, recipe.ID)
	}
	ph := placeholders(len(ids))

	tagQuery := `
		SELECT rt.recipe_id, t.id, t.user_id, t.name, t.created_at
		FROM recipe_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.recipe_id IN (` + ph + `)
		ORDER BY t.name DESC
	`
	rows, err := r.db.QueryContext(ctx, tagQuery, ids...)
	if err != nil {
		return fmt.Errorf("failed to load recipe tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recipeID int64
		tag := &domain.Tag{}
		var createdAt string
		if err := rows.Scan(&recipeID, &tag.ID, &tag.UserID, &tag.Name, &createdAt); err != nil {
			return fmt.Errorf("failed to scan recipe tag: %w", err)
		}
		tag.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
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
		WHERE ri.recipe_id IN (` + ph + `)
		ORDER BY i.name DESC
	`
	inRows, err := r.db.QueryContext(ctx, ingredientQuery, ids...)
	if err != nil {
		return fmt.Errorf("failed to load recipe ingredients: %w", err)
	}
	defer inRows.Close()

	for inRows.Next() {
		var recipeID int64
		ingredient := &domain.Ingredient{}
		var createdAt string
		if err := inRows.Scan(&recipeID, &ingredient.ID, &ingredient.UserID, &ingredient.Name, &createdAt); err != nil {
			return fmt.Errorf("failed to scan recipe ingredient: %w", err)
		}
		ingredient.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
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
func scanRecipe(row rowScanner) (*domain.Recipe, error) {
	recipe := &domain.Recipe{}
	var price, createdAt, updatedAt string

	err := row.Scan(
		&recipe.ID,
		&recipe.UserID,
		&recipe.Title,
		&recipe.TimeMinutes,
		&price,
		&recipe.Description,
		&recipe.Link,
		&recipe.ImagePath,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	recipe.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", price, err)
	}
	recipe.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	recipe.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return recipe, nil
}

// insertLinks inserts recipe link rows, ignoring duplicates. A foreign
// key violation means the referenced tag or ingredient row is gone.
func insertLinks(ctx context.Context, tx *sql.Tx, table, column string, recipeID int64, ids []int64) error {
	for _, id := range ids {
		query := `INSERT OR IGNORE INTO ` + table + ` (recipe_id, ` + column + `) VALUES (?, ?)`
		if _, err := tx.ExecContext(ctx, query, recipeID, id); err != nil {
			if isForeignKeyViolation(err) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("failed to insert %s link: %w", table, err)
		}
	}
	return nil
}

// placeholders returns n comma-separated SQL placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// Ensure recipeRepository implements repository.RecipeRepository.
var _ repository.RecipeRepository = (*recipeRepository)(nil)
