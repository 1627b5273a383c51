// Package repository defines data access interfaces for Pantry.
// These interfaces abstract database operations, allowing for different
// implementations (SQLite, PostgreSQL, in-memory for testing) while
// keeping the service layer clean.
package repository

import (
	"context"

	"github.com/pantrylabs/pantry/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Delete deletes a user by ID.
	Delete(ctx context.Context, id int64) error

	// List returns all users with pagination. Only the admin console
	// uses this; the API layer never lists across owners.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)

	// ExistsByEmail checks if a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// =============================================================================
// Token Repository
// =============================================================================

// TokenRepository defines the interface for bearer token data access.
// Tokens are stored by digest only; the plaintext never touches the database.
type TokenRepository interface {
	// Create stores a new token row.
	Create(ctx context.Context, token *domain.Token) error

	// GetByDigest retrieves a token by its SHA-256 digest.
	GetByDigest(ctx context.Context, digest string) (*domain.Token, error)

	// UpdateLastUsed updates the last_used_at timestamp.
	UpdateLastUsed(ctx context.Context, id int64) error

	// DeleteByDigest deletes a token by digest (logout).
	DeleteByDigest(ctx context.Context, digest string) error

	// DeleteByUserID deletes all tokens for a user. Called after a
	// password change so stale credentials stop working.
	DeleteByUserID(ctx context.Context, userID int64) (int64, error)
}

// =============================================================================
// Recipe Repository
// =============================================================================

// RecipeFilter narrows a recipe listing. A recipe matches when, for each
// non-empty dimension, it links at least one of the listed IDs.
type RecipeFilter struct {
	// TagIDs restricts to recipes linking any of these tags.
	TagIDs []int64

	// IngredientIDs restricts to recipes linking any of these ingredients.
	IngredientIDs []int64
}

// Empty reports whether the filter imposes no restriction.
func (f RecipeFilter) Empty() bool {
	return len(f.TagIDs) == 0 && len(f.IngredientIDs) == 0
}

// RecipeRepository defines the interface for recipe data access.
// Every read and write is scoped to an owning user: rows owned by
// someone else behave exactly as if they did not exist.
type RecipeRepository interface {
	// Create inserts the recipe and its tag/ingredient link rows in a
	// single transaction. The recipe's Tags/Ingredients must already be
	// resolved to persisted rows.
	Create(ctx context.Context, recipe *domain.Recipe) error

	// GetByID retrieves a recipe owned by userID, with nested tags and
	// ingredients. Returns ErrNotFound for missing or foreign rows.
	GetByID(ctx context.Context, userID, id int64) (*domain.Recipe, error)

	// List returns the user's recipes ordered by descending ID,
	// optionally filtered; results are deduplicated.
	List(ctx context.Context, userID int64, filter RecipeFilter) ([]*domain.Recipe, error)

	// Update updates the scalar fields of an owned recipe and replaces
	// both link sets from the nested Tags/Ingredients, atomically. An
	// empty nested slice clears the links.
	Update(ctx context.Context, recipe *domain.Recipe) error

	// UpdateImagePath sets the stored image reference for an owned recipe.
	UpdateImagePath(ctx context.Context, userID, id int64, path string) error

	// Delete removes an owned recipe and its link rows.
	Delete(ctx context.Context, userID, id int64) error
}

// =============================================================================
// Tag / Ingredient Repositories
// =============================================================================

// VocabularyFilter narrows a tag/ingredient listing.
type VocabularyFilter struct {
	// AssignedOnly restricts to rows linked to at least one recipe.
	AssignedOnly bool
}

// TagRepository defines the interface for tag data access.
type TagRepository interface {
	// Create creates a new tag.
	Create(ctx context.Context, tag *domain.Tag) error

	// GetByID retrieves a tag owned by userID.
	GetByID(ctx context.Context, userID, id int64) (*domain.Tag, error)

	// GetOrCreateByName resolves a tag by name within the owner's
	// vocabulary, creating it if absent. Safe under concurrent
	// duplicate attempts: relies on the UNIQUE(user_id, name)
	// constraint and retries the lookup on conflict.
	GetOrCreateByName(ctx context.Context, userID int64, name string) (*domain.Tag, error)

	// List returns the user's tags ordered by descending name,
	// deduplicated even when AssignedOnly joins through several recipes.
	List(ctx context.Context, userID int64, filter VocabularyFilter) ([]*domain.Tag, error)

	// Update renames an owned tag.
	Update(ctx context.Context, tag *domain.Tag) error

	// Delete removes an owned tag and its recipe links.
	Delete(ctx context.Context, userID, id int64) error
}

// IngredientRepository defines the interface for ingredient data access.
type IngredientRepository interface {
	// Create creates a new ingredient.
	Create(ctx context.Context, ingredient *domain.Ingredient) error

	// GetByID retrieves an ingredient owned by userID.
	GetByID(ctx context.Context, userID, id int64) (*domain.Ingredient, error)

	// GetOrCreateByName resolves an ingredient by name within the
	// owner's vocabulary, creating it if absent.
	GetOrCreateByName(ctx context.Context, userID int64, name string) (*domain.Ingredient, error)

	// List returns the user's ingredients ordered by descending name.
	List(ctx context.Context, userID int64, filter VocabularyFilter) ([]*domain.Ingredient, error)

	// Update renames an owned ingredient.
	Update(ctx context.Context, ingredient *domain.Ingredient) error

	// Delete removes an owned ingredient and its recipe links.
	Delete(ctx context.Context, userID, id int64) error
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}
