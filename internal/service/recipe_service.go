package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/lock"
	"github.com/pantrylabs/pantry/internal/metrics"
	"github.com/pantrylabs/pantry/internal/repository"
	"github.com/pantrylabs/pantry/internal/storage"
)

// Lock tuning for vocabulary get-or-create and image replacement.
const (
	vocabLockTTL        = 5 * time.Second
	vocabLockRetries    = 20
	vocabLockRetryDelay = 50 * time.Millisecond

	imageLockTTL = 30 * time.Second
)

// RecipeService handles recipe management, including tag/ingredient
// resolution and image attachments. Every operation is scoped to the
// calling user; rows owned by someone else surface as not found.
type RecipeService struct {
	recipeRepo     repository.RecipeRepository
	tagRepo        repository.TagRepository
	ingredientRepo repository.IngredientRepository
	locker         lock.Locker
	blobs          storage.Backend
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

// NewRecipeService creates a new RecipeService. The metrics collector
// may be nil when metrics are disabled.
func NewRecipeService(
	recipeRepo repository.RecipeRepository,
	tagRepo repository.TagRepository,
	ingredientRepo repository.IngredientRepository,
	locker lock.Locker,
	blobs storage.Backend,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *RecipeService {
	return &RecipeService{
		recipeRepo:     recipeRepo,
		tagRepo:        tagRepo,
		ingredientRepo: ingredientRepo,
		locker:         locker,
		blobs:          blobs,
		metrics:        m,
		logger:         logger.With().Str("service", "recipe").Logger(),
	}
}

// ListRecipesInput narrows a recipe listing.
type ListRecipesInput struct {
	UserID        int64
	TagIDs        []int64
	IngredientIDs []int64
}

// List returns the caller's recipes, newest first. When tag or
// ingredient IDs are supplied, a recipe must link at least one ID from
// each supplied dimension.
func (s *RecipeService) List(ctx context.Context, input ListRecipesInput) ([]*domain.Recipe, error) {
	recipes, err := s.recipeRepo.List(ctx, input.UserID, repository.RecipeFilter{
		TagIDs:        input.TagIDs,
		IngredientIDs: input.IngredientIDs,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to list recipes")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return recipes, nil
}

// Get returns one of the caller's recipes with nested tags and
// ingredients.
func (s *RecipeService) Get(ctx context.Context, userID, id int64) (*domain.Recipe, error) {
	recipe, err := s.recipeRepo.GetByID(ctx, userID, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrRecipeNotFound
		}
		s.logger.Error().Err(err).Int64("recipe_id", id).Msg("failed to get recipe")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return recipe, nil
}

// CreateRecipeInput contains the data needed to create a recipe. Tags
// and Ingredients are names, resolved get-or-create within the caller's
// vocabulary.
type CreateRecipeInput struct {
	UserID      int64
	Title       string
	TimeMinutes int
	Price       decimal.Decimal
	Description string
	Link        string
	Tags        []string
	Ingredients []string
}

// Create creates a recipe owned by the caller. The owner is always the
// caller, regardless of what any payload claimed.
func (s *RecipeService) Create(ctx context.Context, input CreateRecipeInput) (*domain.Recipe, error) {
	if err := s.validateScalars(input.Title, input.TimeMinutes, input.Price); err != nil {
		return nil, err
	}

	recipe := domain.NewRecipe(input.UserID, input.Title, input.TimeMinutes, input.Price)
	recipe.Description = input.Description
	recipe.Link = input.Link

	tags, err := s.resolveTags(ctx, input.UserID, input.Tags)
	if err != nil {
		return nil, err
	}
	ingredients, err := s.resolveIngredients(ctx, input.UserID, input.Ingredients)
	if err != nil {
		return nil, err
	}
	recipe.Tags = tags
	recipe.Ingredients = ingredients

	if err := s.recipeRepo.Create(ctx, recipe); err != nil {
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to create recipe")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("recipe_id", recipe.ID).
		Int64("user_id", recipe.UserID).
		Str("title", recipe.Title).
		Msg("recipe created")

	return s.Get(ctx, input.UserID, recipe.ID)
}

// UpdateRecipeInput contains partial recipe changes. Nil fields are left
// untouched. A non-nil Tags/Ingredients slice replaces the whole link
// set; an empty slice clears the links while the rows themselves remain.
type UpdateRecipeInput struct {
	UserID      int64
	ID          int64
	Title       *string
	TimeMinutes *int
	Price       *decimal.Decimal
	Description *string
	Link        *string
	Tags        *[]string
	Ingredients *[]string
}

// Update applies the provided fields to one of the caller's recipes.
func (s *RecipeService) Update(ctx context.Context, input UpdateRecipeInput) (*domain.Recipe, error) {
	recipe, err := s.Get(ctx, input.UserID, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		recipe.Title = *input.Title
	}
	if input.TimeMinutes != nil {
		recipe.TimeMinutes = *input.TimeMinutes
	}
	if input.Price != nil {
		recipe.Price = *input.Price
	}
	if input.Description != nil {
		recipe.Description = *input.Description
	}
	if input.Link != nil {
		recipe.Link = *input.Link
	}
	if err := s.validateScalars(recipe.Title, recipe.TimeMinutes, recipe.Price); err != nil {
		return nil, err
	}

	// Resolve the new link sets before touching the row; the repository
	// then writes scalars and links in one transaction. A nil input set
	// keeps the links loaded with the recipe.
	if input.Tags != nil {
		tags, err := s.resolveTags(ctx, input.UserID, *input.Tags)
		if err != nil {
			return nil, err
		}
		recipe.Tags = tags
	}
	if input.Ingredients != nil {
		ingredients, err := s.resolveIngredients(ctx, input.UserID, *input.Ingredients)
		if err != nil {
			return nil, err
		}
		recipe.Ingredients = ingredients
	}
	recipe.UpdatedAt = time.Now().UTC()

	if err := s.recipeRepo.Update(ctx, recipe); err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrRecipeNotFound
		}
		s.logger.Error().Err(err).Int64("recipe_id", recipe.ID).Msg("failed to update recipe")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("recipe_id", recipe.ID).Msg("recipe updated")
	return s.Get(ctx, input.UserID, recipe.ID)
}

// Delete removes one of the caller's recipes, its link rows, and its
// stored image, if any.
func (s *RecipeService) Delete(ctx context.Context, userID, id int64) error {
	recipe, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.recipeRepo.Delete(ctx, userID, id); err != nil {
		if err == repository.ErrNotFound {
			return ErrRecipeNotFound
		}
		s.logger.Error().Err(err).Int64("recipe_id", id).Msg("failed to delete recipe")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if recipe.ImagePath != "" {
		if err := s.blobs.Delete(ctx, recipe.ImagePath); err != nil {
			// The row is gone; an orphaned blob is only a space leak.
			s.logger.Warn().Err(err).Str("key", recipe.ImagePath).Msg("failed to delete recipe image blob")
		}
	}

	s.logger.Info().Int64("recipe_id", id).Int64("user_id", userID).Msg("recipe deleted")
	return nil
}

// UploadImage validates and attaches an image to one of the caller's
// recipes, replacing and deleting any previous attachment. A payload
// that does not decode as an image is rejected without touching the
// existing attachment.
func (s *RecipeService) UploadImage(ctx context.Context, userID, recipeID int64, filename string, r io.Reader) (*domain.Recipe, error) {
	recipe, err := s.Get(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(r)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordImageUpload("rejected")
		}
		return nil, ErrNotAnImage
	}

	// Re-encode in the format the filename claims, defaulting to JPEG
	// for extensions imaging does not recognize.
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		format = imaging.JPEG
		filename += ".jpg"
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		s.logger.Error().Err(err).Int64("recipe_id", recipeID).Msg("failed to encode image")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	lk := lock.NewLock(s.locker, lock.Keys.RecipeImage(recipeID))
	acquired, err := lk.Acquire(ctx, imageLockTTL)
	if err != nil || !acquired {
		s.logger.Error().Err(err).Int64("recipe_id", recipeID).Msg("failed to acquire image lock")
		return nil, fmt.Errorf("%w: image upload in progress", ErrInternalError)
	}
	defer func() {
		if err := lk.Release(ctx); err != nil {
			s.logger.Warn().Err(err).Int64("recipe_id", recipeID).Msg("failed to release image lock")
		}
	}()

	key := storage.RecipeImageKey(filename)
	if err := s.blobs.Store(ctx, key, &buf, int64(buf.Len())); err != nil {
		if s.metrics != nil {
			s.metrics.RecordImageUpload("error")
		}
		s.logger.Error().Err(err).Str("key", key).Msg("failed to store image blob")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	oldKey := recipe.ImagePath
	if err := s.recipeRepo.UpdateImagePath(ctx, userID, recipeID, key); err != nil {
		_ = s.blobs.Delete(ctx, key)
		if err == repository.ErrNotFound {
			return nil, ErrRecipeNotFound
		}
		s.logger.Error().Err(err).Int64("recipe_id", recipeID).Msg("failed to update image path")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if oldKey != "" && oldKey != key {
		if err := s.blobs.Delete(ctx, oldKey); err != nil {
			s.logger.Warn().Err(err).Str("key", oldKey).Msg("failed to delete replaced image blob")
		}
	}

	if s.metrics != nil {
		s.metrics.RecordImageUpload("success")
	}
	s.logger.Info().
		Int64("recipe_id", recipeID).
		Str("key", key).
		Msg("recipe image uploaded")

	return s.Get(ctx, userID, recipeID)
}

// OpenImage opens a stored recipe image blob for serving. The key must
// look like a key this service issued.
func (s *RecipeService) OpenImage(ctx context.Context, key string) (io.ReadCloser, error) {
	if !storage.IsRecipeImageKey(key) {
		return nil, domain.ErrBlobNotFound
	}
	rc, err := s.blobs.Retrieve(ctx, key)
	if err != nil {
		if err == domain.ErrBlobNotFound {
			return nil, err
		}
		s.logger.Error().Err(err).Str("key", key).Msg("failed to open image blob")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return rc, nil
}

// validateScalars checks the recipe scalar fields, returning a
// *ValidationError on the first pass over all fields.
func (s *RecipeService) validateScalars(title string, timeMinutes int, price decimal.Decimal) error {
	verr := NewValidationError()
	if title == "" {
		verr.Add("title", "this field may not be blank")
	}
	if timeMinutes < 0 {
		verr.Add("time_minutes", "ensure this value is greater than or equal to 0")
	}
	if price.IsNegative() {
		verr.Add("price", "ensure this value is greater than or equal to 0")
	}
	return verr.ErrOrNil()
}

// resolveTags resolves tag names to rows within the caller's
// vocabulary, creating missing ones. Each name is serialized under a
// per-(owner, name) lock so concurrent requests cannot race the create.
func (s *RecipeService) resolveTags(ctx context.Context, userID int64, names []string) ([]*domain.Tag, error) {
	if err := validateVocabNames("tags", names); err != nil {
		return nil, err
	}
	tags := make([]*domain.Tag, 0, len(names))
	for _, name := range names {
		tag, err := s.withVocabLock(ctx, lock.Keys.Tag(userID, name), func(ctx context.Context) (any, error) {
			return s.tagRepo.GetOrCreateByName(ctx, userID, name)
		})
		if err != nil {
			s.logger.Error().Err(err).Str("name", name).Msg("failed to resolve tag")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		tags = append(tags, tag.(*domain.Tag))
	}
	return tags, nil
}

// resolveIngredients mirrors resolveTags for ingredients.
func (s *RecipeService) resolveIngredients(ctx context.Context, userID int64, names []string) ([]*domain.Ingredient, error) {
	if err := validateVocabNames("ingredients", names); err != nil {
		return nil, err
	}
	ingredients := make([]*domain.Ingredient, 0, len(names))
	for _, name := range names {
		ing, err := s.withVocabLock(ctx, lock.Keys.Ingredient(userID, name), func(ctx context.Context) (any, error) {
			return s.ingredientRepo.GetOrCreateByName(ctx, userID, name)
		})
		if err != nil {
			s.logger.Error().Err(err).Str("name", name).Msg("failed to resolve ingredient")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		ingredients = append(ingredients, ing.(*domain.Ingredient))
	}
	return ingredients, nil
}

// validateVocabNames rejects blank nested names so recipe payloads
// cannot mint vocabulary rows the explicit endpoints would refuse.
func validateVocabNames(field string, names []string) error {
	for _, name := range names {
		if name == "" {
			verr := NewValidationError()
			verr.Add(field, "this field may not be blank")
			return verr
		}
	}
	return nil
}

// withVocabLock runs fn while holding the named vocabulary lock.
func (s *RecipeService) withVocabLock(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	acquired, err := s.locker.AcquireWithRetry(ctx, key, vocabLockTTL, vocabLockRetries, vocabLockRetryDelay)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("lock %s is busy", key)
	}
	defer func() {
		if _, err := s.locker.Release(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to release vocabulary lock")
		}
	}()
	return fn(ctx)
}
