package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/repository"
)

// IngredientService handles the caller-scoped ingredient vocabulary.
type IngredientService struct {
	ingredientRepo repository.IngredientRepository
	logger         zerolog.Logger
}

// NewIngredientService creates a new IngredientService.
func NewIngredientService(ingredientRepo repository.IngredientRepository, logger zerolog.Logger) *IngredientService {
	return &IngredientService{
		ingredientRepo: ingredientRepo,
		logger:         logger.With().Str("service", "ingredient").Logger(),
	}
}

// List returns the caller's ingredients ordered by descending name,
// restricted to recipe-linked rows when assignedOnly is set.
func (s *IngredientService) List(ctx context.Context, userID int64, assignedOnly bool) ([]*domain.Ingredient, error) {
	ingredients, err := s.ingredientRepo.List(ctx, userID, repository.VocabularyFilter{AssignedOnly: assignedOnly})
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to list ingredients")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return ingredients, nil
}

// Get returns one of the caller's ingredients.
func (s *IngredientService) Get(ctx context.Context, userID, id int64) (*domain.Ingredient, error) {
	ingredient, err := s.ingredientRepo.GetByID(ctx, userID, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrIngredientNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return ingredient, nil
}

// Create adds an ingredient to the caller's vocabulary.
func (s *IngredientService) Create(ctx context.Context, userID int64, name string) (*domain.Ingredient, error) {
	if name == "" {
		verr := NewValidationError()
		verr.Add("name", "this field may not be blank")
		return nil, verr
	}

	ingredient := domain.NewIngredient(userID, name)
	if err := s.ingredientRepo.Create(ctx, ingredient); err != nil {
		if err == repository.ErrDuplicate {
			verr := NewValidationError()
			verr.Add("name", "you already have an ingredient with this name")
			return nil, verr
		}
		s.logger.Error().Err(err).Str("name", name).Msg("failed to create ingredient")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("ingredient_id", ingredient.ID).
		Int64("user_id", userID).
		Str("name", name).
		Msg("ingredient created")

	return ingredient, nil
}

// Update renames one of the caller's ingredients.
func (s *IngredientService) Update(ctx context.Context, userID, id int64, name string) (*domain.Ingredient, error) {
	if name == "" {
		verr := NewValidationError()
		verr.Add("name", "this field may not be blank")
		return nil, verr
	}

	ingredient, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	ingredient.Name = name
	if err := s.ingredientRepo.Update(ctx, ingredient); err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrIngredientNotFound
		}
		if err == repository.ErrDuplicate {
			verr := NewValidationError()
			verr.Add("name", "you already have an ingredient with this name")
			return nil, verr
		}
		s.logger.Error().Err(err).Int64("ingredient_id", id).Msg("failed to update ingredient")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return ingredient, nil
}

// Delete removes one of the caller's ingredients and its recipe links.
func (s *IngredientService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.ingredientRepo.Delete(ctx, userID, id); err != nil {
		if err == repository.ErrNotFound {
			return ErrIngredientNotFound
		}
		s.logger.Error().Err(err).Int64("ingredient_id", id).Msg("failed to delete ingredient")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	s.logger.Info().Int64("ingredient_id", id).Int64("user_id", userID).Msg("ingredient deleted")
	return nil
}
