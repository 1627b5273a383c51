package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/repository"
)

// TagService handles the caller-scoped tag vocabulary.
type TagService struct {
	tagRepo repository.TagRepository
	logger  zerolog.Logger
}

// NewTagService creates a new TagService.
func NewTagService(tagRepo repository.TagRepository, logger zerolog.Logger) *TagService {
	return &TagService{
		tagRepo: tagRepo,
		logger:  logger.With().Str("service", "tag").Logger(),
	}
}

// List returns the caller's tags ordered by descending name. When
// assignedOnly is set, only tags linked to at least one recipe are
// returned, each exactly once.
func (s *TagService) List(ctx context.Context, userID int64, assignedOnly bool) ([]*domain.Tag, error) {
	tags, err := s.tagRepo.List(ctx, userID, repository.VocabularyFilter{AssignedOnly: assignedOnly})
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to list tags")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return tags, nil
}

// Get returns one of the caller's tags.
func (s *TagService) Get(ctx context.Context, userID, id int64) (*domain.Tag, error) {
	tag, err := s.tagRepo.GetByID(ctx, userID, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return tag, nil
}

// Create adds a tag to the caller's vocabulary. A duplicate name within
// the same vocabulary is a validation error.
func (s *TagService) Create(ctx context.Context, userID int64, name string) (*domain.Tag, error) {
	if name == "" {
		verr := NewValidationError()
		verr.Add("name", "this field may not be blank")
		return nil, verr
	}

	tag := domain.NewTag(userID, name)
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		if err == repository.ErrDuplicate {
			verr := NewValidationError()
			verr.Add("name", "you already have a tag with this name")
			return nil, verr
		}
		s.logger.Error().Err(err).Str("name", name).Msg("failed to create tag")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("tag_id", tag.ID).Int64("user_id", userID).Str("name", name).Msg("tag created")
	return tag, nil
}

// Update renames one of the caller's tags.
func (s *TagService) Update(ctx context.Context, userID, id int64, name string) (*domain.Tag, error) {
	if name == "" {
		verr := NewValidationError()
		verr.Add("name", "this field may not be blank")
		return nil, verr
	}

	tag, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	tag.Name = name
	if err := s.tagRepo.Update(ctx, tag); err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrTagNotFound
		}
		if err == repository.ErrDuplicate {
			verr := NewValidationError()
			verr.Add("name", "you already have a tag with this name")
			return nil, verr
		}
		s.logger.Error().Err(err).Int64("tag_id", id).Msg("failed to update tag")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return tag, nil
}

// Delete removes one of the caller's tags and its recipe links.
func (s *TagService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.tagRepo.Delete(ctx, userID, id); err != nil {
		if err == repository.ErrNotFound {
			return ErrTagNotFound
		}
		s.logger.Error().Err(err).Int64("tag_id", id).Msg("failed to delete tag")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	s.logger.Info().Int64("tag_id", id).Int64("user_id", userID).Msg("tag deleted")
	return nil
}
