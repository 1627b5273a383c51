// Package service provides business logic services for Pantry.
package service

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/rs/zerolog"

	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/pkg/crypto"
	"github.com/pantrylabs/pantry/internal/repository"
)

// UserService handles account registration, authentication and profile
// management.
type UserService struct {
	userRepo          repository.UserRepository
	minPasswordLength int
	logger            zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, minPasswordLength int, logger zerolog.Logger) *UserService {
	return &UserService{
		userRepo:          userRepo,
		minPasswordLength: minPasswordLength,
		logger:            logger.With().Str("service", "user").Logger(),
	}
}

// RegisterInput contains the data needed to register a new account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates a new user account. Validation failures return a
// *ValidationError and leave no row behind.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	verr := NewValidationError()
	s.validateEmail(verr, input.Email)
	s.validatePassword(verr, input.Password)
	if verr.HasErrors() {
		return nil, verr
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		s.logger.Error().Err(err).Str("email", input.Email).Msg("failed to check email existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		verr.Add("email", "a user with this email already exists")
		return nil, verr
	}

	passwordHash, err := crypto.HashPassword(input.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(input.Email, passwordHash, input.Name)
	if err := s.userRepo.Create(ctx, user); err != nil {
		if err == domain.ErrUserAlreadyExists {
			verr.Add("email", "a user with this email already exists")
			return nil, verr
		}
		s.logger.Error().Err(err).Str("email", input.Email).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("email", user.Email).
		Msg("user registered")

	return user, nil
}

// Authenticate verifies credentials and returns the user.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Debug().Str("email", email).Msg("user not found during authentication")
		return nil, ErrInvalidCredentials
	}

	if !user.CanAuthenticate() {
		s.logger.Debug().Str("email", email).Msg("inactive user attempted authentication")
		return nil, ErrUserInactive
	}

	if !crypto.CheckPassword(user.PasswordHash, password) {
		s.logger.Debug().Str("email", email).Msg("invalid password during authentication")
		return nil, ErrInvalidCredentials
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("email", user.Email).
		Msg("user authenticated")

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// UpdateProfileInput contains partial profile changes. Nil fields are
// left untouched; PUT-style full updates set every field.
type UpdateProfileInput struct {
	UserID   int64
	Email    *string
	Name     *string
	Password *string
}

// UpdateProfile applies the provided fields to the user's own profile.
// A new password is re-hashed before storage.
func (s *UserService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	verr := NewValidationError()
	if input.Email != nil {
		s.validateEmail(verr, *input.Email)
	}
	if input.Password != nil {
		s.validatePassword(verr, *input.Password)
	}
	if verr.HasErrors() {
		return nil, verr
	}

	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Password != nil {
		hash, err := crypto.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		if err == domain.ErrUserAlreadyExists {
			verr.Add("email", "a user with this email already exists")
			return nil, verr
		}
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to update profile")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("profile updated")
	return user, nil
}

// CreateSuperuser creates a staff+superuser account. Used by the admin
// CLI and nowhere on the public API.
func (s *UserService) CreateSuperuser(ctx context.Context, email, password string) (*domain.User, error) {
	verr := NewValidationError()
	s.validateEmail(verr, email)
	s.validatePassword(verr, password)
	if verr.HasErrors() {
		return nil, verr
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	passwordHash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewSuperuser(email, passwordHash)
	if err := s.userRepo.Create(ctx, user); err != nil {
		if err == domain.ErrUserAlreadyExists {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("email", user.Email).
		Msg("superuser created")

	return user, nil
}

// AdminCreateInput contains the fields of the admin console add form.
type AdminCreateInput struct {
	Email    string
	Password string
	Name     string
	IsActive bool
	IsStaff  bool
}

// AdminCreate creates an account from the admin console, with explicit
// active/staff flags.
func (s *UserService) AdminCreate(ctx context.Context, input AdminCreateInput) (*domain.User, error) {
	user, err := s.Register(ctx, RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		Name:     input.Name,
	})
	if err != nil {
		return nil, err
	}

	if user.IsActive != input.IsActive || input.IsStaff {
		user.IsActive = input.IsActive
		user.IsStaff = input.IsStaff
		user.UpdatedAt = time.Now().UTC()
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
	}
	return user, nil
}

// AdminUpdateInput contains the fields editable from the admin console
// change form. A nil Password keeps the current hash.
type AdminUpdateInput struct {
	UserID   int64
	Email    string
	Name     string
	IsActive bool
	IsStaff  bool
	Password *string
}

// AdminUpdate applies an admin console edit to any account.
func (s *UserService) AdminUpdate(ctx context.Context, input AdminUpdateInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	verr := NewValidationError()
	s.validateEmail(verr, input.Email)
	if input.Password != nil {
		s.validatePassword(verr, *input.Password)
	}
	if verr.HasErrors() {
		return nil, verr
	}

	user.Email = input.Email
	user.Name = input.Name
	user.IsActive = input.IsActive
	user.IsStaff = input.IsStaff
	if input.Password != nil {
		hash, err := crypto.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		if err == domain.ErrUserAlreadyExists {
			verr.Add("email", "a user with this email already exists")
			return nil, verr
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user updated by admin")
	return user, nil
}

// SetActive sets the active status of a user.
func (s *UserService) SetActive(ctx context.Context, userID int64, isActive bool) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if err == repository.ErrNotFound {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user.IsActive = isActive
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Bool("is_active", isActive).
		Msg("user active status updated")

	return nil
}

// ListUsersInput contains pagination options for listing users.
type ListUsersInput struct {
	Limit  int
	Offset int
}

// ListUsersOutput contains the result of listing users.
type ListUsersOutput struct {
	Users      []*domain.User
	TotalCount int64
}

// List returns all users with pagination. Admin console only.
func (s *UserService) List(ctx context.Context, input ListUsersInput) (*ListUsersOutput, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	result, err := s.userRepo.List(ctx, repository.ListOptions{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &ListUsersOutput{
		Users:      result.Items,
		TotalCount: result.Total,
	}, nil
}

// validateEmail appends field errors for a missing or malformed email.
func (s *UserService) validateEmail(verr *ValidationError, email string) {
	if email == "" {
		verr.Add("email", "this field may not be blank")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		verr.Add("email", "enter a valid email address")
	}
}

// validatePassword appends field errors for a too-short password.
func (s *UserService) validatePassword(verr *ValidationError, password string) {
	if len(password) < s.minPasswordLength {
		verr.Add("password", fmt.Sprintf("ensure this field has at least %d characters", s.minPasswordLength))
	}
}
