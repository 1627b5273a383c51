package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pantrylabs/pantry/internal/pkg/crypto"
)

const testMinPasswordLength = 5

func newTestUserService(repo *MockUserRepository) *UserService {
	return NewUserService(repo, testMinPasswordLength, zerolog.Nop())
}

// seedUser registers a user through the service so the stored hash is
// a real bcrypt hash, and returns the new ID.
func seedUser(t *testing.T, repo *MockUserRepository, email, password, name string) int64 {
	t.Helper()
	user, err := newTestUserService(repo).Register(context.Background(), RegisterInput{
		Email:    email,
		Password: password,
		Name:     name,
	})
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user.ID
}

func fieldErrors(t *testing.T, err error, field string) []string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	return verr.Fields[field]
}

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name      string
		input     RegisterInput
		wantField string
		setupRepo func(t *testing.T, m *MockUserRepository)
	}{
		{
			name: "success",
			input: RegisterInput{
				Email:    "test@example.com",
				Password: "testpass123",
				Name:     "Test Name",
			},
		},
		{
			name: "success without name",
			input: RegisterInput{
				Email:    "noname@example.com",
				Password: "testpass123",
			},
		},
		{
			name: "blank email",
			input: RegisterInput{
				Email:    "",
				Password: "testpass123",
			},
			wantField: "email",
		},
		{
			name: "malformed email",
			input: RegisterInput{
				Email:    "not-an-email",
				Password: "testpass123",
			},
			wantField: "email",
		},
		{
			name: "password too short",
			input: RegisterInput{
				Email:    "test@example.com",
				Password: "pw",
			},
			wantField: "password",
		},
		{
			name: "duplicate email",
			input: RegisterInput{
				Email:    "taken@example.com",
				Password: "testpass123",
			},
			wantField: "email",
			setupRepo: func(t *testing.T, m *MockUserRepository) {
				seedUser(t, m, "taken@example.com", "otherpass", "")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockUserRepository()
			if tt.setupRepo != nil {
				tt.setupRepo(t, repo)
			}
			svc := newTestUserService(repo)
			before := len(repo.users)

			user, err := svc.Register(context.Background(), tt.input)

			if tt.wantField != "" {
				if err == nil {
					t.Fatal("expected validation error, got nil")
				}
				if msgs := fieldErrors(t, err, tt.wantField); len(msgs) == 0 {
					t.Errorf("expected errors on field %q, got %v", tt.wantField, err)
				}
				if len(repo.users) != before {
					t.Error("failed registration must not leave a row behind")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.ID == 0 {
				t.Error("expected assigned user ID")
			}
			if user.Email != tt.input.Email || user.Name != tt.input.Name {
				t.Errorf("unexpected user %+v", user)
			}
			if !user.IsActive {
				t.Error("new users must be active")
			}
			if user.IsStaff || user.IsSuperuser {
				t.Error("new users must not have staff privileges")
			}
			if user.PasswordHash == tt.input.Password {
				t.Error("password must be stored hashed")
			}
			if !crypto.CheckPassword(user.PasswordHash, tt.input.Password) {
				t.Error("stored hash does not verify against the password")
			}
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	repo := NewMockUserRepository()
	svc := newTestUserService(repo)
	seedUser(t, repo, "test@example.com", "goodpass", "Test")

	inactiveID := seedUser(t, repo, "inactive@example.com", "goodpass", "")
	repo.users[inactiveID].IsActive = false

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "success", email: "test@example.com", password: "goodpass"},
		{name: "wrong password", email: "test@example.com", password: "badpass", wantErr: ErrInvalidCredentials},
		{name: "blank password", email: "test@example.com", password: "", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "nobody@example.com", password: "goodpass", wantErr: ErrInvalidCredentials},
		{name: "inactive user", email: "inactive@example.com", password: "goodpass", wantErr: ErrUserInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Authenticate(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.Email != tt.email {
				t.Errorf("expected user %s, got %s", tt.email, user.Email)
			}
		})
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	strPtr := func(s string) *string { return &s }

	t.Run("patch name only", func(t *testing.T) {
		repo := NewMockUserRepository()
		svc := newTestUserService(repo)
		id := seedUser(t, repo, "test@example.com", "goodpass", "Old Name")

		user, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
			UserID: id,
			Name:   strPtr("New Name"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.Name != "New Name" {
			t.Errorf("expected name updated, got %q", user.Name)
		}
		if user.Email != "test@example.com" {
			t.Errorf("email must be untouched, got %q", user.Email)
		}
		if !crypto.CheckPassword(user.PasswordHash, "goodpass") {
			t.Error("password must be untouched")
		}
	})

	t.Run("patch password rehashes", func(t *testing.T) {
		repo := NewMockUserRepository()
		svc := newTestUserService(repo)
		id := seedUser(t, repo, "test@example.com", "goodpass", "Test")

		user, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
			UserID:   id,
			Password: strPtr("newpassword123"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !crypto.CheckPassword(user.PasswordHash, "newpassword123") {
			t.Error("new password does not verify")
		}
		if crypto.CheckPassword(user.PasswordHash, "goodpass") {
			t.Error("old password still verifies")
		}
	})

	t.Run("short password rejected", func(t *testing.T) {
		repo := NewMockUserRepository()
		svc := newTestUserService(repo)
		id := seedUser(t, repo, "test@example.com", "goodpass", "Test")

		_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
			UserID:   id,
			Password: strPtr("pw"),
		})
		if msgs := fieldErrors(t, err, "password"); len(msgs) == 0 {
			t.Errorf("expected password field error, got %v", err)
		}
		if !crypto.CheckPassword(repo.users[id].PasswordHash, "goodpass") {
			t.Error("stored password must be untouched after rejected update")
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := NewMockUserRepository()
		svc := newTestUserService(repo)

		_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
			UserID: 42,
			Name:   strPtr("Anyone"),
		})
		if err != ErrUserNotFound {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestUserService_CreateSuperuser(t *testing.T) {
	repo := NewMockUserRepository()
	svc := newTestUserService(repo)

	user, err := svc.CreateSuperuser(context.Background(), "admin@example.com", "adminpass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !user.IsStaff || !user.IsSuperuser {
		t.Error("superuser must carry staff and superuser flags")
	}

	if _, err := svc.CreateSuperuser(context.Background(), "admin@example.com", "adminpass"); err != ErrUserAlreadyExists {
		t.Errorf("expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestUserService_SetActive(t *testing.T) {
	repo := NewMockUserRepository()
	svc := newTestUserService(repo)
	id := seedUser(t, repo, "test@example.com", "goodpass", "Test")

	if err := svc.SetActive(context.Background(), id, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.users[id].IsActive {
		t.Error("expected user deactivated")
	}

	if err := svc.SetActive(context.Background(), 99, true); err != ErrUserNotFound {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
