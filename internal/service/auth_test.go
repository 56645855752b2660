package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"sourcing_marketplace/internal/models"
)

type mockUserRepo struct {
	users map[string]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*models.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return m.users[email], nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, nil
}

func newTestAuthService(t *testing.T, users *mockUserRepo) AuthService {
	t.Helper()
	return NewAuthService(users, "test-secret", time.Hour, zaptest.NewLogger(t))
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{
			name:     "valid",
			email:    "buyer@example.com",
			password: "correct-horse",
		},
		{
			name:     "email_normalized",
			email:    "  Buyer@Example.COM ",
			password: "correct-horse",
		},
		{
			name:     "invalid_email",
			email:    "not-an-email",
			password: "correct-horse",
			wantErr:  true,
		},
		{
			name:     "short_password",
			email:    "buyer@example.com",
			password: "short",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := newMockUserRepo()
			svc := newTestAuthService(t, users)

			user, err := svc.Register(context.Background(), tt.email, tt.password)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if user.Email != "buyer@example.com" {
				t.Errorf("expected normalized email, got %q", user.Email)
			}
			if user.PasswordHash == tt.password {
				t.Error("password must not be stored in plain text")
			}
			if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(tt.password)); err != nil {
				t.Errorf("stored hash does not match password: %v", err)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users)

	if _, err := svc.Register(context.Background(), "buyer@example.com", "correct-horse"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Register(context.Background(), "buyer@example.com", "another-pass"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for duplicate email, got %v", err)
	}
}

func TestLoginAndVerifyToken(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users)

	user, err := svc.Register(context.Background(), "buyer@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, err := svc.Login(context.Background(), "buyer@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	userID, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != user.ID {
		t.Errorf("expected user id %q from token, got %q", user.ID, userID)
	}
}

func TestLoginFailures(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users)

	if _, err := svc.Register(context.Background(), "buyer@example.com", "correct-horse"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Login(context.Background(), "buyer@example.com", "wrong-password"); err == nil {
		t.Error("expected error for wrong password")
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "correct-horse"); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(t, newMockUserRepo())

	if _, err := svc.VerifyToken("not.a.token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(t, users)

	if _, err := svc.Register(context.Background(), "buyer@example.com", "correct-horse"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token, err := svc.Login(context.Background(), "buyer@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := NewAuthService(users, "different-secret", time.Hour, zaptest.NewLogger(t))
	if _, err := other.VerifyToken(token); err == nil {
		t.Error("expected error for token signed with another secret")
	}
}
