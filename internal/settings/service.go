package settings

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/ancora-cas/ancora-cas/internal/shared"
)

// DefaultPassword is the access password used until an operator sets one.
const DefaultPassword = "ancoracas25"

// minPasswordLength matches the form constraint.
const minPasswordLength = 8

// ErrPasswordTooShort rejects a replacement password below the minimum.
var ErrPasswordTooShort = errors.New("password too short")

// ErrPasswordMismatch rejects a confirmation that differs from the new
// password.
var ErrPasswordMismatch = errors.New("password confirmation mismatch")

// Service wraps settings business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// VerifyPassword checks the shared access password. When no hash has been
// stored yet the default password is accepted and persisted.
func (s *Service) VerifyPassword(ctx context.Context, password string) error {
	hash, err := s.repo.Get(ctx, PasswordKey)
	if errors.Is(err, shared.ErrNotFound) {
		if password != DefaultPassword {
			return shared.ErrInvalidCredentials
		}
		return s.storePassword(ctx, password)
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return shared.ErrInvalidCredentials
	}
	return nil
}

// ChangePassword replaces the shared access password.
func (s *Service) ChangePassword(ctx context.Context, newPassword, confirm string) error {
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	return s.storePassword(ctx, newPassword)
}

func (s *Service) storePassword(ctx context.Context, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Set(ctx, PasswordKey, string(hash))
}
