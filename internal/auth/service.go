// Package auth implements the shared-password login flow. The application
// has no user accounts, a single password gates the whole interface.
package auth

import (
	"context"
)

// PasswordVerifier checks the shared access password.
// *settings.Service satisfies it.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, password string) error
}

// Service wraps authentication business rules.
type Service struct {
	verifier PasswordVerifier
}

// NewService constructs a new Service.
func NewService(verifier PasswordVerifier) *Service {
	return &Service{verifier: verifier}
}

// Authenticate validates the shared access password.
func (s *Service) Authenticate(ctx context.Context, password string) error {
	return s.verifier.VerifyPassword(ctx, password)
}
