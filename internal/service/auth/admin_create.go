// internal/service/auth/admin_create.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskhub-service/internal/domain/auth"
	"taskhub-service/internal/pkg/cache"
	xerrors "taskhub-service/internal/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// EnsureAdmin creates the seed admin account if it is missing (called on startup).
// An existing account with the same email is promoted instead of recreated.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) error {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		s.logger.Info("admin seed not configured, skipping")
		return nil
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}

	existing, err := s.store.Users().FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			s.logger.Info("admin already exists, skipping creation", zap.String("email", email))
			return nil
		}
		existing.Role = auth.RoleAdmin
		if err := s.store.Users().Update(ctx, existing); err != nil {
			return fmt.Errorf("failed to promote admin: %w", err)
		}
		s.cache.Delete(ctx, cache.UserKey(existing.ID))
		s.logger.Info("existing user promoted to admin", zap.String("user_id", existing.ID))
		return nil
	case !errors.Is(err, xerrors.ErrNotFound):
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	if len(password) > maxPasswordBytes {
		return fmt.Errorf("admin password longer than %d bytes", maxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &auth.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         auth.RoleAdmin,
		PasswordHash: string(hash),
	}
	if err := s.store.Users().Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Info("admin created successfully",
		zap.String("email", email),
		zap.String("user_id", admin.ID),
	)
	return nil
}
