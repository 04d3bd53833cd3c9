package seed

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"user-pages-service/internal/config"
	domain "user-pages-service/internal/domain/user"
	"user-pages-service/internal/usecase/user"
)

// EnsureAdmin makes sure the configured admin account exists and holds admin rights.
// It does nothing when no admin email is configured. An existing account keeps its password.
func EnsureAdmin(ctx context.Context, repo user.Repository, hasher user.PasswordHasher, cfg config.AdminConfig, log *zap.Logger) (*domain.User, error) {
	email := domain.NormalizeEmail(cfg.Email)
	if email == "" {
		log.Debug("no admin account configured")
		return nil, nil
	}

	existing, err := repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}

	if existing != nil {
		if existing.IsAdmin {
			return existing, nil
		}
		promoted := *existing
		promoted.IsAdmin = true
		if _, err := repo.Update(ctx, &promoted); err != nil {
			return nil, fmt.Errorf("failed to promote admin: %w", err)
		}
		log.Info("promoted existing user to admin", zap.Int64("id", promoted.ID))
		return &promoted, nil
	}

	digest, err := hasher.Hash(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}

	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "Admin"
	}
	admin := &domain.User{
		Name:           name,
		Email:          email,
		PasswordDigest: digest,
		IsAdmin:        true,
	}
	if _, err := repo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	log.Info("admin account created", zap.Int64("id", admin.ID), zap.String("email", email))
	return admin, nil
}
