package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/catalog/internal/config"
	"github.com/geocoder89/catalog/internal/domain/user"
	"github.com/geocoder89/catalog/internal/security"
	"github.com/google/uuid"
)

type UserCreator interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

// EnsureSeedUser creates the SEED_USER_* account when it is configured and
// does not exist yet. It works against any user store.
func EnsureSeedUser(ctx context.Context, users UserCreator, cfg config.Config, log *slog.Logger) error {
	if cfg.SeedUserEmail == "" || cfg.SeedUserPassword == "" {
		return nil
	}

	email := user.NormalizeEmail(cfg.SeedUserEmail)

	_, err := users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.SeedUserPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	_, err = users.Create(ctx, user.User{
		ID:           uuid.NewString(),
		Name:         cfg.SeedUserName,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	// another instance won the race
	if errors.Is(err, user.ErrDuplicateEmail) {
		return nil
	}
	if err != nil {
		return err
	}

	if log != nil {
		log.InfoContext(ctx, "seed user created", "email", email)
	}
	return nil
}
