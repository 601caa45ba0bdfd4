package redisrepo_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/catalog/internal/domain/token"
	"github.com/geocoder89/catalog/internal/redisclient"
	"github.com/geocoder89/catalog/internal/repo/redisrepo"
	"github.com/google/uuid"
)

func newRepo(t *testing.T) *redisrepo.AuthTokensRepo {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	c, err := redisclient.Connect(context.Background(), redisclient.Config{Addr: addr})
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	return redisrepo.NewAuthTokensRepo(c.Raw())
}

func TestAuthTokensRepo_Lifecycle(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := token.Record{
		ID:        uuid.NewString(),
		UserID:    uuid.NewString(),
		TokenHash: "abc123",
		ExpiresAt: now.Add(time.Minute),
		CreatedAt: now,
	}

	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != rec.UserID || got.TokenHash != rec.TokenHash || !got.ExpiresAt.Equal(rec.ExpiresAt) {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, rec)
	}
	if !got.Active(now) {
		t.Fatal("fresh token should be active")
	}

	if err := repo.Revoke(ctx, rec.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, err = repo.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get after revoke: %v", err)
	}
	if got.RevokedAt == nil || got.Active(now) {
		t.Fatal("revoked token should not be active")
	}

	if err := repo.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, rec.ID); !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("get after delete: err = %v, want ErrNotFound", err)
	}
	if err := repo.Revoke(ctx, rec.ID); !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("revoke after delete: err = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, rec.ID); !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("delete twice: err = %v, want ErrNotFound", err)
	}
}
