package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/catalog/internal/domain/token"
)

type AuthTokensRepo struct {
	mu   sync.Mutex
	rows map[string]token.Record
}

func NewAuthTokensRepo() *AuthTokensRepo {
	return &AuthTokensRepo{rows: make(map[string]token.Record)}
}

func (r *AuthTokensRepo) Create(ctx context.Context, rec token.Record) error {
	r.mu.Lock()
	r.rows[rec.ID] = rec
	r.mu.Unlock()
	return nil
}

func (r *AuthTokensRepo) Get(ctx context.Context, id string) (token.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rows[id]
	if !ok {
		return token.Record{}, token.ErrNotFound
	}
	return rec, nil
}

func (r *AuthTokensRepo) Revoke(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rows[id]
	if !ok {
		return token.ErrNotFound
	}
	now := time.Now().UTC()
	rec.RevokedAt = &now
	r.rows[id] = rec
	return nil
}

func (r *AuthTokensRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return token.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *AuthTokensRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, rec := range r.rows {
		if rec.RevokedAt != nil || !rec.ExpiresAt.After(before) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}
