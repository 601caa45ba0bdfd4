package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/catalog/internal/domain/token"
	"github.com/geocoder89/catalog/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuthTokensRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAuthTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *AuthTokensRepo {
	return &AuthTokensRepo{pool: pool, prom: prom}
}

func (r *AuthTokensRepo) Create(ctx context.Context, rec token.Record) error {
	return r.prom.ObserveDB("auth_tokens.create", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO auth_tokens (id, user_id, token_hash, expires_at, revoked_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			rec.ID, rec.UserID, rec.TokenHash, rec.ExpiresAt, rec.RevokedAt, rec.CreatedAt,
		)
		return err
	})
}

func (r *AuthTokensRepo) Get(ctx context.Context, id string) (token.Record, error) {
	var rec token.Record

	err := r.prom.ObserveDB("auth_tokens.get", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
			FROM auth_tokens
			WHERE id = $1`, id,
		).Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &rec.ExpiresAt, &rec.RevokedAt, &rec.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return token.Record{}, token.ErrNotFound
		}
		return token.Record{}, err
	}

	return rec, nil
}

func (r *AuthTokensRepo) Revoke(ctx context.Context, id string) error {
	return r.execOne(ctx, "auth_tokens.revoke", `
		UPDATE auth_tokens
		SET revoked_at = COALESCE(revoked_at, NOW())
		WHERE id = $1`, id)
}

func (r *AuthTokensRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, "auth_tokens.delete", `DELETE FROM auth_tokens WHERE id = $1`, id)
}

// DeleteExpired drops every record that expired before the cutoff or was revoked.
func (r *AuthTokensRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var tag pgconn.CommandTag

	err := r.prom.ObserveDB("auth_tokens.delete_expired", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `
			DELETE FROM auth_tokens
			WHERE expires_at <= $1 OR revoked_at IS NOT NULL`, before)
		return err
	})
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (r *AuthTokensRepo) execOne(ctx context.Context, op, query string, id string) error {
	var tag pgconn.CommandTag

	err := r.prom.ObserveDB(op, func() error {
		var err error
		tag, err = r.pool.Exec(ctx, query, id)
		return err
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return token.ErrNotFound
	}

	return nil
}
