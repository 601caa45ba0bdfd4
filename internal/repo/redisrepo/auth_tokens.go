// Package redisrepo keeps auth token records in redis hashes. Each key
// expires with its token, so no sweeping is needed.
package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/geocoder89/catalog/internal/domain/token"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "catalog:auth_token:"

const (
	fieldUserID    = "user_id"
	fieldTokenHash = "token_hash"
	fieldExpiresAt = "expires_at"
	fieldRevokedAt = "revoked_at"
	fieldCreatedAt = "created_at"
)

type AuthTokensRepo struct {
	rdb *redis.Client
}

func NewAuthTokensRepo(rdb *redis.Client) *AuthTokensRepo {
	return &AuthTokensRepo{rdb: rdb}
}

func key(id string) string { return keyPrefix + id }

func (r *AuthTokensRepo) Create(ctx context.Context, rec token.Record) error {
	k := key(rec.ID)

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k,
			fieldUserID, rec.UserID,
			fieldTokenHash, rec.TokenHash,
			fieldExpiresAt, unixNano(rec.ExpiresAt),
			fieldCreatedAt, unixNano(rec.CreatedAt),
		)
		if rec.RevokedAt != nil {
			pipe.HSet(ctx, k, fieldRevokedAt, unixNano(*rec.RevokedAt))
		}
		pipe.ExpireAt(ctx, k, rec.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis create token: %w", err)
	}
	return nil
}

func (r *AuthTokensRepo) Get(ctx context.Context, id string) (token.Record, error) {
	vals, err := r.rdb.HGetAll(ctx, key(id)).Result()
	if err != nil {
		return token.Record{}, fmt.Errorf("redis get token: %w", err)
	}
	if len(vals) == 0 {
		return token.Record{}, token.ErrNotFound
	}

	return decode(id, vals)
}

// revokeScript only touches keys that still exist, so a revoke never
// resurrects an expired record.
var revokeScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
if redis.call("HEXISTS", KEYS[1], "revoked_at") == 0 then
	redis.call("HSET", KEYS[1], "revoked_at", ARGV[1])
end
return 1
`)

func (r *AuthTokensRepo) Revoke(ctx context.Context, id string) error {
	n, err := revokeScript.Run(ctx, r.rdb, []string{key(id)}, unixNano(time.Now().UTC())).Int()
	if err != nil {
		return fmt.Errorf("redis revoke token: %w", err)
	}
	if n == 0 {
		return token.ErrNotFound
	}
	return nil
}

func (r *AuthTokensRepo) Delete(ctx context.Context, id string) error {
	n, err := r.rdb.Del(ctx, key(id)).Result()
	if err != nil {
		return fmt.Errorf("redis delete token: %w", err)
	}
	if n == 0 {
		return token.ErrNotFound
	}
	return nil
}

func decode(id string, vals map[string]string) (token.Record, error) {
	rec := token.Record{
		ID:        id,
		UserID:    vals[fieldUserID],
		TokenHash: vals[fieldTokenHash],
	}

	var err error
	if rec.ExpiresAt, err = parseUnixNano(vals[fieldExpiresAt]); err != nil {
		return token.Record{}, fmt.Errorf("decode %s: %w", fieldExpiresAt, err)
	}
	if rec.CreatedAt, err = parseUnixNano(vals[fieldCreatedAt]); err != nil {
		return token.Record{}, fmt.Errorf("decode %s: %w", fieldCreatedAt, err)
	}
	if v, ok := vals[fieldRevokedAt]; ok {
		at, err := parseUnixNano(v)
		if err != nil {
			return token.Record{}, fmt.Errorf("decode %s: %w", fieldRevokedAt, err)
		}
		rec.RevokedAt = &at
	}

	return rec, nil
}

func unixNano(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

var errEmptyTimestamp = errors.New("empty timestamp")

func parseUnixNano(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errEmptyTimestamp
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n).UTC(), nil
}
