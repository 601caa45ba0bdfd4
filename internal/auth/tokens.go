package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/catalog/internal/domain/token"
	"github.com/geocoder89/catalog/internal/domain/user"
)

const tokenTypeBearer = "Bearer"

// TokenStore persists token records. Postgres, redis and memory
// implementations live under internal/repo.
type TokenStore interface {
	Create(ctx context.Context, rec token.Record) error
	Get(ctx context.Context, id string) (token.Record, error)
	Revoke(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type Token struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Issuer hands out bearer tokens and checks them against the token store.
type Issuer struct {
	jwt   *Manager
	store TokenStore
	now   func() time.Time
}

func NewIssuer(jwtManager *Manager, store TokenStore) *Issuer {
	return &Issuer{
		jwt:   jwtManager,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (i *Issuer) Issue(ctx context.Context, u user.User) (Token, error) {
	raw, jti, expiresAt, err := i.jwt.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	rec := token.Record{
		ID:        jti,
		UserID:    u.ID,
		TokenHash: i.jwt.HashToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: i.now(),
	}

	if err := i.store.Create(ctx, rec); err != nil {
		return Token{}, fmt.Errorf("store token: %w", err)
	}

	return Token{
		AccessToken: raw,
		TokenType:   tokenTypeBearer,
		ExpiresAt:   expiresAt,
	}, nil
}

// Verify returns the live record behind raw. Every failure other than a
// storage outage is reported as ErrUnauthenticated.
func (i *Issuer) Verify(ctx context.Context, raw string) (token.Record, error) {
	if raw == "" {
		return token.Record{}, ErrUnauthenticated
	}

	claims, err := i.jwt.VerifyAccessToken(raw)
	if err != nil {
		return token.Record{}, ErrUnauthenticated
	}

	rec, err := i.store.Get(ctx, claims.JTI)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return token.Record{}, ErrUnauthenticated
		}
		return token.Record{}, fmt.Errorf("load token: %w", err)
	}

	// prevents token substitution
	if subtle.ConstantTimeCompare([]byte(rec.TokenHash), []byte(i.jwt.HashToken(raw))) != 1 {
		return token.Record{}, ErrUnauthenticated
	}

	if rec.UserID != claims.UserID || !rec.Active(i.now()) {
		return token.Record{}, ErrUnauthenticated
	}

	return rec, nil
}

// Revoke marks the token revoked and then removes its record.
func (i *Issuer) Revoke(ctx context.Context, raw string) error {
	rec, err := i.Verify(ctx, raw)
	if err != nil {
		return err
	}

	if err := i.store.Revoke(ctx, rec.ID); err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return ErrUnauthenticated
		}
		return fmt.Errorf("revoke token: %w", err)
	}

	if err := i.store.Delete(ctx, rec.ID); err != nil && !errors.Is(err, token.ErrNotFound) {
		return fmt.Errorf("delete token: %w", err)
	}

	return nil
}
