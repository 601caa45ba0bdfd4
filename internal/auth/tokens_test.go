package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/catalog/internal/domain/token"
	"github.com/geocoder89/catalog/internal/domain/user"
	"github.com/geocoder89/catalog/internal/repo/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	*memory.AuthTokensRepo
	getErr error
}

func (f *failingStore) Get(ctx context.Context, id string) (token.Record, error) {
	return token.Record{}, f.getErr
}

func newTestIssuer(store TokenStore) *Issuer {
	return NewIssuer(NewManager(strings.Repeat("s", 32), time.Hour), store)
}

func TestIssuer_IssueAndVerify(t *testing.T) {
	ctx := context.Background()
	store := memory.NewAuthTokensRepo()
	iss := newTestIssuer(store)

	tok, err := iss.Issue(ctx, user.User{ID: "u1", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)

	rec, err := iss.Verify(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)
	assert.NotEqual(t, tok.AccessToken, rec.TokenHash)

	_, err = iss.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestIssuer_VerifyRejectsInactiveRecords(t *testing.T) {
	ctx := context.Background()
	store := memory.NewAuthTokensRepo()
	iss := newTestIssuer(store)

	tok, err := iss.Issue(ctx, user.User{ID: "u1"})
	require.NoError(t, err)
	claims, err := iss.jwt.VerifyAccessToken(tok.AccessToken)
	require.NoError(t, err)

	t.Run("expired record", func(t *testing.T) {
		iss.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { iss.now = func() time.Time { return time.Now().UTC() } }()

		_, err := iss.Verify(ctx, tok.AccessToken)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("substituted hash", func(t *testing.T) {
		rec, err := store.Get(ctx, claims.JTI)
		require.NoError(t, err)
		rec.TokenHash = "other"
		require.NoError(t, store.Create(ctx, rec))

		_, err = iss.Verify(ctx, tok.AccessToken)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("missing record", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, claims.JTI))

		_, err := iss.Verify(ctx, tok.AccessToken)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestIssuer_VerifySurfacesStoreOutage(t *testing.T) {
	ctx := context.Background()
	outage := errors.New("connection refused")
	store := &failingStore{AuthTokensRepo: memory.NewAuthTokensRepo(), getErr: outage}
	iss := newTestIssuer(store)

	tok, err := iss.Issue(ctx, user.User{ID: "u1"})
	require.NoError(t, err)

	_, err = iss.Verify(ctx, tok.AccessToken)
	assert.ErrorIs(t, err, outage)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}

func TestIssuer_Revoke(t *testing.T) {
	ctx := context.Background()
	store := memory.NewAuthTokensRepo()
	iss := newTestIssuer(store)

	first, err := iss.Issue(ctx, user.User{ID: "u1"})
	require.NoError(t, err)
	second, err := iss.Issue(ctx, user.User{ID: "u1"})
	require.NoError(t, err)

	require.NoError(t, iss.Revoke(ctx, first.AccessToken))

	_, err = iss.Verify(ctx, first.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, iss.Revoke(ctx, first.AccessToken), ErrUnauthenticated)

	_, err = iss.Verify(ctx, second.AccessToken)
	assert.NoError(t, err)
}
