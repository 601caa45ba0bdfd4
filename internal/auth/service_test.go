package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/catalog/internal/auth"
	"github.com/geocoder89/catalog/internal/domain/user"
	"github.com/geocoder89/catalog/internal/repo/memory"
	"github.com/geocoder89/catalog/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService() *auth.Service {
	issuer := auth.NewIssuer(auth.NewManager(strings.Repeat("s", 32), time.Hour), memory.NewAuthTokensRepo())
	return auth.NewService(memory.NewUsersRepo(), security.Bcrypt{Cost: bcrypt.MinCost}, issuer)
}

func TestService_RegisterLoginLogout(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	u, tok, err := svc.Register(ctx, "Ada", "  Ada@Example.COM ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEqual(t, "secret123", u.PasswordHash)
	assert.NotEmpty(t, tok.AccessToken)

	_, _, err = svc.Register(ctx, "Other", "ada@example.com", "secret123")
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)

	_, _, err = svc.Login(ctx, "ada@example.com", "wrong-pass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, user.ErrNotFound)

	logged, second, err := svc.Login(ctx, "ADA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	current, err := svc.CurrentUser(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, current.ID)

	require.NoError(t, svc.Logout(ctx, tok.AccessToken))

	_, err = svc.CurrentUser(ctx, tok.AccessToken)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = svc.CurrentUser(ctx, second.AccessToken)
	assert.NoError(t, err)
}

func TestService_CurrentUserForDeletedUser(t *testing.T) {
	ctx := context.Background()

	users := memory.NewUsersRepo()
	issuer := auth.NewIssuer(auth.NewManager(strings.Repeat("s", 32), time.Hour), memory.NewAuthTokensRepo())
	svc := auth.NewService(users, security.Bcrypt{Cost: bcrypt.MinCost}, issuer)

	// a token for a user the store never saw
	tok, err := issuer.Issue(ctx, user.User{ID: "ghost", Email: "ghost@example.com"})
	require.NoError(t, err)

	_, err = svc.CurrentUser(ctx, tok.AccessToken)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}
