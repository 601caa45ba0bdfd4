package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/catalog/internal/auth"
	"github.com/geocoder89/catalog/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Authenticator resolves a bearer token to its user. auth.Service satisfies it.
type Authenticator interface {
	CurrentUser(ctx context.Context, raw string) (user.User, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(a Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: a}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortEnvelope(c, http.StatusUnauthorized, "Unauthenticated.", nil)
			return
		}

		u, err := m.auth.CurrentUser(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				abortEnvelope(c, http.StatusUnauthorized, "Unauthenticated.", nil)
				return
			}

			slog.Default().ErrorContext(c.Request.Context(), "token lookup failed", "err", err)
			abortEnvelope(c, http.StatusInternalServerError, "Something went wrong. Please try again.", nil)
			return
		}

		c.Set(CtxUser, u)
		c.Set(CtxUserID, u.ID)
		c.Set(CtxToken, raw)

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// Helpers so handlers don't need to know the context keys.

func UserFromContext(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	return c.GetString(CtxUserID), c.GetString(CtxUserID) != ""
}

func TokenFromContext(c *gin.Context) (string, bool) {
	return c.GetString(CtxToken), c.GetString(CtxToken) != ""
}
