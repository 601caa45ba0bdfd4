package handlers

import (
	"context"
	"time"

	"github.com/geocoder89/catalog/internal/auth"
	"github.com/geocoder89/catalog/internal/domain/user"
	"github.com/geocoder89/catalog/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

const authTimeout = 3 * time.Second

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (user.User, auth.Token, error)
	Login(ctx context.Context, email, password string) (user.User, auth.Token, error)
	Logout(ctx context.Context, raw string) error
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// AuthData is the payload of register and login.
type AuthData struct {
	User        user.User `json:"user"`
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func newAuthData(u user.User, tok auth.Token) AuthData {
	return AuthData{
		User:        u,
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresAt:   tok.ExpiresAt,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	u, tok, err := h.svc.Register(cctx, req.Name, req.Email, req.Password)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondSuccess(ctx, newAuthData(u, tok), "Registered successfully.")
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	u, tok, err := h.svc.Login(cctx, req.Email, req.Password)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondSuccess(ctx, newAuthData(u, tok), "Logged in successfully.")
}

// Profile returns the user RequireAuth already resolved.
func (h *AuthHandler) Profile(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)
	if !ok {
		RespondErr(ctx, auth.ErrUnauthenticated)
		return
	}

	RespondSuccess(ctx, u, "Profile retrieved.")
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, ok := middlewares.TokenFromContext(ctx)
	if !ok {
		RespondErr(ctx, auth.ErrUnauthenticated)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	if err := h.svc.Logout(cctx, raw); err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondSuccess(ctx, nil, "Logged out successfully.")
}
