package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/catalog/internal/domain/user"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

type Service struct {
	users  UserStore
	hasher PasswordHasher
	tokens *Issuer
}

func NewService(users UserStore, hasher PasswordHasher, tokens *Issuer) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

func (s *Service) Register(ctx context.Context, name, email, password string) (user.User, Token, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user.User{}, Token{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()

	u, err := s.users.Create(ctx, user.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        user.NormalizeEmail(email),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return user.User{}, Token{}, err
	}

	tok, err := s.tokens.Issue(ctx, u)
	if err != nil {
		return user.User{}, Token{}, err
	}

	return u, tok, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (user.User, Token, error) {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		return user.User{}, Token{}, err
	}

	if !s.hasher.Verify(u.PasswordHash, password) {
		return user.User{}, Token{}, ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(ctx, u)
	if err != nil {
		return user.User{}, Token{}, err
	}

	return u, tok, nil
}

func (s *Service) Logout(ctx context.Context, raw string) error {
	return s.tokens.Revoke(ctx, raw)
}

func (s *Service) CurrentUser(ctx context.Context, raw string) (user.User, error) {
	rec, err := s.tokens.Verify(ctx, raw)
	if err != nil {
		return user.User{}, err
	}

	u, err := s.users.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrUnauthenticated
		}
		return user.User{}, err
	}

	return u, nil
}
