package token

import (
	"errors"
	"time"
)

// Record is the server-side half of a bearer token. The raw token is never
// stored, only its HMAC.
type Record struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

var ErrNotFound = errors.New("auth token not found")

func (r Record) Active(now time.Time) bool {
	return r.RevokedAt == nil && now.Before(r.ExpiresAt)
}
