package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GenerateAndVerify(t *testing.T) {
	m := NewManager(strings.Repeat("s", 32), time.Hour)

	raw, jti, exp, err := m.GenerateAccessToken("u1", "ada@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, jti)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.VerifyAccessToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, jti, claims.JTI)
}

func TestManager_Rejects(t *testing.T) {
	secret := strings.Repeat("s", 32)
	m := NewManager(secret, time.Hour)

	good, _, _, err := m.GenerateAccessToken("u1", "ada@example.com")
	require.NoError(t, err)

	expired, _, _, err := NewManager(secret, -time.Minute).GenerateAccessToken("u1", "ada@example.com")
	require.NoError(t, err)

	foreign, _, _, err := NewManager(strings.Repeat("x", 32), time.Hour).GenerateAccessToken("u1", "ada@example.com")
	require.NoError(t, err)

	wrongType, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    "u1",
		TokenType: "refresh",
		JTI:       "j1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	noJTI, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    "u1",
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":       "not-a-token",
		"expired":       expired,
		"other secret":  foreign,
		"wrong type":    wrongType,
		"missing jti":   noJTI,
		"tampered tail": good[:len(good)-2] + "xx",
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.VerifyAccessToken(raw)
			assert.Error(t, err)
		})
	}
}

func TestManager_HashTokenIsStable(t *testing.T) {
	m := NewManager(strings.Repeat("s", 32), time.Hour)

	assert.Equal(t, m.HashToken("abc"), m.HashToken("abc"))
	assert.NotEqual(t, m.HashToken("abc"), m.HashToken("abd"))
	assert.NotEqual(t, m.HashToken("abc"), NewManager(strings.Repeat("x", 32), time.Hour).HashToken("abc"))
}
