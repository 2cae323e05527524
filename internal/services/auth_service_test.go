package services

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAPIKey(t *testing.T) {
	env := newTestEnv(t)

	user, rawKey, err := env.users.Register(context.Background(), models.CreateUserRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	userID, err := env.auth.ResolveAPIKey(rawKey)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	_, err = env.auth.ResolveAPIKey("not-a-real-key")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	_, err = env.auth.ResolveAPIKey("")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestGenerateAPIKey_Unique(t *testing.T) {
	first, err := GenerateAPIKey()
	require.NoError(t, err)
	second, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestLogin_TokenRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "Alice", "alice@example.com")

	token, err := env.auth.Login("alice@example.com", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := env.auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "Alice", "alice@example.com")

	_, err := env.auth.Login("alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.Login("nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateToken_Rejections(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Token signed with a different secret must not validate.
	claims := SessionClaims{
		UserID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "splitledger",
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = env.auth.ValidateToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
