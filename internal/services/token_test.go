package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roktolink/roktolink-backend/internal/errs"
	"github.com/roktolink/roktolink-backend/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	InitTokens("unit-test-secret", time.Hour)

	user := &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	signed, err := IssueToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := ParseToken(signed)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, user.ID.Hex(), claims.Subject)
}

func TestParseToken_Garbage(t *testing.T) {
	InitTokens("unit-test-secret", time.Hour)

	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := ParseToken(raw)
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrUnauthorized)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	InitTokens("first-secret", time.Hour)
	user := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	signed, err := IssueToken(user)
	require.NoError(t, err)

	InitTokens("second-secret", time.Hour)
	_, err = ParseToken(signed)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestParseToken_Expired(t *testing.T) {
	InitTokens("unit-test-secret", time.Hour)

	claims := TokenClaims{
		UserID: primitive.NewObjectID().Hex(),
		Role:   models.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)

	_, err = ParseToken(signed)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestParseToken_RejectsAlgNone(t *testing.T) {
	InitTokens("unit-test-secret", time.Hour)

	claims := TokenClaims{
		UserID: primitive.NewObjectID().Hex(),
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(signed)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}
