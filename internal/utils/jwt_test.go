package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	id := uuid.New()
	token, err := GenerateToken("s3cret", id, "admin", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.ID())
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, id.String(), claims.Subject)
}

func TestParseTokenRejects(t *testing.T) {
	id := uuid.New()

	valid, err := GenerateToken("s3cret", id, "user", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken("other", valid)
	assert.Error(t, err, "wrong secret")

	expired, err := GenerateToken("s3cret", id, "user", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("s3cret", expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: id.String()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken("s3cret", unsigned)
	assert.Error(t, err, "unsigned token")

	bogus := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "not-a-uuid"})
	signed, err := bogus.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = ParseToken("s3cret", signed)
	assert.Error(t, err, "user id must be a uuid")
}

func TestPasswordHash(t *testing.T) {
	PasswordCost = 4
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}
