package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager(JWTConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"})

	token, err := m.Generate("user-1", "a@b.com", "ADMIN")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, "ADMIN", claims.Role)
}

func TestJWTRejectsOtherSecret(t *testing.T) {
	token, err := NewJWTManager(JWTConfig{Secret: "one"}).Generate("u", "e@x.com", "STUDENT")
	require.NoError(t, err)

	_, err = NewJWTManager(JWTConfig{Secret: "two"}).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTExpired(t *testing.T) {
	m := NewJWTManager(JWTConfig{Secret: "secret", Expiry: -time.Minute})
	// a negative expiry falls back to the default, so build an expired token by hand
	m.config.Expiry = -time.Minute

	token, err := m.Generate("u", "e@x.com", "STUDENT")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("123")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword(hash, "secret1"))
	assert.ErrorIs(t, VerifyPassword(hash, "wrong"), ErrPasswordMismatch)
}

func TestGenerateOTP(t *testing.T) {
	code, err := GenerateOTP(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9')
	}
	assert.True(t, OTPEqual(code, code))
	assert.False(t, OTPEqual(code, "abcdef"))
}
