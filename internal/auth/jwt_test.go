package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func TestNewTokenServiceRejectsShortSecret(t *testing.T) {
	_, err := NewTokenService("short")
	assert.Error(t, err)
}

func TestGenerateAndValidate(t *testing.T) {
	s, err := NewTokenService(testSecret)
	require.NoError(t, err)

	token, err := s.Generate("user-42")
	require.NoError(t, err)

	userID, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestGenerateRequiresUser(t *testing.T) {
	s, err := NewTokenService(testSecret)
	require.NoError(t, err)

	_, err = s.Generate("")
	assert.Error(t, err)
}

func TestValidateExpired(t *testing.T) {
	s, err := NewTokenService(testSecret)
	require.NoError(t, err)

	token, err := s.GenerateWithDuration("user-42", -time.Minute)
	require.NoError(t, err)

	_, err = s.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateWrongSecret(t *testing.T) {
	issuerSvc, err := NewTokenService(testSecret)
	require.NoError(t, err)
	other, err := NewTokenService("a-completely-different-secret")
	require.NoError(t, err)

	token, err := issuerSvc.Generate("user-42")
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsForeignIssuer(t *testing.T) {
	s, err := NewTokenService(testSecret)
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-42",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := foreign.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = s.Validate(signed)
	assert.Error(t, err)
}

func TestValidateRejectsNoneAlgorithm(t *testing.T) {
	s, err := NewTokenService(testSecret)
	require.NoError(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-42",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = s.Validate(signed)
	assert.Error(t, err)
}

func TestValidateGarbage(t *testing.T) {
	s, err := NewTokenService(testSecret)
	require.NoError(t, err)

	_, err = s.Validate("not-a-token")
	assert.Error(t, err)
}
