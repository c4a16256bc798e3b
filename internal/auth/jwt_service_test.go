package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
}

func TestGenerateAndValidate(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "modlocker"})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken("user-1")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "modlocker", claims.Issuer)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	issued := time.Now().Add(-time.Hour)
	issuer, err := NewJWTService(JWTConfig{
		Secret:         "test-secret",
		AccessTokenTTL: time.Minute,
		Clock:          func() time.Time { return issued },
	})
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken("user-1")
	require.NoError(t, err)

	validator, err := NewJWTService(JWTConfig{Secret: "test-secret"})
	require.NoError(t, err)

	_, err = validator.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "other"})
	require.NoError(t, err)
	token, err := issuer.GenerateAccessToken("user-1")
	require.NoError(t, err)

	validator, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "modlocker"})
	require.NoError(t, err)

	_, err = validator.ValidateAccessToken(token)
	require.ErrorContains(t, err, "issuer")
}
