package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T, accessTTL time.Duration) TokenService {
	t.Helper()
	svc, err := NewTokenService(accessTTL, 24*time.Hour, "redline-test", "redline-api", false, "", "", "test-jwt-secret-key-32-characters")
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	t.Run("hmac requires a secret", func(t *testing.T) {
		_, err := NewTokenService(time.Minute, time.Hour, "iss", "aud", false, "", "", "")
		assert.Error(t, err)
	})

	t.Run("rsa requires both keys", func(t *testing.T) {
		_, err := NewTokenService(time.Minute, time.Hour, "iss", "aud", true, "", "", "")
		assert.Error(t, err)
	})
}

func TestGenerateAndValidateTokens(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute)

	access, refresh, err := svc.GenerateTokens(42)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	accessClaims, err := svc.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(42), accessClaims.UserID)
	assert.Equal(t, "access", accessClaims.TokenType)
	assert.NotEmpty(t, accessClaims.TokenID)
	assert.True(t, accessClaims.ExpiresAt.After(accessClaims.IssuedAt))

	refreshClaims, err := svc.ValidateToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.TokenType)
	assert.NotEqual(t, accessClaims.TokenID, refreshClaims.TokenID)
}

func TestValidateTokenFailures(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute)

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("token signed with a different secret", func(t *testing.T) {
		other, err := NewTokenService(15*time.Minute, time.Hour, "redline-test", "redline-api", false, "", "", "a-completely-different-secret")
		require.NoError(t, err)

		access, _, err := other.GenerateTokens(1)
		require.NoError(t, err)

		_, err = svc.ValidateToken(access)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := newTestTokenService(t, -time.Minute)

		access, _, err := expired.GenerateTokens(1)
		require.NoError(t, err)

		_, err = expired.ValidateToken(access)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestRefreshToken(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute)

	t.Run("refresh rotates the pair", func(t *testing.T) {
		_, refresh, err := svc.GenerateTokens(7)
		require.NoError(t, err)

		newAccess, newRefresh, err := svc.RefreshToken(refresh)
		require.NoError(t, err)
		assert.NotEmpty(t, newAccess)
		assert.NotEqual(t, refresh, newRefresh)

		claims, err := svc.ValidateToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(7), claims.UserID)
	})

	t.Run("access token cannot be used to refresh", func(t *testing.T) {
		access, _, err := svc.GenerateTokens(7)
		require.NoError(t, err)

		_, _, err = svc.RefreshToken(access)
		assert.Error(t, err)
	})
}
