package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldplan/allocator/internal/utils/auth"
	cfgtypes "github.com/fieldplan/allocator/pkg/types/config"
)

func testConfig() *cfgtypes.ServiceConfig {
	return &cfgtypes.ServiceConfig{Environment: "development"}
}

func TestGenerateAndValidateToken(t *testing.T) {
	cfg := testConfig()

	t.Run("valid token round-trips successfully", func(t *testing.T) {
		token, err := auth.GenerateToken("client-1", "admin", cfg)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		parsed, err := auth.ValidateToken(token, cfg)
		require.NoError(t, err)

		claims, ok := parsed.Claims.(*auth.Claims)
		require.True(t, ok)
		assert.Equal(t, "client-1", claims.ClientID)
		assert.Equal(t, "admin", claims.Role)
		assert.Equal(t, "development", claims.Environment)
	})

	t.Run("rejects token validated against a different environment", func(t *testing.T) {
		token, err := auth.GenerateToken("client-2", "viewer", cfg)
		require.NoError(t, err)

		otherEnv := &cfgtypes.ServiceConfig{Environment: "production"}
		_, err = auth.ValidateToken(token, otherEnv)
		assert.Error(t, err)
	})

	t.Run("rejects revoked token", func(t *testing.T) {
		token, err := auth.GenerateToken("client-3", "admin", cfg)
		require.NoError(t, err)

		auth.RevokeToken(token)
		_, err = auth.ValidateToken(token, cfg)
		assert.Error(t, err)
	})

	t.Run("rejects malformed token", func(t *testing.T) {
		_, err := auth.ValidateToken("not-a-jwt", cfg)
		assert.Error(t, err)
	})

	t.Run("requires both client id and config", func(t *testing.T) {
		_, err := auth.GenerateToken("", "admin", cfg)
		assert.Error(t, err)

		_, err = auth.GenerateToken("client-4", "admin", nil)
		assert.Error(t, err)
	})
}

func TestGenerateRefreshToken(t *testing.T) {
	cfg := testConfig()

	token, err := auth.GenerateRefreshToken("client-refresh", cfg)
	require.NoError(t, err)

	parsed, err := auth.ValidateToken(token, cfg)
	require.NoError(t, err)
	claims := parsed.Claims.(*auth.Claims)
	assert.Equal(t, "client-refresh", claims.ClientID)
	assert.True(t, claims.ExpiresAt.Time.After(time.Now().Add(24*time.Hour)))
}
