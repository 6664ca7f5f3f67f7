package auth

import (
	"testing"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "zone-test",
		MaxRefreshCount:        2,
	}
}

func newTestInput() GenerateTokenInput {
	return GenerateTokenInput{
		TenantID:    uuid.New(),
		UserID:      uuid.New(),
		Email:       "pastor@example.org",
		Permissions: []string{"finance.batches.read", "reports.query.execute"},
	}
}

func TestGenerateTokenPair(t *testing.T) {
	svc := NewJWTService(testJWTConfig())
	input := newTestInput()

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.True(t, pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt))

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, input.TenantID.String(), claims.TenantID)
	assert.Equal(t, input.UserID.String(), claims.UserID)
	assert.Equal(t, input.Email, claims.Email)
	assert.Equal(t, input.Permissions, claims.Permissions)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)

	refresh, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, refresh.Permissions)
	assert.Equal(t, 0, refresh.RefreshCount)
}

func TestValidateAccessToken(t *testing.T) {
	svc := NewJWTService(testJWTConfig())
	pair, err := svc.GenerateTokenPair(newTestInput())
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("refresh token signed with another secret", func(t *testing.T) {
		_, err := svc.ValidateAccessToken(pair.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewJWTService(testJWTConfig())
		expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
		old, err := expired.GenerateTokenPair(newTestInput())
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(old.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("other issuer", func(t *testing.T) {
		cfg := testJWTConfig()
		cfg.Issuer = "someone-else"
		foreign, err := NewJWTService(cfg).GenerateTokenPair(newTestInput())
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(foreign.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("different secret", func(t *testing.T) {
		cfg := testJWTConfig()
		cfg.Secret = "another-secret-key-at-least-32-chars"
		foreign, err := NewJWTService(cfg).GenerateTokenPair(newTestInput())
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(foreign.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestValidate_WrongTokenType(t *testing.T) {
	cfg := testJWTConfig()
	cfg.RefreshSecret = ""
	svc := NewJWTService(cfg)
	pair, err := svc.GenerateTokenPair(newTestInput())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	_, err = svc.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestRefreshTokenPair(t *testing.T) {
	svc := NewJWTService(testJWTConfig())
	input := newTestInput()
	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	refreshed, err := svc.RefreshTokenPair(pair.RefreshToken, []string{"cells.reports.read"})
	require.NoError(t, err)

	access, err := svc.ValidateAccessToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"cells.reports.read"}, access.Permissions)
	assert.Equal(t, input.Email, access.Email)

	refresh, err := svc.ValidateRefreshToken(refreshed.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 1, refresh.RefreshCount)

	again, err := svc.RefreshTokenPair(refreshed.RefreshToken, nil)
	require.NoError(t, err)

	_, err = svc.RefreshTokenPair(again.RefreshToken, nil)
	assert.ErrorIs(t, err, ErrMaxRefreshExceeded)

	_, err = svc.RefreshTokenPair(pair.AccessToken, nil)
	assert.Error(t, err)
}

func TestClaims(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()
	c := &Claims{
		TenantID:    tenantID.String(),
		UserID:      userID.String(),
		Permissions: []string{"a.read", "b.write"},
	}

	got, err := c.GetTenantUUID()
	require.NoError(t, err)
	assert.Equal(t, tenantID, got)
	got, err = c.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	assert.True(t, c.HasPermission("a.read"))
	assert.False(t, c.HasPermission("c.read"))
	assert.True(t, c.HasAnyPermission("c.read", "b.write"))
	assert.False(t, c.HasAnyPermission())
	assert.Zero(t, c.GetRemainingTTL())
}
