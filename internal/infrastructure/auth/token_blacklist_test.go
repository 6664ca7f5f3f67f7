package auth

import (
	"context"
	"testing"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenBlacklist(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	b := NewInMemoryTokenBlacklist()
	b.now = func() time.Time { return now }

	t.Run("jti expires with its ttl", func(t *testing.T) {
		require.NoError(t, b.Revoke(ctx, "jti-1", time.Minute))

		revoked, err := b.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)

		revoked, err = b.IsRevoked(ctx, "jti-2")
		require.NoError(t, err)
		assert.False(t, revoked)

		now = now.Add(2 * time.Minute)
		revoked, err = b.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("user revocation covers earlier tokens only", func(t *testing.T) {
		issued := now.Add(-time.Minute)
		require.NoError(t, b.RevokeUser(ctx, "user-1", time.Hour))

		revoked, err := b.IsUserRevoked(ctx, "user-1", issued)
		require.NoError(t, err)
		assert.True(t, revoked)

		revoked, err = b.IsUserRevoked(ctx, "user-1", now.Add(time.Second))
		require.NoError(t, err)
		assert.False(t, revoked)

		revoked, err = b.IsUserRevoked(ctx, "user-2", issued)
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}

func TestRedisTokenBlacklist(t *testing.T) {
	client := testutil.RedisClient(t)
	ctx := context.Background()
	b := NewRedisTokenBlacklist(client)

	jti := uuid.NewString()
	require.NoError(t, b.Revoke(ctx, jti, time.Minute))
	revoked, err := b.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	user := uuid.NewString()
	require.NoError(t, b.RevokeUser(ctx, user, time.Minute))
	revoked, err = b.IsUserRevoked(ctx, user, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, revoked)
	revoked, err = b.IsUserRevoked(ctx, user, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, revoked)
}
