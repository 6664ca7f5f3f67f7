package cache

import (
	"context"
	"testing"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewInMemoryIdempotencyStore()
	store.now = func() time.Time { return now }

	isNew, err := store.MarkProcessed(ctx, "imports.process:job-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.MarkProcessed(ctx, "imports.process:job-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, isNew, "a marked key is not new until it expires")

	now = now.Add(time.Minute)
	isNew, err = store.MarkProcessed(ctx, "imports.process:job-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryPermissionCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewInMemoryPermissionCache(time.Minute)
	c.now = func() time.Time { return now }
	tenant, other := uuid.New(), uuid.New()
	user := uuid.New()

	_, ok, err := c.Get(ctx, tenant, user)
	require.NoError(t, err)
	assert.False(t, ok)

	codes := []string{"finance.verify", "reports.query.execute"}
	require.NoError(t, c.Set(ctx, tenant, user, codes))
	require.NoError(t, c.Set(ctx, other, user, codes))
	codes[0] = "mutated"

	got, ok, err := c.Get(ctx, tenant, user)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"finance.verify", "reports.query.execute"}, got)

	t.Run("invalidation is per tenant", func(t *testing.T) {
		require.NoError(t, c.InvalidateTenant(ctx, tenant))
		_, ok, _ := c.Get(ctx, tenant, user)
		assert.False(t, ok)
		_, ok, _ = c.Get(ctx, other, user)
		assert.True(t, ok)
	})

	t.Run("entries expire", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		_, ok, _ := c.Get(ctx, other, user)
		assert.False(t, ok)
	})
}

func TestRedisPermissionCache(t *testing.T) {
	client := testutil.RedisClient(t)
	ctx := context.Background()
	c := NewRedisPermissionCache(client, time.Minute)
	tenant, user := uuid.New(), uuid.New()

	_, ok, err := c.Get(ctx, tenant, user)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, tenant, user, nil))
	got, ok, err := c.Get(ctx, tenant, user)
	require.NoError(t, err)
	require.True(t, ok, "an empty permission set is cached too")
	assert.Empty(t, got)

	require.NoError(t, c.Set(ctx, tenant, user, []string{"cells.manage"}))
	got, ok, err = c.Get(ctx, tenant, user)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"cells.manage"}, got)

	require.NoError(t, c.InvalidateTenant(ctx, tenant))
	_, ok, err = c.Get(ctx, tenant, user)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisIdempotencyStore(t *testing.T) {
	client := testutil.RedisClient(t)
	ctx := context.Background()
	store := NewRedisIdempotencyStore(client, "zone:test:idempotency:")
	key := uuid.NewString()

	isNew, err := store.MarkProcessed(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.MarkProcessed(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, isNew)
}
