package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultPermissionTTL bounds how stale a cached permission set can get when
// an invalidation is lost
const DefaultPermissionTTL = 5 * time.Minute

const permissionKeyPrefix = "zone:perms:"

// RedisPermissionCache stores each user's permission codes under a
// per-tenant generation. Invalidating a tenant bumps the generation, which
// orphans every entry written before it; the orphans expire on their TTL.
type RedisPermissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPermissionCache creates a cache. A zero ttl uses DefaultPermissionTTL.
func NewRedisPermissionCache(client *redis.Client, ttl time.Duration) *RedisPermissionCache {
	if ttl <= 0 {
		ttl = DefaultPermissionTTL
	}
	return &RedisPermissionCache{client: client, ttl: ttl}
}

func generationKey(tenantID uuid.UUID) string {
	return permissionKeyPrefix + tenantID.String() + ":gen"
}

func (c *RedisPermissionCache) entryKey(ctx context.Context, tenantID, userID uuid.UUID) (string, error) {
	gen, err := c.client.Get(ctx, generationKey(tenantID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to read permission cache generation: %w", err)
	}
	return fmt.Sprintf("%s%s:%d:%s", permissionKeyPrefix, tenantID, gen, userID), nil
}

// Get implements appiam.PermissionCache
func (c *RedisPermissionCache) Get(ctx context.Context, tenantID, userID uuid.UUID) ([]string, bool, error) {
	key, err := c.entryKey(ctx, tenantID, userID)
	if err != nil {
		return nil, false, err
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached permissions: %w", err)
	}
	var codes []string
	if err := json.Unmarshal(raw, &codes); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached permissions: %w", err)
	}
	return codes, true, nil
}

// Set implements appiam.PermissionCache
func (c *RedisPermissionCache) Set(ctx context.Context, tenantID, userID uuid.UUID, codes []string) error {
	key, err := c.entryKey(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if codes == nil {
		codes = []string{}
	}
	raw, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache permissions: %w", err)
	}
	return nil
}

// InvalidateTenant implements appiam.PermissionCache
func (c *RedisPermissionCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	if err := c.client.Incr(ctx, generationKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate permission cache: %w", err)
	}
	return nil
}

type permissionEntry struct {
	codes     []string
	expiresAt time.Time
}

// InMemoryPermissionCache is a process-local appiam.PermissionCache
type InMemoryPermissionCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[uuid.UUID]map[uuid.UUID]permissionEntry
	now     func() time.Time
}

// NewInMemoryPermissionCache creates a cache. A zero ttl uses DefaultPermissionTTL.
func NewInMemoryPermissionCache(ttl time.Duration) *InMemoryPermissionCache {
	if ttl <= 0 {
		ttl = DefaultPermissionTTL
	}
	return &InMemoryPermissionCache{
		ttl:     ttl,
		entries: make(map[uuid.UUID]map[uuid.UUID]permissionEntry),
		now:     time.Now,
	}
}

// Get implements appiam.PermissionCache
func (c *InMemoryPermissionCache) Get(_ context.Context, tenantID, userID uuid.UUID) ([]string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[tenantID][userID]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return slices.Clone(e.codes), true, nil
}

// Set implements appiam.PermissionCache
func (c *InMemoryPermissionCache) Set(_ context.Context, tenantID, userID uuid.UUID, codes []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	users, ok := c.entries[tenantID]
	if !ok {
		users = make(map[uuid.UUID]permissionEntry)
		c.entries[tenantID] = users
	}
	users[userID] = permissionEntry{codes: slices.Clone(codes), expiresAt: c.now().Add(c.ttl)}
	return nil
}

// InvalidateTenant implements appiam.PermissionCache
func (c *InMemoryPermissionCache) InvalidateTenant(_ context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
	return nil
}

var (
	_ appiam.PermissionCache = (*RedisPermissionCache)(nil)
	_ appiam.PermissionCache = (*InMemoryPermissionCache)(nil)
)
