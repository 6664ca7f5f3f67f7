package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore remembers keys that were already handled
type IdempotencyStore interface {
	// MarkProcessed records key for ttl. It returns true if the key was new
	// and false if it had already been marked and has not expired.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

const defaultIdempotencyPrefix = "zone:idempotency:"

// RedisIdempotencyStore implements IdempotencyStore with SETNX so that
// several worker processes share the same view
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store on an existing client
func NewRedisIdempotencyStore(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultIdempotencyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed implements IdempotencyStore
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark %s as processed: %w", key, err)
	}
	return ok, nil
}

// InMemoryIdempotencyStore is a process-local IdempotencyStore for tests
// and single-instance development setups
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewInMemoryIdempotencyStore creates an empty store
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{entries: make(map[string]time.Time), now: time.Now}
}

// MarkProcessed implements IdempotencyStore. Expired entries are swept on write.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, expiresAt := range s.entries {
		if !now.Before(expiresAt) {
			delete(s.entries, k)
		}
	}
	if _, ok := s.entries[key]; ok {
		return false, nil
	}
	s.entries[key] = now.Add(ttl)
	return true, nil
}

// Size returns the number of live entries
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var (
	_ IdempotencyStore = (*RedisIdempotencyStore)(nil)
	_ IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
)
