package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist revokes tokens before they expire. Single tokens are revoked
// by jti; a user revocation rejects every token issued up to that moment.
type TokenBlacklist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
	IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

const blacklistPrefix = "zone:auth:revoked:"

// RedisTokenBlacklist keeps revocations in Redis with the token's remaining TTL
type RedisTokenBlacklist struct {
	client *redis.Client
}

// NewRedisTokenBlacklist creates a blacklist on a shared client
func NewRedisTokenBlacklist(client *redis.Client) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

func (b *RedisTokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, blacklistPrefix+"jti:"+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (b *RedisTokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistPrefix+"jti:"+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

func (b *RedisTokenBlacklist) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := b.client.Set(ctx, blacklistPrefix+"user:"+userID, time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

func (b *RedisTokenBlacklist) IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	raw, err := b.client.Get(ctx, blacklistPrefix+"user:"+userID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revoked user: %w", err)
	}
	since, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse revocation time: %w", err)
	}
	return issuedAt.Unix() <= since, nil
}

// InMemoryTokenBlacklist is a process-local blacklist for tests and single
// instance deployments
type InMemoryTokenBlacklist struct {
	mu    sync.Mutex
	jtis  map[string]time.Time
	users map[string]time.Time
	now   func() time.Time
}

// NewInMemoryTokenBlacklist creates an empty in-memory blacklist
func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		jtis:  make(map[string]time.Time),
		users: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (b *InMemoryTokenBlacklist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jtis[jti] = b.now().Add(ttl)
	return nil
}

func (b *InMemoryTokenBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	expires, ok := b.jtis[jti]
	if !ok {
		return false, nil
	}
	if b.now().After(expires) {
		delete(b.jtis, jti)
		return false, nil
	}
	return true, nil
}

func (b *InMemoryTokenBlacklist) RevokeUser(_ context.Context, userID string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[userID] = b.now()
	return nil
}

func (b *InMemoryTokenBlacklist) IsUserRevoked(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	since, ok := b.users[userID]
	if !ok {
		return false, nil
	}
	return !issuedAt.After(since), nil
}

var (
	_ TokenBlacklist = (*RedisTokenBlacklist)(nil)
	_ TokenBlacklist = (*InMemoryTokenBlacklist)(nil)
)
