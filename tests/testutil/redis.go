package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient connects to the server named by ZONE_TEST_REDIS_ADDR and skips
// the test when the variable is unset or the server does not answer
func RedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("ZONE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ZONE_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis at %s unavailable: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
