package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window request counter per client key
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	remaining int
	resetAt   time.Time
}

// NewRateLimiter allows limit requests per period for each key
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow consumes one request of key and reports whether it is within the
// limit, along with the requests left in the current window
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{remaining: rl.limit, resetAt: now.Add(rl.period)}
		rl.clients[key] = w
	}
	if w.remaining <= 0 {
		return false, 0
	}
	w.remaining--
	return true, w.remaining
}

// RunCleanup drops expired windows every period until ctx is done
func (rl *RateLimiter) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, w := range rl.clients {
				if !now.Before(w.resetAt) {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// RateLimit limits requests per authenticated user, or per client IP before
// authentication has run
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if actor, ok := GetActor(c); ok {
			key = "user:" + actor.UserID.String()
		}
		ok, remaining := rl.Allow(key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			abort(c, dto.ErrCodeRateLimited, "Too many requests, please try again later")
			return
		}
		c.Next()
	}
}
