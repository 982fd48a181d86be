package security

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter over Redis, keyed per caller.
type RateLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  int64(limit),
		window: window,
	}
}

// Allow reports whether the caller identified by key may proceed.
// Redis errors fail open: rate limiting protects the verify endpoint
// from abuse, it is not a correctness gate.
func (r *RateLimiter) Allow(ctx context.Context, key string) bool {
	counterKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := r.redis.Incr(ctx, counterKey).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		r.redis.Expire(ctx, counterKey, r.window)
	}

	return count <= r.limit
}
