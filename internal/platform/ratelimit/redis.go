package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "consent:ratelimit:v1:"

// RedisLimiter is a fixed-window limiter backed by a shared redis counter,
// so the budget holds across replicas.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a limiter allowing limit requests per key per
// window, counted in redis.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow increments the window counter for key and reports whether the
// request is within budget.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	redisKey := redisKeyPrefix + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}

	count := int(incr.Val())
	resetAt := time.Now().Add(ttl.Val())

	if count > l.limit {
		return &Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}
	return &Result{Allowed: true, Remaining: l.limit - count, ResetAt: resetAt}, nil
}
