package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window request counter.
// Key format: ratelimit:<key>:<window index>
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{client: client, limit: limit, window: window, now: time.Now}
}

// Allow counts one hit for key. It reports whether the hit is within the limit
// and how long until the current window resets.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	slot := now.UnixNano() / int64(l.window)
	reset := time.Unix(0, (slot+1)*int64(l.window)).Sub(now)

	k := windowKey(key, slot)
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, fmt.Errorf("rate limit: %w", err)
	}
	return incr.Val() <= l.limit, reset, nil
}

func windowKey(key string, slot int64) string {
	return fmt.Sprintf("ratelimit:%s:%d", key, slot)
}
