// Package limits implements the redis-backed fixed-window counter that
// throttles login attempts per email.
package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

// AttemptLimiter caps how many times a key may be used per window. Windows
// are aligned to the clock, so a burst right at a boundary can see up to 2x
// the limit; good enough for login throttling.
type AttemptLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewAttemptLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *AttemptLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &AttemptLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow records one attempt for key and reports whether it is within the
// window's limit. A nil limiter or client allows everything.
func (l *AttemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.client == nil || l.limit <= 0 {
		return true, nil
	}

	bucket := time.Now().UTC().Unix() / int64(l.window.Seconds())
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	cnt, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("incr attempt counter: %w", err)
	}
	if cnt == 1 {
		l.client.Expire(ctx, redisKey, l.window)
	}
	return int(cnt) <= l.limit, nil
}
