// Package ratelimit caps per-requester scoring calls with a rolling-window
// counter in redis: increment, set the expiry only on the first hit of the
// window, compare against the ceiling.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed   bool
	Remaining int64
}

type Limiter struct {
	client redis.Cmdable
	logger *slog.Logger
}

func New(client redis.Cmdable, logger *slog.Logger) *Limiter {
	return &Limiter{client: client, logger: logger}
}

// Allow counts one call for key. A limiter whose backing store is down must
// not block scoring, so backend errors fail open: the call is allowed and
// the limit is simply not enforced this once.
func (l *Limiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) Result {
	redisKey := "rate_limit:" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.logger.Warn("rate limit check failed, allowing call", "key", key, "error", err)
		return Result{Allowed: true, Remaining: limit}
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, window).Err(); err != nil {
			l.logger.Warn("rate limit expiry not set", "key", key, "error", err)
		}
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: count <= limit, Remaining: remaining}
}
