// Package ratelimit limits how often a client may create links.
//
// Counters live in Redis so that every replica of the server shares the
// same budget per client. Each client gets a fixed window: the first
// request opens it and the window's key expires when it closes.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ayiooo/shortlink/internal/errx"
)

const defaultKeyPrefix = "shortlink:ratelimit:"

// Result describes the state of a client's window after a request.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time // when the current window closes
}

// RetryAfter returns how long a rejected client should wait.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.Reset.Sub(now)
	if d < time.Second {
		return time.Second
	}
	return d.Round(time.Second)
}

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter is a fixed-window Limiter backed by Redis.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// Config holds configuration for a RedisLimiter.
type Config struct {
	Requests  int           // requests allowed per window
	Window    time.Duration // window length, at least 1s
	KeyPrefix string        // default: "shortlink:ratelimit:"
	Now       func() time.Time
}

// NewRedisLimiter creates a RedisLimiter.
func NewRedisLimiter(client redis.Cmdable, cfg Config) (*RedisLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.Requests <= 0 {
		return nil, fmt.Errorf("requests per window must be positive, got %d", cfg.Requests)
	}
	if cfg.Window < time.Second {
		return nil, fmt.Errorf("window must be at least 1s, got %v", cfg.Window)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &RedisLimiter{
		client: client,
		limit:  cfg.Requests,
		window: cfg.Window,
		prefix: prefix,
		now:    now,
	}, nil
}

// Allow counts one request against key's current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	const op = "ratelimit.RedisLimiter.Allow"

	k := l.prefix + key
	var (
		count *redis.IntCmd
		ttl   *redis.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, l.window)
		count = pipe.Incr(ctx, k)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Result{}, errx.E(op, errx.Unavailable, err)
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		// Key has no expiry; reopen the window.
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return Result{}, errx.E(op, errx.Unavailable, err)
		}
		remaining = l.window
	}

	n := int(count.Val())
	left := l.limit - n
	if left < 0 {
		left = 0
	}

	return Result{
		Allowed:   n <= l.limit,
		Limit:     l.limit,
		Remaining: left,
		Reset:     l.now().Add(remaining),
	}, nil
}
