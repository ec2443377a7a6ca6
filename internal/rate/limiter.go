package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	// MaxAttempts is how many failures a key may record per window.
	MaxAttempts int
	Window      time.Duration
	// Prefix namespaces the counters; empty defaults to "al".
	Prefix string
}

// Limiter counts failed attempts per key in fixed windows stored in Redis.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) (*Limiter, error) {
	if redisClient == nil {
		return nil, ErrRedisUnavailable
	}
	if cfg.MaxAttempts <= 0 || cfg.Window <= 0 {
		return nil, errors.New("rate: MaxAttempts and Window must be > 0")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "al"
	}
	return &Limiter{redis: redisClient, config: cfg}, nil
}

// Check returns ErrRateLimited once key has used its budget for the window.
func (l *Limiter) Check(ctx context.Context, key string) error {
	count, err := l.Attempts(ctx, key)
	if err != nil {
		return err
	}
	if count >= l.config.MaxAttempts {
		return ErrRateLimited
	}
	return nil
}

// Fail records a failed attempt and returns the count within the window.
func (l *Limiter) Fail(ctx context.Context, key string) (int, error) {
	k := l.key(key)
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.config.Window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return int(count), nil
}

// Reset clears the counter for key. Called after a successful attempt.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the current counter for key. Missing keys return zero.
func (l *Limiter) Attempts(ctx context.Context, key string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) key(k string) string {
	return l.config.Prefix + ":" + strings.ToLower(strings.TrimSpace(k))
}
