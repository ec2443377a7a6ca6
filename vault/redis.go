package vault

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	redisFieldValue    = "v"
	redisFieldSameSite = "ss"
)

// RedisStore is a durable CookieStore backed by Redis hashes. Cookie expiry
// maps onto the key TTL so Redis evicts entries the vault already treats as
// absent.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed store. Keys are written as
// "<prefix>:<key>"; an empty prefix defaults to "aat".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "aat"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

// Set writes the cookie and its SameSite attribute in one transaction.
func (s *RedisStore) Set(ctx context.Context, key, value string, opts CookieOptions) error {
	if key == "" {
		return ErrInvalidKey
	}

	rk := s.key(key)
	ttl := opts.TTL()
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, rk)
		pipe.HSet(ctx, rk, redisFieldValue, value, redisFieldSameSite, strconv.Itoa(int(opts.SameSite)))
		if ttl > 0 {
			pipe.Expire(ctx, rk, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.redis.HGet(ctx, s.key(key), redisFieldValue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return value, true, nil
}

// Remove is idempotent: deleting a missing key is not an error.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
