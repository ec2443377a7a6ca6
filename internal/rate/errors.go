package rate

import "errors"

var (
	// ErrRateLimited means the key has no attempts left in the current window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps failures talking to Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
