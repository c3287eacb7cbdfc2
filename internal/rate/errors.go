package rate

import "errors"

var (
	// ErrRateLimited signals the attempt budget for a key is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any Redis transport failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
