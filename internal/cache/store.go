package cache

import (
	"context"
	"time"
)

// Store represents a shared TTL-bounded key-value store. It backs the
// pending-subscription records and the request rate limiter; the concrete
// implementation is Redis when configured, the primary database otherwise.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Take atomically retrieves and removes a key. Concurrent callers see at
	// most one hit, which makes it safe for one-shot records.
	Take(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
