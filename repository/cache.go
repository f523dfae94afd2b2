package repository

import (
	"context"
	"time"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent or expired.
// It is defined here rather than in domain because a miss is flow control,
// not a failure.
type cacheMiss struct{}

func (cacheMiss) Error() string { return "cache miss" }

var ErrCacheMiss error = cacheMiss{}

// Cache is a generic expiring key-value contract. Any conforming store (an
// in-process map, Redis) satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
