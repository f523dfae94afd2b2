package redis

import (
	"context"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/taskpulse/backend/repository"
)

type cache struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewCache creates a Redis-backed expiring key-value store. The default TTL
// applies when a caller passes a non-positive one.
func NewCache(client *redislib.Client, defaultTTL time.Duration) repository.Cache {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &cache{
		client: client,
		prefix: "taskpulse:",
		ttl:    defaultTTL,
	}
}

func (c *cache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, repository.ErrCacheMiss
		}
		return nil, err
	}
	return value, nil
}

func (c *cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

func (c *cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}
