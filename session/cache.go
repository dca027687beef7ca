package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheUnavailable wraps every transport failure from the cache backend.
var ErrCacheUnavailable = errors.New("cache unavailable")

// ErrCorruptValue is returned when a cached registry or snapshot cannot be decoded.
var ErrCorruptValue = errors.New("corrupt cache value")

// ErrInvalidTTL is returned when a write is attempted with a non-positive TTL.
var ErrInvalidTTL = errors.New("ttl must be > 0")

// Cache is the key-value contract of the volatile tier. Every key carries
// its own TTL. A missing key is reported as found == false with a nil error.
type Cache interface {
	GetString(ctx context.Context, key string) (value string, found bool, err error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	Remove(ctx context.Context, keys ...string) error
}

// RedisCache implements [Cache] over any go-redis client.
type RedisCache struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisCache wraps rdb. A non-empty prefix is prepended to every key as
// "<prefix>:<key>".
func NewRedisCache(rdb redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{redis: rdb, prefix: prefix}
}

func (c *RedisCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// GetString reads key.
func (c *RedisCache) GetString(ctx context.Context, key string) (string, bool, error) {
	val, err := c.redis.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return val, true, nil
}

// SetString writes key with the given TTL, replacing any previous value.
func (c *RedisCache) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if err := c.redis.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Remove deletes keys. Deleting a missing key is not an error.
func (c *RedisCache) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, full...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Ping checks connectivity and returns the round-trip latency.
func (c *RedisCache) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return time.Since(start), nil
}
