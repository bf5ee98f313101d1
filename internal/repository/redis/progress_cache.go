package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/santhoshmp/learningplanner/internal/core/port"
	"github.com/santhoshmp/learningplanner/internal/repository"
)

// ProgressCache implements port.Cache on Redis. A miss surfaces as
// repository.ErrNotFound; any transport failure surfaces as
// repository.ErrCacheUnavailable so callers can fall back to direct reads.
type ProgressCache struct {
	client *redis.Client
}

// NewProgressCache constructs a ProgressCache.
func NewProgressCache(client *redis.Client) *ProgressCache {
	return &ProgressCache{client: client}
}

func wrapUnavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", repository.ErrCacheUnavailable, op, err)
}

// Get returns the cached value for key.
func (c *ProgressCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, wrapUnavailable("get", err)
	}
	return value, nil
}

// Set stores value under key with the given TTL.
func (c *ProgressCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return wrapUnavailable("set", err)
	}
	return nil
}

// MSet stores all pairs with a shared TTL using one pipeline round trip.
func (c *ProgressCache) MSet(ctx context.Context, pairs map[string][]byte, ttl time.Duration) error {
	if len(pairs) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for key, value := range pairs {
		pipe.Set(ctx, key, value, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapUnavailable("mset", err)
	}

	return nil
}

// MGet returns the cached values for the given keys. Missing keys are simply
// absent from the result; only transport failures return an error.
func (c *ProgressCache) MGet(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, wrapUnavailable("mget", err)
	}

	result := make(map[string][]byte, len(keys))
	for i, raw := range values {
		if raw == nil {
			continue
		}
		switch v := raw.(type) {
		case string:
			result[keys[i]] = []byte(v)
		case []byte:
			result[keys[i]] = v
		}
	}

	return result, nil
}

// Delete removes the given keys. Deleting absent keys is not an error.
func (c *ProgressCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return wrapUnavailable("delete", err)
	}
	return nil
}

// DeleteByPattern removes every key matching the glob pattern. SCAN keeps the
// walk incremental so large keyspaces never block the server.
func (c *ProgressCache) DeleteByPattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 100 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return wrapUnavailable("delete batch", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return wrapUnavailable("scan", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return wrapUnavailable("delete batch", err)
		}
	}

	return nil
}

// Stats reports key count and used memory for operational visibility.
func (c *ProgressCache) Stats(ctx context.Context) (port.CacheStats, error) {
	keys, err := c.client.DBSize(ctx).Result()
	if err != nil {
		return port.CacheStats{}, wrapUnavailable("dbsize", err)
	}

	stats := port.CacheStats{Keys: keys}

	// Memory usage is best effort; some deployments restrict INFO.
	if info, err := c.client.Info(ctx, "memory").Result(); err == nil {
		stats.MemoryBytes = parseUsedMemory(info)
	}

	return stats, nil
}

func parseUsedMemory(info string) int64 {
	for _, line := range strings.Split(info, "\r\n") {
		if value, ok := strings.CutPrefix(line, "used_memory:"); ok {
			parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return 0
			}
			return parsed
		}
	}
	return 0
}

var _ port.Cache = (*ProgressCache)(nil)
