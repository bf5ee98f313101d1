package port

import (
	"context"
	"time"
)

// CacheStats exposes operational cache metrics. Never used for correctness
// decisions.
type CacheStats struct {
	Keys        int64
	MemoryBytes int64
}

// Cache is the key-value store backing the progress cache. Implementations
// return ErrNotFound on a miss and ErrCacheUnavailable when the backing store
// cannot be reached.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	MSet(ctx context.Context, pairs map[string][]byte, ttl time.Duration) error
	MGet(ctx context.Context, keys ...string) (map[string][]byte, error)
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Stats(ctx context.Context) (CacheStats, error)
}
