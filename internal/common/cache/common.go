package cache

import (
	"context"
	"time"
)

// NullCacheValue is a sentinel value to represent null/empty data in cache.
// This prevents cache penetration by caching the absence of data.
const NullCacheValue = "$NULL$"

// GetWithCached implements the cache-aside pattern with null value caching.
// It tries to get data from cache first; on cache miss it calls the fetch
// function and stores the result. Empty results are cached with a shorter TTL
// to prevent cache penetration.
func GetWithCached[T any](
	ctx context.Context,
	cache Cache,
	key string,
	ttl time.Duration,
	emptyTTL time.Duration,
	isEmpty func(T) bool,
	marshal func(T) string,
	unmarshal func(string) (T, error),
	fn func(context.Context) (T, error),
) (T, error) {
	var zero T

	if cached, err := cache.Get(ctx, key); err == nil && cached != "" {
		if cached == NullCacheValue {
			return zero, nil
		}
		if result, err := unmarshal(cached); err == nil {
			return result, nil
		}
		// Corrupt cache entry, fall through to the source.
	}

	result, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	if isEmpty(result) {
		_ = cache.Set(ctx, key, NullCacheValue, emptyTTL)
		return result, nil
	}

	_ = cache.Set(ctx, key, marshal(result), ttl)
	return result, nil
}
