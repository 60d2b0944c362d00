package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"streamjudge/internal/common/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) *cache.RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return c
}

func TestRedisCacheSetGet(t *testing.T) {
	t.Parallel()
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("expected v, got %q err %v", got, err)
	}
}

func TestRedisCacheGetMissingReturnsEmpty(t *testing.T) {
	t.Parallel()
	c := newTestCache(t)

	got, err := c.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("expected nil error for missing key, got %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestRedisCacheSetNX(t *testing.T) {
	t.Parallel()
	c := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lock", "a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to win, got ok=%v err=%v", ok, err)
	}
	ok, err = c.SetNX(ctx, "lock", "b", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second SetNX to lose, got ok=%v err=%v", ok, err)
	}
}

func TestGetWithCachedLoadsOnceThenServesFromCache(t *testing.T) {
	t.Parallel()
	c := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(ctx context.Context) (string, error) {
		loads++
		return "value", nil
	}
	identity := func(s string) string { return s }
	decode := func(s string) (string, error) { return s, nil }
	isEmpty := func(s string) bool { return s == "" }

	for i := 0; i < 3; i++ {
		got, err := cache.GetWithCached(ctx, c, "key", time.Minute, time.Second, isEmpty, identity, decode, loader)
		if err != nil || got != "value" {
			t.Fatalf("iteration %d: got %q err %v", i, got, err)
		}
	}
	if loads != 1 {
		t.Fatalf("expected a single load, got %d", loads)
	}
}

func TestGetWithCachedCachesEmptyResult(t *testing.T) {
	t.Parallel()
	c := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(ctx context.Context) (string, error) {
		loads++
		return "", nil
	}
	identity := func(s string) string { return s }
	decode := func(s string) (string, error) { return s, nil }
	isEmpty := func(s string) bool { return s == "" }

	for i := 0; i < 2; i++ {
		got, err := cache.GetWithCached(ctx, c, "missing", time.Minute, time.Minute, isEmpty, identity, decode, loader)
		if err != nil || got != "" {
			t.Fatalf("iteration %d: got %q err %v", i, got, err)
		}
	}
	if loads != 1 {
		t.Fatalf("expected the empty result to be cached, got %d loads", loads)
	}
}

func TestGetWithCachedPropagatesLoaderError(t *testing.T) {
	t.Parallel()
	c := newTestCache(t)

	wantErr := errors.New("source down")
	_, err := cache.GetWithCached(context.Background(), c, "key", time.Minute, time.Second,
		func(s string) bool { return false },
		func(s string) string { return s },
		func(s string) (string, error) { return s, nil },
		func(ctx context.Context) (string, error) { return "", wantErr },
	)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected loader error, got %v", err)
	}
}
