package problemstore_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"streamjudge/internal/common/cache"
	"streamjudge/internal/common/storage"
	"streamjudge/internal/judge/problemstore"
	appErr "streamjudge/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeStorage struct {
	objects map[string]string
	gets    int
}

type fakeReader struct {
	io.Reader
}

func (fakeReader) Close() error { return nil }

func (f *fakeStorage) GetObject(ctx context.Context, bucket, objectKey string) (storage.ObjectReader, error) {
	f.gets++
	data, ok := f.objects[objectKey]
	if !ok {
		return nil, fmt.Errorf("object %s not found", objectKey)
	}
	return fakeReader{strings.NewReader(data)}, nil
}

func (f *fakeStorage) StatObject(ctx context.Context, bucket, objectKey string) (storage.ObjectStat, error) {
	data, ok := f.objects[objectKey]
	if !ok {
		return storage.ObjectStat{}, fmt.Errorf("object %s not found", objectKey)
	}
	return storage.ObjectStat{SizeBytes: int64(len(data))}, nil
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]string{
		"problems.json": `{"adhoc/sum":{"title":"A+B"},"adhoc/orphan":{"title":"No data"}}`,
		"mapping.json":  `{"adhoc/sum":"sum-v1"}`,
		"datasets/sum-v1/config.json": `{
			"time_limit_ms": 2000,
			"shortname": "sum",
			"tests": [
				{"input": "1.in", "output": "1.ans"},
				{"input": "2.in", "output": "2.ans"},
				{"input": "3.in", "output": "3.ans"}
			]
		}`,
		"datasets/sum-v1/1.in":  "1 2\n",
		"datasets/sum-v1/1.ans": "3\n",
	}}
}

func newStore(t *testing.T, fs *fakeStorage, c cache.Cache, cfg problemstore.Config) *problemstore.Store {
	t.Helper()
	if cfg.Bucket == "" {
		cfg.Bucket = "judge-data"
	}
	store, err := problemstore.NewStore(fs, c, cfg)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestResolveBuildsManifest(t *testing.T) {
	t.Parallel()
	store := newStore(t, newFakeStorage(), nil, problemstore.Config{})

	problem, err := store.Resolve(context.Background(), "adhoc/sum")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if problem.DatasetID != "sum-v1" || problem.TimeLimitMS != 2000 || problem.FileIOName != "sum" {
		t.Fatalf("unexpected manifest %+v", problem)
	}
	if len(problem.Tests) != 3 {
		t.Fatalf("expected 3 tests, got %d", len(problem.Tests))
	}
	for i, tc := range problem.Tests {
		if tc.Index != i+1 {
			t.Fatalf("expected test %d to carry index %d, got %d", i, i+1, tc.Index)
		}
	}
	if problem.Tests[0].InputKey != "1.in" || problem.Tests[0].AnswerKey != "1.ans" {
		t.Fatalf("unexpected first test %+v", problem.Tests[0])
	}
}

func TestResolveUnknownProblem(t *testing.T) {
	t.Parallel()
	store := newStore(t, newFakeStorage(), nil, problemstore.Config{})

	_, err := store.Resolve(context.Background(), "adhoc/missing")
	if !appErr.Is(err, appErr.ProblemNotFound) {
		t.Fatalf("expected ProblemNotFound, got %v", err)
	}
}

func TestResolveKnownProblemWithoutDataset(t *testing.T) {
	t.Parallel()
	store := newStore(t, newFakeStorage(), nil, problemstore.Config{})

	_, err := store.Resolve(context.Background(), "adhoc/orphan")
	if !appErr.Is(err, appErr.TestDataNotFound) {
		t.Fatalf("expected TestDataNotFound, got %v", err)
	}
}

func TestResolveEnforcesIDPrefix(t *testing.T) {
	t.Parallel()
	store := newStore(t, newFakeStorage(), nil, problemstore.Config{IDPrefix: "oj:"})

	if _, err := store.Resolve(context.Background(), "adhoc/sum"); !appErr.Is(err, appErr.InvalidParams) {
		t.Fatalf("expected InvalidParams for missing prefix, got %v", err)
	}
	if _, err := store.Resolve(context.Background(), "oj:adhoc/sum"); err != nil {
		t.Fatalf("expected prefixed id to resolve, got %v", err)
	}
}

func TestResolveEmptyDataset(t *testing.T) {
	t.Parallel()
	fs := newFakeStorage()
	fs.objects["datasets/sum-v1/config.json"] = `{"time_limit_ms":1000,"tests":[]}`
	store := newStore(t, fs, nil, problemstore.Config{})

	_, err := store.Resolve(context.Background(), "adhoc/sum")
	if !appErr.Is(err, appErr.TestDataInvalid) {
		t.Fatalf("expected TestDataInvalid, got %v", err)
	}
}

func TestResolveUsesCache(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	redisCache, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("new redis cache: %v", err)
	}

	fs := newFakeStorage()
	store := newStore(t, fs, redisCache, problemstore.Config{CacheTTL: time.Minute})

	if _, err := store.Resolve(context.Background(), "adhoc/sum"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	colds := fs.gets

	problem, err := store.Resolve(context.Background(), "adhoc/sum")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if fs.gets != colds {
		t.Fatalf("expected cached resolve to skip storage, gets went %d -> %d", colds, fs.gets)
	}
	if len(problem.Tests) != 3 {
		t.Fatalf("expected cached manifest intact, got %+v", problem)
	}
}

func TestReadTestFile(t *testing.T) {
	t.Parallel()
	store := newStore(t, newFakeStorage(), nil, problemstore.Config{})

	problem, err := store.Resolve(context.Background(), "adhoc/sum")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	content, err := store.ReadTestFile(context.Background(), problem, "1.in")
	if err != nil {
		t.Fatalf("read test file: %v", err)
	}
	if content != "1 2\n" {
		t.Fatalf("expected input content, got %q", content)
	}
}

func TestReadTestFileRejectsTraversal(t *testing.T) {
	t.Parallel()
	store := newStore(t, newFakeStorage(), nil, problemstore.Config{})

	problem, err := store.Resolve(context.Background(), "adhoc/sum")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, name := range []string{"../mapping.json", "/etc/passwd", "a/../../x"} {
		if _, err := store.ReadTestFile(context.Background(), problem, name); !appErr.Is(err, appErr.InvalidParams) {
			t.Fatalf("expected InvalidParams for %q, got %v", name, err)
		}
	}
}
