package contentstore

import (
	"context"
	"iter"
	"testing"
	"time"

	"subchapter-tutor-be/internal/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts fetches so tests can observe memoization.
type countingStore struct {
	identity string
	texts    map[UnitID]string
	fetches  map[UnitID]int
}

func newCountingStore(identity string, texts map[UnitID]string) *countingStore {
	return &countingStore{identity: identity, texts: texts, fetches: map[UnitID]int{}}
}

func (s *countingStore) Identity() string { return s.identity }

func (s *countingStore) List(ctx context.Context) iter.Seq2[UnitID, error] {
	return func(yield func(UnitID, error) bool) {
		for id := range s.texts {
			if !yield(id, nil) {
				return
			}
		}
	}
}

func (s *countingStore) FetchText(_ context.Context, id UnitID) (string, error) {
	s.fetches[id]++
	text, ok := s.texts[id]
	if !ok {
		return "", newError(ErrNotFound, s.identity, id, nil)
	}
	return text, nil
}

func setupTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	cache, err := NewRedisCache("redis://"+s.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("failed to create redis cache: %v", err)
	}
	return cache, s
}

func TestCachingStoreMemoizesPerUnit(t *testing.T) {
	inner := newCountingStore("fs:/books", map[UnitID]string{"a.txt": "A", "b.txt": "B"})
	store := NewCachingStore(inner, NewMemoryCache(0), logger.NewNopLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		text, err := store.FetchText(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, "A", text)
	}
	_, err := store.FetchText(ctx, "b.txt")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.fetches["a.txt"])
	assert.Equal(t, 1, inner.fetches["b.txt"])
}

func TestCachingStoreDoesNotCacheErrors(t *testing.T) {
	inner := newCountingStore("fs:/books", map[UnitID]string{})
	store := NewCachingStore(inner, NewMemoryCache(0), logger.NewNopLogger())
	ctx := context.Background()

	_, err := store.FetchText(ctx, "gone.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.FetchText(ctx, "gone.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 2, inner.fetches["gone.txt"])
}

func TestCachingStoreInvalidate(t *testing.T) {
	inner := newCountingStore("fs:/books", map[UnitID]string{"a.txt": "old"})
	store := NewCachingStore(inner, NewMemoryCache(0), logger.NewNopLogger())
	ctx := context.Background()

	text, err := store.FetchText(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "old", text)

	inner.texts["a.txt"] = "new"
	text, _ = store.FetchText(ctx, "a.txt")
	assert.Equal(t, "old", text)

	require.NoError(t, store.Invalidate(ctx))
	text, err = store.FetchText(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", text)
}

func TestCachingStoreKeysIncludeBackendIdentity(t *testing.T) {
	shared := NewMemoryCache(0)
	first := NewCachingStore(newCountingStore("s3:host/bucket-a/", map[UnitID]string{"a.txt": "from a"}), shared, logger.NewNopLogger())
	second := NewCachingStore(newCountingStore("s3:host/bucket-b/", map[UnitID]string{"a.txt": "from b"}), shared, logger.NewNopLogger())
	ctx := context.Background()

	textA, err := first.FetchText(ctx, "a.txt")
	require.NoError(t, err)
	textB, err := second.FetchText(ctx, "a.txt")
	require.NoError(t, err)

	assert.Equal(t, "from a", textA)
	assert.Equal(t, "from b", textB)
}

func TestRedisCacheGetSet(t *testing.T) {
	cache, s := setupTestRedisCache(t)
	defer cache.Close()
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "fs:/x|a.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "fs:/x|a.txt", "Grüezi [seite: 12]"))
	text, ok, err := cache.Get(ctx, "fs:/x|a.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Grüezi [seite: 12]", text)
	assert.True(t, s.Exists("unit-text:fs:/x|a.txt"))
}

func TestRedisCacheExpires(t *testing.T) {
	cache, s := setupTestRedisCache(t)
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "v"))
	s.FastForward(2 * time.Hour)

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheFlushKeepsForeignKeys(t *testing.T) {
	cache, s := setupTestRedisCache(t)
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", "1"))
	require.NoError(t, cache.Set(ctx, "b", "2"))
	require.NoError(t, s.Set("refresh:other", "keep"))

	require.NoError(t, cache.Flush(ctx))

	_, ok, _ := cache.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = cache.Get(ctx, "b")
	assert.False(t, ok)
	assert.True(t, s.Exists("refresh:other"))
}

func TestCachingStoreWithRedis(t *testing.T) {
	cache, _ := setupTestRedisCache(t)
	defer cache.Close()
	inner := newCountingStore("gcs:books/", map[UnitID]string{"a.txt": "A"})
	store := NewCachingStore(inner, cache, logger.NewNopLogger())
	ctx := context.Background()

	_, err := store.FetchText(ctx, "a.txt")
	require.NoError(t, err)
	_, err = store.FetchText(ctx, "a.txt")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.fetches["a.txt"])
}
