package contentstore

import (
	"context"
	"io"
	"iter"
	"time"

	"subchapter-tutor-be/internal/pkg/logger"

	"github.com/patrickmn/go-cache"
)

// TextCache memoizes fetched unit texts. Keys are built by CachingStore from
// the backend identity and the unit id.
type TextCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, text string) error
	Flush(ctx context.Context) error
}

// MemoryCache keeps texts in process memory.
type MemoryCache struct {
	cache *cache.Cache
}

// NewMemoryCache creates a cache whose entries live for ttl (0 keeps them
// until Flush).
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl
	}
	return &MemoryCache{cache: cache.New(expiration, cleanup)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	if x, found := m.cache.Get(key); found {
		return x.(string), true, nil
	}
	return "", false, nil
}

func (m *MemoryCache) Set(_ context.Context, key, text string) error {
	m.cache.Set(key, text, cache.DefaultExpiration)
	return nil
}

func (m *MemoryCache) Flush(_ context.Context) error {
	m.cache.Flush()
	return nil
}

// CachingStore wraps a Store and memoizes FetchText per (identity, unit).
// Listing is never cached here; the catalog builder owns that.
type CachingStore struct {
	inner  Store
	cache  TextCache
	logger logger.ILogger
}

var _ Store = (*CachingStore)(nil)

func NewCachingStore(inner Store, textCache TextCache, log logger.ILogger) *CachingStore {
	return &CachingStore{inner: inner, cache: textCache, logger: log}
}

func (c *CachingStore) Identity() string {
	return c.inner.Identity()
}

func (c *CachingStore) List(ctx context.Context) iter.Seq2[UnitID, error] {
	return c.inner.List(ctx)
}

func (c *CachingStore) FetchText(ctx context.Context, id UnitID) (string, error) {
	key := c.key(id)
	if text, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("ContentStore", "Content cache read failed", map[string]interface{}{
			"unit":  string(id),
			"error": err.Error(),
		})
	} else if ok {
		return text, nil
	}

	text, err := c.inner.FetchText(ctx, id)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, key, text); err != nil {
		c.logger.Warn("ContentStore", "Content cache write failed", map[string]interface{}{
			"unit":  string(id),
			"error": err.Error(),
		})
	}
	return text, nil
}

// Invalidate drops every memoized text.
func (c *CachingStore) Invalidate(ctx context.Context) error {
	return c.cache.Flush(ctx)
}

// Close releases the wrapped backend when it holds a client.
func (c *CachingStore) Close() error {
	if closer, ok := c.inner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *CachingStore) key(id UnitID) string {
	return c.inner.Identity() + "|" + string(id)
}
