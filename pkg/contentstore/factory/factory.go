package factory

import (
	"context"
	"fmt"
	"io"

	"subchapter-tutor-be/internal/config"
	"subchapter-tutor-be/internal/pkg/logger"
	"subchapter-tutor-be/pkg/contentstore"
)

// NewContentStore builds the configured backend and wraps it with the
// configured text cache. The returned closer releases the cache connection.
func NewContentStore(ctx context.Context, storageCfg config.StorageConfig, cacheCfg config.CacheConfig, log logger.ILogger) (*contentstore.CachingStore, io.Closer, error) {
	backend, err := NewBackend(ctx, storageCfg)
	if err != nil {
		return nil, nil, err
	}
	return withCache(backend, cacheCfg, log)
}

// withCache takes ownership of backend: it is closed if the cache cannot
// be set up.
func withCache(backend contentstore.Store, cacheCfg config.CacheConfig, log logger.ILogger) (*contentstore.CachingStore, io.Closer, error) {
	textCache, closer, err := newTextCache(cacheCfg)
	if err != nil {
		if c, ok := backend.(io.Closer); ok {
			if cerr := c.Close(); cerr != nil {
				log.Warn("ContentStore", "Failed to close backend", map[string]interface{}{
					"backend": backend.Identity(),
					"error":   cerr.Error(),
				})
			}
		}
		return nil, nil, err
	}

	log.Info("ContentStore", "Content store ready", map[string]interface{}{
		"backend": backend.Identity(),
		"cache":   cacheCfg.Backend,
	})
	return contentstore.NewCachingStore(backend, textCache, log), closer, nil
}

// NewBackend opens the configured storage backend without a cache.
func NewBackend(ctx context.Context, cfg config.StorageConfig) (contentstore.Store, error) {
	switch cfg.Backend {
	case "fs":
		return contentstore.NewFSStore(cfg.TextbookDir), nil
	case "s3":
		return contentstore.NewS3Store(contentstore.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			UseSSL:          cfg.S3.UseSSL,
		})
	case "gcs":
		return contentstore.NewGCSStore(ctx, contentstore.GCSConfig{
			Bucket:          cfg.GCS.Bucket,
			Prefix:          cfg.GCS.Prefix,
			CredentialsFile: cfg.GCS.CredentialsFile,
		})
	default:
		return nil, fmt.Errorf("unsupported content backend: %s", cfg.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newTextCache(cfg config.CacheConfig) (contentstore.TextCache, io.Closer, error) {
	switch cfg.Backend {
	case "memory":
		return contentstore.NewMemoryCache(cfg.ContentTTL), nopCloser{}, nil
	case "redis":
		cache, err := contentstore.NewRedisCache(cfg.RedisURL, cfg.ContentTTL)
		if err != nil {
			return nil, nil, err
		}
		return cache, cache, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}
