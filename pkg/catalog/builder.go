package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"subchapter-tutor-be/internal/pkg/logger"
	"subchapter-tutor-be/pkg/contentstore"

	"golang.org/x/sync/singleflight"
)

// Builder caches the catalog of one store. The snapshot is replaced whole,
// never mutated, so readers need no lock.
type Builder struct {
	store   contentstore.Store
	logger  logger.ILogger
	timeout time.Duration

	current atomic.Pointer[Catalog]
	group   singleflight.Group

	// gen counts Rebuild and Invalidate calls. A build only installs its
	// snapshot if gen has not moved since it started.
	mu  sync.Mutex
	gen uint64
}

func NewBuilder(store contentstore.Store, log logger.ILogger, timeout time.Duration) *Builder {
	return &Builder{store: store, logger: log, timeout: timeout}
}

// Catalog returns the cached snapshot, building it on first use.
func (b *Builder) Catalog(ctx context.Context) (*Catalog, error) {
	if c := b.current.Load(); c != nil && c.identity == b.store.Identity() {
		return c, nil
	}
	return b.build(ctx, false)
}

// Rebuild scans the store again and swaps the snapshot in on success. On
// failure the previous snapshot stays.
func (b *Builder) Rebuild(ctx context.Context) (*Catalog, error) {
	return b.build(ctx, true)
}

// Invalidate drops the snapshot; the next Catalog call rebuilds.
func (b *Builder) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.current.Store(nil)
}

func (b *Builder) build(ctx context.Context, force bool) (*Catalog, error) {
	key := "build"
	if force {
		key = "rebuild"
	}

	// Callers wait on their own ctx; the shared scan is detached from it.
	ch := b.group.DoChan(key, func() (interface{}, error) {
		if !force {
			if c := b.current.Load(); c != nil && c.identity == b.store.Identity() {
				return c, nil
			}
		}

		b.mu.Lock()
		if force {
			b.gen++
		}
		started := b.gen
		b.mu.Unlock()

		buildCtx := context.WithoutCancel(ctx)
		if b.timeout > 0 {
			var cancel context.CancelFunc
			buildCtx, cancel = context.WithTimeout(buildCtx, b.timeout)
			defer cancel()
		}

		start := time.Now()
		c, skipped, err := Build(buildCtx, b.store, b.logger)
		if err != nil {
			b.logger.Error("CATALOG", "Failed to build catalog", map[string]interface{}{
				"backend": b.store.Identity(),
				"error":   err.Error(),
			})
			return nil, err
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.gen != started {
			b.logger.Warn("CATALOG", "Discarding stale catalog build", map[string]interface{}{
				"backend": c.identity,
			})
			if newer := b.current.Load(); newer != nil {
				return newer, nil
			}
			return c, nil
		}

		b.current.Store(c)
		b.logger.Info("CATALOG", "Catalog built", map[string]interface{}{
			"backend":  c.identity,
			"labels":   c.Len(),
			"skipped":  len(skipped),
			"duration": time.Since(start).String(),
		})
		return c, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Catalog), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
