package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"subchapter-tutor-be/internal/bootstrap"
	"subchapter-tutor-be/internal/config"
	"subchapter-tutor-be/internal/server"
	"subchapter-tutor-be/internal/tracer"
	"subchapter-tutor-be/pkg/events"

	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("[FATAL] Failed to bootstrap: %v", err)
	}
	defer container.Close()

	// 3. Tracer
	shutdownTracer := tracer.InitTracer(container.Logger)
	defer shutdownTracer(context.Background())

	// 4. Warm the catalog; a listing failure is logged and retried on demand.
	if _, err := container.Catalogs.Catalog(ctx); err != nil {
		container.Logger.Warn("MAIN", "Initial catalog build failed", map[string]interface{}{"error": err.Error()})
	}

	srv := server.New(cfg, container)
	g, gctx := errgroup.WithContext(ctx)

	// 5. Background Services
	g.Go(func() error {
		return container.ConsumerService.Consume(gctx)
	})
	g.Go(func() error {
		container.WebSocketHub.Run(gctx)
		return nil
	})
	if container.NatsSubscriber != nil {
		g.Go(func() error {
			return container.NatsSubscriber.Subscribe(gctx, events.CatalogRebuilt, container.TutorService.HandleCatalogEvent)
		})
	}

	// 6. Run Server
	g.Go(func() error {
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		container.Logger.Error("MAIN", "Server stopped with error", map[string]interface{}{"error": err.Error()})
		container.Close()
		os.Exit(1)
	}
	container.Logger.Info("MAIN", "Server stopped", nil)
}
