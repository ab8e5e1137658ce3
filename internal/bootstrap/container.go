package bootstrap

import (
	"context"
	"fmt"

	"subchapter-tutor-be/internal/config"
	"subchapter-tutor-be/internal/controller"
	"subchapter-tutor-be/internal/pkg/logger"
	"subchapter-tutor-be/internal/pkg/serverutils"
	"subchapter-tutor-be/internal/repository/memory"
	"subchapter-tutor-be/internal/service"
	"subchapter-tutor-be/internal/websocket"
	"subchapter-tutor-be/pkg/catalog"
	"subchapter-tutor-be/pkg/contentstore"
	storefactory "subchapter-tutor-be/pkg/contentstore/factory"
	"subchapter-tutor-be/pkg/llm/factory"
	"subchapter-tutor-be/pkg/tutor"

	pktNats "subchapter-tutor-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type Container struct {
	Logger logger.ILogger

	// Controllers
	TutorController controller.ITutorController

	// Domain
	TutorService service.ITutorService
	Catalogs     *catalog.Builder
	ContentStore contentstore.Store

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub
	NatsSubscriber  *pktNats.Subscriber // nil when NATS is disabled

	closers []func() error
}

func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	instanceID := uuid.NewString()
	c := &Container{Logger: sysLogger}

	// 2. Content
	content, cacheCloser, err := storefactory.NewContentStore(ctx, cfg.Storage, cfg.Cache, sysLogger)
	if err != nil {
		return nil, fmt.Errorf("content store: %w", err)
	}
	c.closers = append(c.closers, cacheCloser.Close, content.Close)
	catalogs := catalog.NewBuilder(content, sysLogger, cfg.Storage.Timeout)

	// 3. LLM Gateway
	gateway, err := factory.NewLLMGateway(ctx, cfg.Ai)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("llm gateway: %w", err)
	}
	sysLogger.Info("BOOTSTRAP", "Using LLM provider", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	tutorController := tutor.NewController(catalogs, content, gateway, sysLogger, tutor.Options{
		OpeningTurn:    cfg.Ai.OpeningTurn,
		LLMTimeout:     cfg.Ai.Timeout,
		StorageTimeout: cfg.Storage.Timeout,
	})

	// 4. Event Bus
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, pubSub.Close)

	var forwarder service.EventForwarder
	if cfg.Events.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.Events.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect NATS publisher, events stay local", map[string]interface{}{"error": err.Error()})
		} else {
			forwarder = natsPub
			c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
		}

		natsSub, err := pktNats.NewSubscriber(cfg.Events.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect NATS subscriber, remote catalog rebuilds ignored", map[string]interface{}{"error": err.Error()})
		} else {
			c.NatsSubscriber = natsSub
			c.closers = append(c.closers, func() error { natsSub.Close(); return nil })
		}
	}

	publisherService := service.NewPublisherService(cfg.Events.Topic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Events.Topic, forwarder, sysLogger)

	// 5. Sessions & WebSocket Hub
	sessionRepo := memory.NewSessionRepository(cfg.App.SessionIdleTTL, nil)
	c.WebSocketHub = websocket.NewHub(sysLogger)

	c.TutorService = service.NewTutorService(
		tutorController,
		catalogs,
		content,
		sessionRepo,
		publisherService,
		c.WebSocketHub,
		sysLogger,
		instanceID,
	)
	c.Catalogs = catalogs
	c.ContentStore = content

	// 6. Controllers
	tokens := serverutils.NewSessionTokens(cfg.App.SessionSecret, cfg.App.SessionTokenTTL)
	c.TutorController = controller.NewTutorController(c.TutorService, tokens, c.WebSocketHub)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Logger.Warn("BOOTSTRAP", "Failed to release resource", map[string]interface{}{"error": err.Error()})
		}
	}
	_ = c.Logger.Sync()
}
