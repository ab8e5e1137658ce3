package service

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"subchapter-tutor-be/internal/pkg/logger"
	"subchapter-tutor-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventForwarder ships events off-process. Implemented by the NATS publisher.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
	Processed() int64
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	forwarder  EventForwarder
	logger     logger.ILogger
	processed  atomic.Int64
}

// NewConsumerService drains the in-process event topic, logs every event
// and forwards it when a forwarder is configured. forwarder may be nil.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	forwarder EventForwarder,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		forwarder:  forwarder,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) Processed() int64 {
	return cs.processed.Load()
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var event events.BaseEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		cs.logger.Error("EVENTS", "Failed to unmarshal event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.logger.Info("EVENTS", event.Type, event.Data)

	if cs.forwarder != nil {
		fwdCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := cs.forwarder.Publish(fwdCtx, event)
		cancel()
		// Forwarding is auxiliary; a down bus must not stall the topic.
		if err != nil {
			cs.logger.Warn("EVENTS", "Failed to forward event", map[string]interface{}{
				"type":  event.Type,
				"error": err.Error(),
			})
		}
	}

	cs.processed.Add(1)
	msg.Ack()
}
