package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"subchapter-tutor-be/internal/pkg/logger"
	"subchapter-tutor-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingForwarder struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *recordingForwarder) Publish(_ context.Context, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *recordingForwarder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func TestConsumerForwardsPublishedEvents(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	forwarder := &recordingForwarder{}
	consumer := NewConsumerService(pubSub, "tutor.session", forwarder, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService("tutor.session", pubSub)
	require.NoError(t, publisher.Publish(ctx, events.New(events.SubchapterSelected, map[string]interface{}{
		"session_id": "s-1",
		"label":      "8.3 Inflation",
	})))

	assert.Eventually(t, func() bool {
		return forwarder.count() == 1 && consumer.Processed() == 1
	}, time.Second, 10*time.Millisecond)

	forwarder.mu.Lock()
	got := forwarder.events[0]
	forwarder.mu.Unlock()
	assert.Equal(t, events.SubchapterSelected, got.EventType())
	assert.Equal(t, "8.3 Inflation", got.Payload()["label"])
}

func TestConsumerWithoutForwarder(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := NewConsumerService(pubSub, "tutor.session", nil, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService("tutor.session", pubSub)
	require.NoError(t, publisher.Publish(ctx, events.New(events.SessionCreated, nil)))

	assert.Eventually(t, func() bool { return consumer.Processed() == 1 }, time.Second, 10*time.Millisecond)
}
