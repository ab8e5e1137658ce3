package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"subchapter-tutor-be/internal/dto"
	"subchapter-tutor-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func TestHubNotifiesOnlyTheSessionsClients(t *testing.T) {
	hub, _ := startHub(t)

	a1 := &Client{Hub: hub, SessionID: "a", Send: make(chan []byte, 4)}
	a2 := &Client{Hub: hub, SessionID: "a", Send: make(chan []byte, 4)}
	b := &Client{Hub: hub, SessionID: "b", Send: make(chan []byte, 4)}
	for _, c := range []*Client{a1, a2, b} {
		require.True(t, hub.Register(c))
	}
	assert.Eventually(t, func() bool { return hub.ConnectedClients("a") == 2 }, time.Second, 5*time.Millisecond)

	hub.NotifySession("a", &dto.SessionView{SessionID: "a", State: "ACTIVE"})

	for _, c := range []*Client{a1, a2} {
		select {
		case raw := <-c.Send:
			var msg struct {
				Type string          `json:"type"`
				Data dto.SessionView `json:"data"`
			}
			require.NoError(t, json.Unmarshal(raw, &msg))
			assert.Equal(t, "session", msg.Type)
			assert.Equal(t, "ACTIVE", msg.Data.State)
		case <-time.After(time.Second):
			t.Fatal("no message delivered")
		}
	}
	assert.Empty(t, b.Send)
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub, _ := startHub(t)
	c := &Client{Hub: hub, SessionID: "a", Send: make(chan []byte, 1)}
	require.True(t, hub.Register(c))

	hub.Unregister(c)

	_, open := <-c.Send
	assert.False(t, open)
	assert.Equal(t, 0, hub.ConnectedClients("a"))
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub, _ := startHub(t)
	c := &Client{Hub: hub, SessionID: "a", Send: make(chan []byte, 1)}
	require.True(t, hub.Register(c))
	assert.Eventually(t, func() bool { return hub.ConnectedClients("a") == 1 }, time.Second, 5*time.Millisecond)

	hub.NotifySession("a", &dto.SessionView{SessionID: "a"})
	hub.NotifySession("a", &dto.SessionView{SessionID: "a"})

	assert.Len(t, c.Send, 1)
}

func TestHubStopsRegisteringAfterShutdown(t *testing.T) {
	hub, cancel := startHub(t)
	cancel()

	assert.Eventually(t, func() bool {
		return !hub.Register(&Client{Hub: hub, SessionID: "late", Send: make(chan []byte, 1)})
	}, time.Second, 5*time.Millisecond)
}
