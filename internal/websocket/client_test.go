package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"subchapter-tutor-be/internal/dto"
	"subchapter-tutor-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingHandler holds every command until release is closed.
type blockingHandler struct {
	release chan struct{}
	started chan string

	mu   sync.Mutex
	seen []string
}

func newBlockingHandler() *blockingHandler {
	return &blockingHandler{release: make(chan struct{}), started: make(chan string, 16)}
}

func (h *blockingHandler) record(v string) {
	h.started <- v
	<-h.release
	h.mu.Lock()
	h.seen = append(h.seen, v)
	h.mu.Unlock()
}

func (h *blockingHandler) SelectSubchapter(_ context.Context, _ string, label string) (*dto.SessionView, error) {
	h.record("select:" + label)
	if label == "missing" {
		return nil, errors.New("Unknown subchapter")
	}
	return &dto.SessionView{}, nil
}

func (h *blockingHandler) SendMessage(_ context.Context, _ string, text string) (*dto.SessionView, error) {
	h.record("message:" + text)
	return &dto.SessionView{}, nil
}

func (h *blockingHandler) order() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.seen...)
}

func command(t *testing.T, cmd dto.WsCommand) []byte {
	t.Helper()
	raw, err := json.Marshal(cmd)
	require.NoError(t, err)
	return raw
}

func errorMessage(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case raw := <-c.Send:
		var msg struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "error", msg.Type)
		return msg.Message
	case <-time.After(time.Second):
		t.Fatal("no error frame")
		return ""
	}
}

func TestClientKeepsReadingWhileCommandRuns(t *testing.T) {
	handler := newBlockingHandler()
	c := &Client{Hub: NewHub(logger.NewNopLogger()), SessionID: "s", Handler: handler, Send: make(chan []byte, 4)}

	commands := make(chan []byte, commandQueueSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.runCommands(context.Background(), commands)
	}()

	c.enqueue(commands, command(t, dto.WsCommand{Type: "select", Label: "8.3 Inflation"}))
	assert.Equal(t, "select:8.3 Inflation", <-handler.started)

	// The reader is free while the select is still running.
	enqueued := make(chan struct{})
	go func() {
		c.enqueue(commands, command(t, dto.WsCommand{Type: "message", Text: "eins"}))
		c.enqueue(commands, command(t, dto.WsCommand{Type: "message", Text: "zwei"}))
		close(enqueued)
	}()
	select {
	case <-enqueued:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked behind a running command")
	}

	close(handler.release)
	close(commands)
	<-done

	assert.Equal(t, []string{"select:8.3 Inflation", "message:eins", "message:zwei"}, handler.order())
}

func TestClientRejectsCommandsWhenQueueFull(t *testing.T) {
	c := &Client{Hub: NewHub(logger.NewNopLogger()), SessionID: "s", Send: make(chan []byte, 4)}
	commands := make(chan []byte, 1)

	c.enqueue(commands, []byte(`{"type":"message","text":"a"}`))
	c.enqueue(commands, []byte(`{"type":"message","text":"b"}`))

	assert.Len(t, commands, 1)
	assert.Equal(t, "too many pending commands", errorMessage(t, c))
}

func TestClientHandleReportsErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "not json", raw: `{`, want: "invalid command"},
		{name: "unknown type", raw: `{"type":"delete"}`, want: "oneof"},
		{name: "handler error", raw: `{"type":"select","label":"missing"}`, want: "Unknown subchapter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newBlockingHandler()
			close(handler.release)
			c := &Client{Hub: NewHub(logger.NewNopLogger()), SessionID: "s", Handler: handler, Send: make(chan []byte, 4)}

			c.handle(context.Background(), []byte(tt.raw))

			assert.Contains(t, errorMessage(t, c), tt.want)
		})
	}
}
