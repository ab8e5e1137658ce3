package websocket

import (
	"context"
	"encoding/json"
	"time"

	"subchapter-tutor-be/internal/dto"
	"subchapter-tutor-be/internal/pkg/serverutils"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	// Commands waiting behind a running one.
	commandQueueSize = 8
)

// CommandHandler executes socket commands for a session. Results reach the
// client through the hub's session notifications.
type CommandHandler interface {
	SelectSubchapter(ctx context.Context, sessionID string, label string) (*dto.SessionView, error)
	SendMessage(ctx context.Context, sessionID string, text string) (*dto.SessionView, error)
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	SessionID string

	Handler CommandHandler

	// Buffered channel of outbound messages.
	Send chan []byte
}

// readPump reads commands until the connection closes. Commands run one at
// a time, in arrival order, on a separate goroutine so that pongs keep
// being read while a slow command is in flight.
func (c *Client) readPump(ctx context.Context) {
	commands := make(chan []byte, commandQueueSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.runCommands(ctx, commands)
	}()

	defer func() {
		close(commands)
		<-done
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Hub", "Unexpected close", map[string]interface{}{
					"session_id": c.SessionID,
					"error":      err.Error(),
				})
			}
			return
		}
		c.enqueue(commands, raw)
	}
}

// enqueue never blocks the reader; a full queue rejects the command.
func (c *Client) enqueue(commands chan<- []byte, raw []byte) {
	select {
	case commands <- raw:
	default:
		c.Hub.sendError(c, "too many pending commands")
	}
}

func (c *Client) runCommands(ctx context.Context, commands <-chan []byte) {
	for raw := range commands {
		c.handle(ctx, raw)
	}
}

func (c *Client) handle(ctx context.Context, raw []byte) {
	var cmd dto.WsCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		c.Hub.sendError(c, "invalid command")
		return
	}
	if err := serverutils.ValidateRequest(cmd); err != nil {
		c.Hub.sendError(c, err.Error())
		return
	}

	var err error
	switch cmd.Type {
	case "select":
		_, err = c.Handler.SelectSubchapter(ctx, c.SessionID, cmd.Label)
	case "message":
		_, err = c.Handler.SendMessage(ctx, c.SessionID, cmd.Text)
	}
	if err != nil {
		c.Hub.sendError(c, err.Error())
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
