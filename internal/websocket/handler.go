package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"
)

// ServeWs handles websocket requests from the peer.
func ServeWs(ctx context.Context, hub *Hub, c *websocket.Conn, sessionID string, handler CommandHandler) {
	client := &Client{Hub: hub, Conn: c, SessionID: sessionID, Handler: handler, Send: make(chan []byte, 256)}
	if !hub.Register(client) {
		c.Close()
		return
	}

	go client.writePump()
	client.readPump(ctx)
}
