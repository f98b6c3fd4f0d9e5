// Package relay manages individual WebSocket connections: read/write pumps,
// deadlines, keepalive pings, and per-connection throttling.
package relay

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one live connection. Its identity fields stay empty until the
// join handshake binds a user to it; only the connection's own read goroutine
// and the hub methods it calls touch them. The send channel is the single
// FIFO path for outbound frames, which is what preserves per-recipient
// ordering.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	addr   string
	logger *slog.Logger

	userID   string
	userInfo json.RawMessage

	limiter *tokenBucket

	maxMessageSize int64
	pingInterval   time.Duration
	pongWait       time.Duration
	writeWait      time.Duration

	// closed is guarded by the hub's connection lock.
	closed bool
}

// readPump reads frames sequentially and hands each one to the router. It
// owns connection teardown: any read error runs the disconnect path exactly
// once and closes the transport.
func (c *Client) readPump() {
	defer func() {
		c.hub.detach(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.logger.Warn("unexpected close", "error", err)
			} else {
				c.logger.Debug("connection closed", "error", err)
			}
			return
		}
		if !c.limiter.allow() {
			c.logger.Debug("rate limit exceeded, dropping frame")
			continue
		}
		c.hub.route(c, raw)
	}
}

// writePump drains the send channel to the socket and emits keepalive pings.
// It exits when the send channel closes (the hub detached the client) or a
// write fails; the read pump notices the dead transport and finishes cleanup.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}
