// Package relay coordinates connection lifecycle and event routing through
// the Hub type: identity binding, room fan-out, presence broadcasts, and the
// control-plane entry point.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub owns the connection registry and the room table and routes every event
// between them. All mutating paths go through the same lock-guarded
// structures, whether an event arrives from a live socket or from the HTTP
// control plane. Sockets are never written while a lock is held: fan-out
// enqueues into each recipient's buffered send channel and drops the frame on
// overflow so one stalled peer cannot delay the rest.
type Hub struct {
	cfg    *Config
	logger *slog.Logger

	registry *Registry
	rooms    *RoomTable

	// mu guards conns, closed, and every client's closed flag. trySend holds
	// the read lock across the channel send so a concurrent detach cannot
	// close the channel mid-send.
	mu     sync.RWMutex
	conns  map[*Client]bool
	closed bool

	wg sync.WaitGroup
}

// NewHub creates a hub ready to accept connections. Construct one per process
// and inject it into the HTTP handlers.
func NewHub(cfg *Config, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		cfg:      cfg,
		logger:   logger,
		registry: NewRegistry(),
		rooms:    NewRoomTable(),
		conns:    make(map[*Client]bool),
	}
}

// UserCount reports the number of registered (identity-bound) connections.
func (h *Hub) UserCount() int { return h.registry.Count() }

// RoomCount reports the number of non-empty rooms.
func (h *Hub) RoomCount() int { return h.rooms.Count() }

func (h *Hub) newClient(conn *websocket.Conn, addr string) *Client {
	return &Client{
		conn:           conn,
		send:           make(chan []byte, h.cfg.Socket.SendBuffer),
		hub:            h,
		addr:           addr,
		logger:         h.logger.With("addr", addr),
		limiter:        newTokenBucket(h.cfg.RateLimit.Burst, time.Duration(h.cfg.RateLimit.RefillInterval)),
		maxMessageSize: h.cfg.Socket.MaxMessageSize,
		pingInterval:   time.Duration(h.cfg.Socket.PingInterval),
		pongWait:       time.Duration(h.cfg.Socket.PongWait),
		writeWait:      time.Duration(h.cfg.Socket.WriteWait),
	}
}

// attach admits a freshly upgraded connection: it is tracked for shutdown,
// greeted with a connected event, and its pumps are started. The connection
// stays unbound until a join event names a user.
func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = c.conn.Close()
		return
	}
	h.conns[c] = true
	total := len(h.conns)
	h.mu.Unlock()

	c.logger.Info("connection accepted", "total_connections", total)

	h.sendEvent(c, Event{
		Type:      EventConnected,
		Message:   "connected to relay",
		Timestamp: timestamp(),
	})

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
}

// detach runs the transport-close transition. The first call wins; the
// disconnect side effects (unregister, room cleanup, offline broadcast) fire
// only for connections that had bound an identity.
func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	if !h.conns[c] {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c)
	c.closed = true
	total := len(h.conns)
	h.mu.Unlock()

	close(c.send)
	c.logger.Info("connection closed", "total_connections", total)

	if c.userID == "" {
		return
	}
	h.releaseIdentity(c)
}

// releaseIdentity takes the connection's bound user offline: the registry
// binding is dropped (reverse-keyed, so a superseded handle cannot evict a
// newer one), every room membership is cleaned, and user_offline goes to the
// remaining registered connections. Shared by the disconnect path and by a
// rebind to a different identifier, which would otherwise orphan the old
// forward entry forever.
func (h *Hub) releaseIdentity(c *Client) {
	userID := c.userID
	h.registry.Unregister(c)
	h.rooms.LeaveAll(userID)
	h.broadcastExcept(userID, Event{
		Type:      EventUserOffline,
		UserID:    userID,
		Timestamp: timestamp(),
	})
}

// route dispatches one inbound frame. Malformed envelopes and unknown or
// server-origin types are dropped without touching the connection: a single
// bad frame never terminates a session.
func (h *Hub) route(c *Client, raw []byte) {
	ev, ok := parseEvent(raw)
	if !ok {
		c.logger.Debug("dropping malformed frame")
		return
	}

	switch ev.Type {
	case EventJoin:
		h.handleJoin(c, ev)
	case EventJoinConversation:
		h.handleJoinConversation(c, ev)
	case EventTypingStart, EventTypingStop:
		h.handleTyping(c, ev)
	case EventNewMessage:
		h.handleNewMessage(c, ev)
	case EventConnected, EventJoined, EventUserOnline, EventUserOffline:
		// Server-origin types are not accepted from clients.
		c.logger.Debug("dropping client frame with server-origin type", "type", ev.Type)
	default:
		c.logger.Debug("dropping frame with unknown type", "type", ev.Type)
	}
}

// handleJoin binds the sender's identity, acknowledges it, and announces the
// user to everyone else. A join without a userId is a defensive no-op. A
// repeat join under the same identifier re-runs the bind; a rebind to a
// different identifier first releases the old identity so its registry entry
// and room memberships cannot leak past the connection's lifetime.
func (h *Hub) handleJoin(c *Client, ev Event) {
	if ev.UserID == "" {
		c.logger.Debug("dropping join without userId")
		return
	}

	if c.userID != "" && c.userID != ev.UserID {
		h.releaseIdentity(c)
	}

	c.userID = ev.UserID
	c.userInfo = ev.UserInfo
	h.registry.Register(ev.UserID, c)
	c.logger.Info("user joined", "user_id", ev.UserID, "online_users", h.registry.Count())

	h.sendEvent(c, Event{
		Type:      EventJoined,
		UserID:    ev.UserID,
		Message:   "joined successfully",
		Timestamp: timestamp(),
	})

	// Best effort: the ack above is already queued and does not wait on this.
	h.broadcastExcept(ev.UserID, Event{
		Type:      EventUserOnline,
		UserID:    ev.UserID,
		UserInfo:  ev.UserInfo,
		Timestamp: timestamp(),
	})
}

// handleJoinConversation records room membership. Fire-and-forget: no ack.
func (h *Hub) handleJoinConversation(c *Client, ev Event) {
	if c.userID == "" || ev.ConversationID == "" {
		c.logger.Debug("dropping join_conversation", "bound", c.userID != "")
		return
	}
	h.rooms.Join(ev.ConversationID, c.userID)
}

// handleTyping relays a typing indicator to the other members of the room.
func (h *Hub) handleTyping(c *Client, ev Event) {
	if c.userID == "" || ev.ConversationID == "" {
		c.logger.Debug("dropping typing event", "bound", c.userID != "")
		return
	}
	h.fanOutRoom(ev.ConversationID, c.userID, Event{
		Type:           ev.Type,
		UserID:         c.userID,
		ConversationID: ev.ConversationID,
		Timestamp:      timestamp(),
	})
}

// handleNewMessage relays a chat message to the other members of the room,
// stamping the delivery time and assigning a message identifier when the
// sender supplied none.
func (h *Hub) handleNewMessage(c *Client, ev Event) {
	if c.userID == "" || ev.ConversationID == "" || ev.Content == "" {
		c.logger.Debug("dropping new_message", "bound", c.userID != "")
		return
	}

	messageID := ev.MessageID
	if messageID == "" {
		messageID = uuid.NewString()
	}

	h.fanOutRoom(ev.ConversationID, c.userID, Event{
		Type:           EventNewMessage,
		UserID:         c.userID,
		ConversationID: ev.ConversationID,
		Content:        ev.Content,
		MessageID:      messageID,
		Timestamp:      timestamp(),
	})
}

// BroadcastRequest is the control-plane payload posted by a trusted
// collaborator after it has durably stored a message.
type BroadcastRequest struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	ReceiverID     string `json:"receiverId"`
	Content        string `json:"content"`
	MessageID      string `json:"messageId"`
	Timestamp      string `json:"timestamp"`
}

// BroadcastStoredMessage fans a stored message out to every registered
// connection except the sender's and reports how many were reached. Unlike
// the socket-originated new_message path this is deliberately not scoped to
// room membership: the calling collaborator has no view of the relay's room
// state, so every client receives the event and filters by conversationId.
// Zero recipients is still success; delivery is at-most-once, fire-and-forget.
func (h *Hub) BroadcastStoredMessage(req BroadcastRequest) (int, error) {
	ts := req.Timestamp
	if ts == "" {
		ts = timestamp()
	}
	messageID := req.MessageID
	if messageID == "" {
		messageID = uuid.NewString()
	}

	payload, err := json.Marshal(Event{
		Type:           EventNewMessage,
		UserID:         req.SenderID,
		ConversationID: req.ConversationID,
		Content:        req.Content,
		MessageID:      messageID,
		Timestamp:      ts,
	})
	if err != nil {
		return 0, err
	}

	delivered := 0
	h.registry.ForEachExcept(req.SenderID, func(peer *Client) {
		if h.trySend(peer, payload) {
			delivered++
		}
	})
	h.logger.Info("control-plane broadcast dispatched",
		"conversation_id", req.ConversationID,
		"sender_id", req.SenderID,
		"delivered", delivered,
	)
	return delivered, nil
}

// fanOutRoom delivers ev to every member of the room except the sender.
// Members without a live connection are skipped silently; independent
// membership and connectivity tracking make that a frequent, expected case,
// never an error.
func (h *Hub) fanOutRoom(conversationID, senderID string, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode event", "type", ev.Type, "error", err)
		return
	}
	for _, memberID := range h.rooms.MembersExcept(conversationID, senderID) {
		peer, ok := h.registry.Lookup(memberID)
		if !ok {
			continue
		}
		if !h.trySend(peer, payload) {
			h.logger.Debug("recipient buffer full, frame dropped",
				"user_id", memberID, "type", ev.Type)
		}
	}
}

// broadcastExcept delivers ev to every registered connection except the one
// bound to excludeUserID.
func (h *Hub) broadcastExcept(excludeUserID string, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode event", "type", ev.Type, "error", err)
		return
	}
	h.registry.ForEachExcept(excludeUserID, func(peer *Client) {
		if !h.trySend(peer, payload) {
			h.logger.Debug("recipient buffer full, frame dropped", "type", ev.Type)
		}
	})
}

// sendEvent encodes and queues ev for a single recipient.
func (h *Hub) sendEvent(c *Client, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode event", "type", ev.Type, "error", err)
		return
	}
	if !h.trySend(c, payload) {
		c.logger.Debug("send buffer full, frame dropped", "type", ev.Type)
	}
}

// trySend enqueues a frame without blocking. The read lock is held across the
// channel send so detach, which closes the channel only under the write lock,
// cannot race it. A full buffer drops the frame for this recipient only.
func (h *Hub) trySend(c *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.conns[c] || c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Shutdown closes every live connection and waits for the pump goroutines to
// drain, up to the timeout. New connections are refused once it begins.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.conns))
	for c := range h.conns {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	h.logger.Info("shutting down hub", "connections", len(clients))
	for _, c := range clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown complete")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timed out")
		return context.DeadlineExceeded
	}
}
