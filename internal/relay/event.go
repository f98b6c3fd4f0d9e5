// Package relay defines the wire envelope and the closed set of event types
// exchanged between clients and the relay.
package relay

import (
	"encoding/json"
	"time"
)

// EventType tags every frame exchanged over a relay socket. The set is
// closed: the router dispatches on these constants exhaustively and drops
// anything else.
type EventType string

// Inbound event types (client to relay).
const (
	EventJoin             EventType = "join"
	EventJoinConversation EventType = "join_conversation"
	EventTypingStart      EventType = "typing_start"
	EventTypingStop       EventType = "typing_stop"
	EventNewMessage       EventType = "new_message"
)

// Outbound event types (relay to client).
const (
	EventConnected   EventType = "connected"
	EventJoined      EventType = "joined"
	EventUserOnline  EventType = "user_online"
	EventUserOffline EventType = "user_offline"
)

// Event is the JSON envelope for every frame. Fields beyond Type are
// type-specific; absent fields are omitted on the wire. UserInfo is opaque to
// the relay and forwarded verbatim in presence broadcasts.
type Event struct {
	Type           EventType       `json:"type"`
	UserID         string          `json:"userId,omitempty"`
	UserInfo       json.RawMessage `json:"userInfo,omitempty"`
	ConversationID string          `json:"conversationId,omitempty"`
	Content        string          `json:"content,omitempty"`
	MessageID      string          `json:"messageId,omitempty"`
	Message        string          `json:"message,omitempty"`
	Timestamp      string          `json:"timestamp,omitempty"`
}

// parseEvent decodes a raw frame into an Event. It reports false for frames
// that are not well-formed envelopes; callers drop those silently per the
// tolerate-noisy-clients policy.
func parseEvent(data []byte) (Event, bool) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, false
	}
	if ev.Type == "" {
		return Event{}, false
	}
	return ev, true
}

// timestamp returns the router-assigned delivery timestamp.
func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
