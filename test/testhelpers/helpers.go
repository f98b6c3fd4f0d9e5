// Package testhelpers provides shared utilities for exercising the relay over
// real WebSocket connections in integration tests.
package testhelpers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/conversa/relay/internal/relay"
)

// StartRelay boots a hub and an HTTP test server wired with the relay routes.
// Both are torn down via t.Cleanup.
func StartRelay(t *testing.T) (*relay.Hub, *httptest.Server) {
	t.Helper()

	cfg := relay.DefaultConfig()
	cfg.Socket.AllowedOrigins = []string{"*"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hub := relay.NewHub(&cfg, logger)
	server := httptest.NewServer(relay.SetupRoutes(hub, logger))

	t.Cleanup(func() {
		server.Close()
		_ = hub.Shutdown(time.Second)
	})
	return hub, server
}

// Dial opens a WebSocket connection to the relay endpoint of the given test
// server. The connection is closed via t.Cleanup.
func Dial(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()

	u, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}
	u.Scheme = "ws"
	u.Path = "/ws"

	header := http.Header{}
	header.Set("Origin", serverURL)

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(u.String(), header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("failed to dial relay: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent writes one JSON event frame.
func SendEvent(t *testing.T, conn *websocket.Conn, event map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(event); err != nil {
		t.Fatalf("failed to send event: %v", err)
	}
}

// SendRaw writes a raw text frame, bypassing JSON encoding.
func SendRaw(t *testing.T, conn *websocket.Conn, data []byte) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("failed to send raw frame: %v", err)
	}
}

// ReadEvent reads the next event frame, failing the test after the timeout.
func ReadEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("failed to set read deadline: %v", err)
	}
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	var event map[string]any
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("received undecodable frame %q: %v", payload, err)
	}
	return event
}

// ReadUntilType keeps reading events until one of the wanted type arrives,
// skipping interleaved broadcasts, or fails once the timeout elapses.
func ReadUntilType(t *testing.T, conn *websocket.Conn, wantType string, timeout time.Duration) map[string]any {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("no %q event arrived within %s", wantType, timeout)
		}
		event := ReadEvent(t, conn, remaining)
		if event["type"] == wantType {
			return event
		}
	}
}

// ExpectNoEvent asserts that nothing arrives on the connection within the
// timeout.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("failed to set read deadline: %v", err)
	}
	_, payload, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no event, received %q", payload)
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return
	}
	t.Fatalf("unexpected error while waiting for silence: %v", err)
}

// JoinRelay dials, consumes the connected greeting, joins as userID, and
// consumes the joined ack, returning a connection bound to that user.
func JoinRelay(t *testing.T, serverURL, userID string) *websocket.Conn {
	t.Helper()
	conn := Dial(t, serverURL)
	ReadUntilType(t, conn, "connected", 2*time.Second)
	SendEvent(t, conn, map[string]any{"type": "join", "userId": userID})
	ReadUntilType(t, conn, "joined", 2*time.Second)
	return conn
}
