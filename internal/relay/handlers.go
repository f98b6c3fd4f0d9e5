// Package relay exposes the HTTP handlers: the WebSocket upgrade endpoint,
// the control-plane broadcast endpoint, and the health check.
package relay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// WebSocketHandler upgrades GET requests on the relay endpoint and admits the
// resulting connection to the hub. Origin checking follows the configured
// allow-list; everything after the upgrade (greeting, pumps, identity) is the
// hub's job.
func WebSocketHandler(h *Hub) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     newOriginPolicy(h.cfg.Socket.AllowedOrigins, h.logger).check,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
			return
		}

		h.attach(h.newClient(conn, r.RemoteAddr))
	}
}

// BroadcastResponse is the control-plane reply body.
type BroadcastResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BroadcastHandler is the control-plane bridge: a trusted collaborator POSTs
// a stored message here and the hub fans it out to live connections. The
// endpoint performs no authentication of its own; it must only be reachable
// from internal collaborators. Status reflects whether the relay dispatched
// the broadcast, never whether any recipient received it.
func BroadcastHandler(h *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeBroadcastResponse(w, http.StatusMethodNotAllowed, BroadcastResponse{
				Message: "broadcast endpoint only accepts POST requests",
			})
			return
		}
		if h == nil {
			writeBroadcastResponse(w, http.StatusServiceUnavailable, BroadcastResponse{
				Message: "relay connection manager is not available",
			})
			return
		}

		var req BroadcastRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBroadcastResponse(w, http.StatusBadRequest, BroadcastResponse{
				Message: "request body is not a valid broadcast payload",
			})
			return
		}

		delivered, err := h.BroadcastStoredMessage(req)
		if err != nil {
			logger.Error("control-plane broadcast failed", "error", err)
			writeBroadcastResponse(w, http.StatusInternalServerError, BroadcastResponse{
				Message: "broadcast dispatch failed",
			})
			return
		}

		writeBroadcastResponse(w, http.StatusOK, BroadcastResponse{
			Success: true,
			Message: fmt.Sprintf("message dispatched to %d connections", delivered),
		})
	}
}

func writeBroadcastResponse(w http.ResponseWriter, status int, resp BroadcastResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// HealthHandler reports liveness plus the current presence counts.
func HealthHandler(h *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintf(w, "relay is running: %d users online, %d active rooms\n",
			h.UserCount(), h.RoomCount())
	}
}
