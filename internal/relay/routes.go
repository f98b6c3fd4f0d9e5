// Package relay wires the HTTP handlers into a ServeMux.
package relay

import (
	"log/slog"
	"net/http"
)

// SetupRoutes returns the relay's HTTP surface: health check at the root, the
// WebSocket endpoint, and the control-plane broadcast endpoint.
func SetupRoutes(h *Hub, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler(h))
	mux.HandleFunc("/ws", WebSocketHandler(h))
	mux.HandleFunc("/api/broadcast", BroadcastHandler(h, logger))
	return mux
}
