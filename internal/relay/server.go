// Package relay constructs and runs the HTTP server that fronts the relay.
package relay

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// CreateServer builds the HTTP server with the configured listener timeouts.
func CreateServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.ReadTimeout),
		WriteTimeout: time.Duration(cfg.WriteTimeout),
		IdleTimeout:  time.Duration(cfg.IdleTimeout),
	}
}

// StartServer begins listening and blocks until the server exits.
func StartServer(server *http.Server, logger *slog.Logger) error {
	logger.Info("server listening", "addr", server.Addr)
	return server.ListenAndServe()
}

// ShutdownServer drains the HTTP server gracefully, waiting for in-flight
// requests up to the timeout. Live WebSocket connections are hijacked from
// the server's perspective and are closed separately by Hub.Shutdown.
func ShutdownServer(server *http.Server, timeout time.Duration, logger *slog.Logger) error {
	logger.Info("shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("HTTP server shutdown error", "error", err)
		return err
	}
	logger.Info("HTTP server shutdown complete")
	return nil
}
