package main

import (
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conversa/relay/internal/relay"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file (optional)")
		logJSON    = flag.Bool("log-json", false, "emit JSON logs instead of text")
	)
	flag.Parse()

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, nil)
	if *logJSON {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	logger := slog.New(handler)

	cfg, err := relay.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	hub := relay.NewHub(cfg, logger)
	mux := relay.SetupRoutes(hub, logger)
	server := relay.CreateServer(cfg.Server, mux)

	errCh := make(chan error, 1)
	go func() {
		errCh <- relay.StartServer(server, logger)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server exited", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	timeout := time.Duration(cfg.Server.ShutdownTimeout)
	if err := relay.ShutdownServer(server, timeout, logger); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := hub.Shutdown(timeout); err != nil {
		logger.Warn("hub shutdown incomplete", "error", err)
	}
}
