package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/castrelay/castrelay/internal/logging"
	"github.com/castrelay/castrelay/internal/server"
)

const (
	serverShutdownTimeout = 10 * time.Second
	hubShutdownTimeout    = 5 * time.Second
)

func main() {
	cfg, err := server.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Init(cfg.LogLevel, cfg.LogFormat)

	if slices.Contains(cfg.OriginList(), "*") {
		logger.Warn("origin checking is permissive, accepting connections from any origin")
	}

	promRegistry := prometheus.NewRegistry()
	metrics := server.NewMetrics(promRegistry)
	registry := server.NewRegistry(metrics)
	hub := server.NewHub(registry, metrics, cfg.QueueSize)
	go hub.Run()

	mux := server.SetupRoutes(hub, *cfg, promRegistry)
	httpServer := server.CreateServer(cfg.ListenAddr, mux)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("shutdown signal received", "signal", sig.String())

		if err := server.ShutdownServer(httpServer, serverShutdownTimeout); err != nil {
			logger.Warn("HTTP server did not shut down cleanly", "error", err)
		}
		if err := hub.Shutdown(hubShutdownTimeout); err != nil {
			logger.Warn("hub did not shut down cleanly", "error", err)
		}
	}
}
