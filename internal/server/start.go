package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Start runs the relay until an interrupt or terminate signal arrives, then
// shuts down gracefully: HTTP first so no new connections land, then the bus
// so in-flight broadcasts drain.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Bridge.Start(ctx, s.Bus); err != nil {
		slog.Error("Failed to start WebSocket bridge", "error", err)
		return
	}

	go func() {
		slog.Info("Relay listening", "addr", s.Cfg.Addr)
		if err := s.E.Start(s.Cfg.Addr); err != nil && err != http.ErrServerClosed {
			s.E.Logger.Fatalf("shutting down the server: %v", err)
		}
	}()

	waitForShutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := s.E.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	cancel()
	if err := s.Bus.Close(); err != nil {
		slog.Error("Bus shutdown failed", "error", err)
	}
}
