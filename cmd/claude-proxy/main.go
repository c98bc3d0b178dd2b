// cmd/claude-proxy/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"macro-journal/config"
	"macro-journal/internal/gpt"
	"macro-journal/internal/server"
	"macro-journal/pkg/logger"
)

func main() {
	l := logger.New()
	l.Info("Starting text-generation proxy...")

	cfg, err := config.Load()
	if err != nil {
		l.Fatal("Failed to load config", err)
	}
	if cfg.OpenAI.APIKey == "" {
		l.Fatal("Completion API key is not configured")
	}

	generator := gpt.NewClient(cfg.OpenAI.APIKey).WithModel(cfg.OpenAI.Model)

	httpServer := server.NewServer(cfg.Server.Port, generator, l)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("Failed to start HTTP server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down proxy...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Stop(ctx); err != nil {
		l.Error("Error during HTTP server shutdown", err)
	}

	l.Info("Proxy stopped")
}
