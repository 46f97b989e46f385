package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/minasoft/clinic-server/internal/config"
	"github.com/minasoft/clinic-server/internal/consumers"
	"github.com/minasoft/clinic-server/internal/db"
	"github.com/minasoft/clinic-server/internal/events"
	"github.com/minasoft/clinic-server/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Configuration load failed", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start embedded NATS server
	eventServer, err := events.NewEmbeddedServer(cfg.NATSStoreDir)
	if err != nil {
		slog.Error("Event server startup failed", "error", err)
		os.Exit(1)
	}
	defer eventServer.Shutdown()

	js := eventServer.JetStream()

	// Connect to MongoDB
	mgr, err := db.Shared(ctx, cfg)
	if err != nil {
		slog.Error("Database connection failed", "error", err)
		os.Exit(1)
	}
	defer mgr.Close(context.Background())

	// Start stats recorder consumer
	recorder := consumers.NewStatsRecorder(js)
	if err := recorder.Start(ctx); err != nil {
		slog.Error("Stats recorder startup failed", "error", err)
		os.Exit(1)
	}

	var wg sync.WaitGroup

	// Start web server
	webServer := web.NewServer(mgr, js, cfg)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := webServer.Start(ctx); err != nil {
			slog.Error("Web server error", "error", err)
		}
	}()

	slog.Info("Clinic server started",
		"webPort", cfg.WebPort,
		"database", cfg.DatabaseName,
	)

	// Wait for shutdown signal
	<-sigChan
	slog.Info("Shutdown signal received, stopping services...")

	// Cancel context to stop all services
	cancel()

	// Wait for all goroutines to finish
	wg.Wait()

	slog.Info("Clinic server stopped")
}
