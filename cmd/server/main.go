// Package main is the entry point for the Nifty-50 paper-trading core.
// It serves the quote, chart, session, trading, portfolio and wallet APIs,
// drives the simulated price feed and runs background maintenance jobs.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/niftybulk/papertrade/internal/config"
	"github.com/niftybulk/papertrade/internal/di"
	"github.com/niftybulk/papertrade/internal/server"
	"github.com/niftybulk/papertrade/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

// main is the application entry point:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging
// 3. Wires all dependencies via the DI container
// 4. Restores the persisted session
// 5. Starts the HTTP server and the job scheduler
// 6. Waits for SIGINT/SIGTERM and shuts down in reverse order
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("backend_url", cfg.BackendURL).
		Dur("tick_interval", cfg.TickInterval).
		Msg("Starting Nifty Bulk core")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// Restore the signed-in user, ledger and wishlist from the store database
	container.SessionStore.Load()
	log.Info().
		Bool("authenticated", container.SessionStore.IsAuthenticated()).
		Msg("Session restored")

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	container.Scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop accepting requests first so no trade starts mid-shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server forced to shutdown")
	}

	container.Scheduler.Stop()

	// Stops the simulator, drains backend notifications, closes the database
	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close store database")
	}

	log.Info().Msg("Server stopped")
}
