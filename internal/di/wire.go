package di

import (
	"fmt"

	"github.com/niftybulk/papertrade/internal/config"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container
// Order of operations:
// 1. Initialize databases
// 2. Initialize repositories
// 3. Initialize services
// 4. Initialize handlers
// 5. Register jobs
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := InitializeRepositories(container, log); err != nil {
		container.StoreDB.Close()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := InitializeServices(container, cfg, log); err != nil {
		container.StoreDB.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	InitializeHandlers(container, log)

	if err := RegisterJobs(container, cfg, log); err != nil {
		container.StoreDB.Close()
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, nil
}

// Close stops the price simulator, waits for pending backend notifications
// and closes the database. The scheduler must be stopped first.
func (c *Container) Close() error {
	if c.Simulator != nil {
		c.Simulator.Close()
	}
	if c.TradeExecutor != nil {
		c.TradeExecutor.Wait()
	}
	if c.StoreDB != nil {
		return c.StoreDB.Close()
	}
	return nil
}
