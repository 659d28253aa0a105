package di

import (
	"fmt"

	"github.com/niftybulk/papertrade/internal/config"
	"github.com/niftybulk/papertrade/internal/database"
	"github.com/niftybulk/papertrade/internal/modules/storage"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the store database and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// store.db holds the session and the transaction log, so every write is fsynced
	storeDB, err := database.New(database.Config{
		Path:    cfg.StorePath(),
		Profile: database.ProfileLedger,
		Name:    "store",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store database: %w", err)
	}

	if err := storeDB.Migrate(); err != nil {
		storeDB.Close()
		return nil, fmt.Errorf("failed to migrate store database: %w", err)
	}
	container.StoreDB = storeDB

	log.Info().Str("path", storeDB.Path()).Msg("Store database initialized")

	return container, nil
}

// InitializeRepositories creates the repositories over the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container.StoreDB == nil {
		return fmt.Errorf("store database is not initialized")
	}

	container.KVRepo = storage.NewRepository(container.StoreDB.Conn(), log)
	return nil
}
