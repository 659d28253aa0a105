package di

import (
	"context"
	"fmt"
	"time"

	"github.com/niftybulk/papertrade/internal/clients/backend"
	"github.com/niftybulk/papertrade/internal/config"
	"github.com/niftybulk/papertrade/internal/events"
	"github.com/niftybulk/papertrade/internal/modules/charts"
	chartshandlers "github.com/niftybulk/papertrade/internal/modules/charts/handlers"
	"github.com/niftybulk/papertrade/internal/modules/companies"
	companieshandlers "github.com/niftybulk/papertrade/internal/modules/companies/handlers"
	"github.com/niftybulk/papertrade/internal/modules/portfolio"
	portfoliohandlers "github.com/niftybulk/papertrade/internal/modules/portfolio/handlers"
	"github.com/niftybulk/papertrade/internal/modules/quotes"
	quoteshandlers "github.com/niftybulk/papertrade/internal/modules/quotes/handlers"
	"github.com/niftybulk/papertrade/internal/modules/session"
	sessionhandlers "github.com/niftybulk/papertrade/internal/modules/session/handlers"
	"github.com/niftybulk/papertrade/internal/modules/trading"
	tradinghandlers "github.com/niftybulk/papertrade/internal/modules/trading/handlers"
	"github.com/niftybulk/papertrade/internal/modules/wallet"
	wallethandlers "github.com/niftybulk/papertrade/internal/modules/wallet/handlers"
	"github.com/niftybulk/papertrade/internal/reliability"
	"github.com/rs/zerolog"
)

// backupClientTimeout bounds loading the S3 client configuration at startup
const backupClientTimeout = 10 * time.Second

// InitializeServices creates all services in dependency order
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	// Events
	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	// Market data
	instruments, err := quotes.DefaultCatalog()
	if err != nil {
		return fmt.Errorf("failed to load instrument catalog: %w", err)
	}
	container.QuoteStore = quotes.NewStore(instruments)
	container.Simulator = quotes.NewSimulator(container.QuoteStore, cfg.TickInterval, nil, container.EventManager, log)
	container.ChartService = charts.NewService(container.QuoteStore, nil, log)

	directory, err := companies.NewDirectory()
	if err != nil {
		return fmt.Errorf("failed to load company directory: %w", err)
	}
	container.CompanyDirectory = directory

	// Session (restored from the store database in main, once wiring succeeds)
	container.SessionStore = session.NewStore(container.KVRepo, container.QuoteStore, log)

	// Backend API; requests carry the current session token
	container.BackendClient = backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, container.SessionStore.Token, log)

	// Trading
	container.TradeSafety = trading.NewTradeSafetyService(container.SessionStore, container.QuoteStore, log)
	container.TradeExecutor = trading.NewExecutor(
		container.SessionStore,
		container.QuoteStore,
		container.TradeSafety,
		container.BackendClient,
		container.EventManager,
		log,
	)

	container.PortfolioService = portfolio.NewPortfolioService(
		container.SessionStore,
		container.QuoteStore,
		container.Simulator,
		container.EventManager,
		log,
	)
	container.WalletService = wallet.NewService(container.SessionStore, container.BackendClient, container.EventManager, log)

	// Off-site backups
	if cfg.Backup != nil && cfg.Backup.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), backupClientTimeout)
		defer cancel()

		r2Client, err := reliability.NewR2Client(ctx, cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to create backup client: %w", err)
		}
		container.BackupService = reliability.NewBackupService(container.StoreDB, r2Client, cfg.Backup.Prefix, cfg.DataDir, log)
	}

	log.Info().Int("instruments", container.QuoteStore.Len()).Msg("Services initialized")

	return nil
}

// InitializeHandlers creates the HTTP handlers for every module
func InitializeHandlers(container *Container, log zerolog.Logger) {
	container.Handlers = []RouteRegistrar{
		quoteshandlers.NewHandler(container.QuoteStore, container.Simulator, log),
		chartshandlers.NewHandler(container.ChartService, log),
		companieshandlers.NewHandler(container.CompanyDirectory, container.QuoteStore, log),
		sessionhandlers.NewHandler(
			container.SessionStore,
			container.QuoteStore,
			container.BackendClient,
			container.EventManager,
			log,
		),
		tradinghandlers.NewTradingHandlers(container.TradeExecutor, container.SessionStore, log),
		portfoliohandlers.NewHandler(container.PortfolioService, log),
		wallethandlers.NewHandler(container.WalletService, log),
	}
}
