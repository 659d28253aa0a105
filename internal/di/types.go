/**
 * Package di provides dependency injection wiring and initialization.
 *
 * The Container holds every long-lived instance of the application. It is
 * built by Wire() and handed to the HTTP server and the entry point.
 */
package di

import (
	"github.com/go-chi/chi/v5"
	"github.com/niftybulk/papertrade/internal/clients/backend"
	"github.com/niftybulk/papertrade/internal/database"
	"github.com/niftybulk/papertrade/internal/events"
	"github.com/niftybulk/papertrade/internal/modules/charts"
	"github.com/niftybulk/papertrade/internal/modules/companies"
	"github.com/niftybulk/papertrade/internal/modules/portfolio"
	"github.com/niftybulk/papertrade/internal/modules/quotes"
	"github.com/niftybulk/papertrade/internal/modules/session"
	"github.com/niftybulk/papertrade/internal/modules/storage"
	"github.com/niftybulk/papertrade/internal/modules/trading"
	"github.com/niftybulk/papertrade/internal/modules/wallet"
	"github.com/niftybulk/papertrade/internal/reliability"
	"github.com/niftybulk/papertrade/internal/scheduler"
)

// RouteRegistrar is implemented by every module's HTTP handler
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Container holds all dependencies for the application
type Container struct {
	// Database
	StoreDB *database.DB

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Repositories
	KVRepo *storage.Repository

	// Clients
	BackendClient *backend.Client

	// Services
	QuoteStore       *quotes.Store
	Simulator        *quotes.Simulator
	ChartService     *charts.Service
	CompanyDirectory *companies.Directory
	SessionStore     *session.Store
	TradeSafety      *trading.TradeSafetyService
	TradeExecutor    *trading.Executor
	PortfolioService *portfolio.PortfolioService
	WalletService    *wallet.Service
	BackupService    *reliability.BackupService // nil unless backups are enabled

	// HTTP handlers, mounted under /api
	Handlers []RouteRegistrar

	// Background jobs
	Scheduler *scheduler.Scheduler
	Jobs      *JobInstances
}

// JobInstances holds the registered jobs so they can be run on demand
type JobInstances struct {
	WalletSync  scheduler.Job
	Maintenance scheduler.Job
	Backup      scheduler.Job // nil unless backups are enabled
}
