package di

import (
	"fmt"

	"github.com/niftybulk/papertrade/internal/config"
	"github.com/niftybulk/papertrade/internal/reliability"
	"github.com/niftybulk/papertrade/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the background jobs and registers them with a new scheduler.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	sched := scheduler.New(log)
	jobs := &JobInstances{}

	jobs.WalletSync = scheduler.NewWalletSyncJob(container.WalletService, cfg.BackendTimeout, log)
	if err := sched.AddJob(cfg.WalletSyncSchedule, jobs.WalletSync); err != nil {
		return fmt.Errorf("failed to register wallet_sync job: %w", err)
	}

	jobs.Maintenance = reliability.NewMaintenanceJob(container.StoreDB, cfg.DataDir, log)
	if err := sched.AddJob(cfg.MaintenanceSchedule, jobs.Maintenance); err != nil {
		return fmt.Errorf("failed to register maintenance job: %w", err)
	}

	if container.BackupService != nil {
		jobs.Backup = reliability.NewBackupJob(container.BackupService, reliability.DefaultRetentionDays, log)
		if err := sched.AddJob(cfg.Backup.Schedule, jobs.Backup); err != nil {
			return fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	container.Scheduler = sched
	container.Jobs = jobs

	return nil
}
