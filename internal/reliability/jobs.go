package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/niftybulk/papertrade/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

const (
	// DefaultRetentionDays bounds how long off-site snapshots are kept
	DefaultRetentionDays = 30

	backupTimeout      = 10 * time.Minute
	maintenanceTimeout = time.Minute

	criticalFreeBytes = 100 << 20
	lowFreeBytes      = 1 << 30
)

// BackupJob uploads a snapshot and rotates old ones
type BackupJob struct {
	service       *BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates the scheduled backup job
func NewBackupJob(service *BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Run executes the backup job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	if _, err := j.service.Run(ctx); err != nil {
		return err
	}

	// A rotation failure leaves extra snapshots behind; the upload still counts.
	if _, err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "backup"
}

// MaintenanceJob keeps the store database healthy: integrity check,
// WAL truncation, free disk space and growth tracking.
type MaintenanceJob struct {
	db       *database.DB
	dataDir  string
	lastSize int64
	log      zerolog.Logger
}

// NewMaintenanceJob creates the scheduled maintenance job
func NewMaintenanceJob(db *database.DB, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:      db,
		dataDir: dataDir,
		log:     log.With().Str("job", "maintenance").Logger(),
	}
}

// Run executes the maintenance job
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	startTime := time.Now()

	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Msg("Store database failed health check")
		return err
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		// Not fatal: SQLite checkpoints on its own at wal_autocheckpoint.
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.trackGrowth()

	j.log.Debug().Dur("duration_ms", time.Since(startTime)).Msg("Maintenance completed")
	return nil
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

func (j *MaintenanceJob) checkDiskSpace() error {
	usage, err := disk.Usage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	freeMB := float64(usage.Free) / (1 << 20)

	if usage.Free < criticalFreeBytes {
		j.log.Error().Float64("free_mb", freeMB).Msg("Insufficient disk space for the store")
		return fmt.Errorf("only %.0f MB free in %s", freeMB, j.dataDir)
	}
	if usage.Free < lowFreeBytes {
		j.log.Warn().Float64("free_mb", freeMB).Msg("Disk space running low")
	}
	return nil
}

func (j *MaintenanceJob) trackGrowth() {
	stats, err := j.db.GetStats()
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read database stats")
		return
	}

	event := j.log.Debug().
		Int64("size_bytes", stats.SizeBytes).
		Int64("wal_size_bytes", stats.WALSizeBytes).
		Int64("page_count", stats.PageCount)
	if j.lastSize > 0 {
		event = event.Int64("growth_bytes", stats.SizeBytes-j.lastSize)
	}
	event.Msg("Store database size")

	j.lastSize = stats.SizeBytes
}
