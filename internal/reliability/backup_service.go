package reliability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/niftybulk/papertrade/internal/database"
	"github.com/rs/zerolog"
)

const (
	backupTimestampFormat = "2006-01-02-150405"
	backupBaseName        = "store-"
	backupExt             = ".db"

	// minBackupsToKeep survive rotation regardless of age
	minBackupsToKeep = 3
)

// BackupInfo describes a snapshot stored in the bucket
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// BackupService snapshots the store database and ships it off-site
type BackupService struct {
	db       *database.DB
	store    ObjectStore
	prefix   string
	stageDir string
	now      func() time.Time
	log      zerolog.Logger
}

// NewBackupService creates a backup service. Snapshots are staged under stageDir.
func NewBackupService(db *database.DB, store ObjectStore, prefix, stageDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		db:       db,
		store:    store,
		prefix:   prefix,
		stageDir: stageDir,
		now:      time.Now,
		log:      log.With().Str("service", "backup").Logger(),
	}
}

// Run writes a VACUUM INTO snapshot, uploads it and returns the object key
func (s *BackupService) Run(ctx context.Context) (string, error) {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	dir, err := os.MkdirTemp(s.stageDir, "backup-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(dir)

	snapshot := filepath.Join(dir, s.db.Name()+backupExt)
	if err := s.db.VacuumInto(ctx, snapshot); err != nil {
		return "", err
	}

	file, err := os.Open(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat snapshot: %w", err)
	}

	key := s.prefix + backupBaseName + s.now().UTC().Format(backupTimestampFormat) + backupExt
	if err := s.store.Upload(ctx, key, file, info.Size()); err != nil {
		return "", err
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("key", key).
		Int64("size_bytes", info.Size()).
		Msg("Backup completed")

	return key, nil
}

// ListBackups lists snapshots under the prefix, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, s.prefix+backupBaseName)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))

	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}

		key := *obj.Key
		name := strings.TrimPrefix(key, s.prefix)
		if !strings.HasPrefix(name, backupBaseName) || !strings.HasSuffix(name, backupExt) {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(name, backupBaseName), backupExt)
		timestamp, err := time.Parse(backupTimestampFormat, stamp)
		if err != nil {
			s.log.Warn().Str("key", key).Msg("Failed to parse timestamp from key")
			continue
		}

		var size int64
		if obj.Size != nil {
			size = *obj.Size
		}

		backups = append(backups, BackupInfo{
			Key:       key,
			Timestamp: timestamp,
			SizeBytes: size,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// RotateOldBackups deletes snapshots older than retentionDays, keeping the
// newest minBackupsToKeep. retentionDays <= 0 keeps everything.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= minBackupsToKeep {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0

	for _, backup := range backups[minBackupsToKeep:] {
		if !backup.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, backup.Key); err != nil {
			s.log.Error().Err(err).Str("key", backup.Key).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")

	return deleted, nil
}
