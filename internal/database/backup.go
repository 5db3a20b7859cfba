package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// BackupConfig controls the periodic snapshot of the slot database.
type BackupConfig struct {
	Enabled       bool
	Directory     string
	IntervalHours int
	RetentionDays int
}

// BackupService snapshots the slot database on a fixed interval and prunes
// old snapshots.
type BackupService struct {
	db     *DB
	config BackupConfig
	logger zerolog.Logger
}

// NewBackupService creates a backup service over the open database.
func NewBackupService(db *DB, cfg BackupConfig, logger zerolog.Logger) *BackupService {
	if cfg.Directory == "" {
		cfg.Directory = "backups"
	}
	if cfg.IntervalHours <= 0 {
		cfg.IntervalHours = 24
	}
	return &BackupService{
		db:     db,
		config: cfg,
		logger: logger.With().Str("component", "backup").Logger(),
	}
}

// Start runs the backup loop until ctx is cancelled. The first snapshot is
// taken immediately.
func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("backups disabled")
		return
	}

	interval := time.Duration(s.config.IntervalHours) * time.Hour
	s.logger.Info().Dur("interval", interval).Str("directory", s.config.Directory).Msg("backup service started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.Snapshot(ctx); err != nil {
		s.logger.Error().Err(err).Msg("initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Snapshot(ctx); err != nil {
				s.logger.Error().Err(err).Msg("scheduled backup failed")
			}
			s.pruneOld()
		}
	}
}

// Snapshot writes a consistent copy of the database into the backup
// directory. VACUUM INTO goes through the open connection, so the copy is
// valid even mid-write under WAL.
func (s *BackupService) Snapshot(ctx context.Context) error {
	if err := os.MkdirAll(s.config.Directory, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("slotboard_%s.db", time.Now().Format("20060102_150405"))
	path := filepath.Join(s.config.Directory, name)

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}

	s.logger.Info().Str("path", path).Msg("backup written")
	return nil
}

func (s *BackupService) pruneOld() {
	if s.config.RetentionDays <= 0 {
		return
	}

	entries, err := os.ReadDir(s.config.Directory)
	if err != nil {
		s.logger.Error().Err(err).Msg("read backup directory")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", entry.Name()).Msg("pruning old backup")
			os.Remove(filepath.Join(s.config.Directory, entry.Name()))
		}
	}
}
