package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the sqlite connection holding the slot board state.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var (
	// ErrVersionConflict means the guarded update lost to a concurrent
	// writer; the caller must re-fetch and retry.
	ErrVersionConflict = errors.New("concurrent modification")

	// ErrNotFound means the requested slot does not exist.
	ErrNotFound = errors.New("slot not found")
)

// NewDB opens (and if needed creates) the database at path.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}
	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS slots (
			id TEXT PRIMARY KEY,
			creator_name TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			player1 TEXT NOT NULL DEFAULT '',
			player2 TEXT NOT NULL DEFAULT '',
			player3 TEXT NOT NULL DEFAULT '',
			player4 TEXT NOT NULL DEFAULT '',
			player1_comment TEXT NOT NULL DEFAULT '',
			player2_comment TEXT NOT NULL DEFAULT '',
			player3_comment TEXT NOT NULL DEFAULT '',
			player4_comment TEXT NOT NULL DEFAULT '',
			waiting_queue TEXT NOT NULL DEFAULT '[]',
			status TEXT NOT NULL DEFAULT 'active',
			reminder_sent BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			version INTEGER NOT NULL DEFAULT 1
		)`,

		`CREATE TABLE IF NOT EXISTS user_credentials (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_slots_status_start ON slots(status, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_creator_status ON slots(creator_name, status)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_reminder ON slots(reminder_sent, status, start_time)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
