// Package storage persists venue data and derived artifacts in SQLite.
// It holds source markets, target events with their nested markets, match
// results, summaries and geotags.
//
// Match results, summaries and geotags carry an expiry. Lookups only return
// live rows; a store replaces whatever was there for the same market, so at
// most one row per market exists at any time. Writes for the same key are not
// coordinated beyond that: the last writer wins.
//
// Timestamps are stored as Unix milliseconds.
package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/rewired-gh/polymatch/internal/logger"
)

// ErrNotFound is returned when a row does not exist or has expired.
var ErrNotFound = errors.New("not found")

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage is a SQLite-backed store. It is safe for concurrent use; the
// underlying pool is limited to one connection.
type Storage struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. Use ":memory:" for a throwaway database.
func Open(path string) (*Storage, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A :memory: database lives and dies with its connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Storage{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func runMigrations(db *sqlx.DB) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m.Close would close db as well, so it is not called.

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("No new migrations to apply")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("Database migrated to version %d", version)
	return nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
