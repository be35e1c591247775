// Package db provides SQLite persistence for the Leadline lead store and
// engine event history.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	*sql.DB
}

// Open opens a SQLite database at the given path, enables WAL mode and
// foreign keys, and runs migrations. ":memory:" opens an in-memory
// database.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	database := &DB{DB: conn}
	if err := database.Migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return database, nil
}

// OpenInMemory opens a fresh in-memory database, for tests.
func OpenInMemory() (*DB, error) {
	return Open(":memory:")
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		tag TEXT NOT NULL DEFAULT 'new',
		priority TEXT NOT NULL DEFAULT 'medium',
		stage_index INTEGER NOT NULL DEFAULT 0,
		stage_count INTEGER NOT NULL DEFAULT 0,
		follow_up_at TEXT,
		read INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_follow_up_at ON leads(follow_up_at)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_tag ON leads(tag)`,
	`CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		lead_id TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		scheduled_at TEXT NOT NULL,
		attendees_json TEXT,
		status TEXT NOT NULL DEFAULT 'scheduled',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_meetings_scheduled_at ON meetings(scheduled_at)`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		type TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT,
		payload_json TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp)`,
}

// Migrate runs all schema migrations.
func (db *DB) Migrate() error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// timeToString formats a time for SQLite storage.
func timeToString(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a stored timestamp, returning the zero time on
// failure.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullableTimeToValue converts a *time.Time for SQLite storage.
func nullableTimeToValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timeToString(*t)
}

// parseNullableTime converts a stored nullable timestamp.
func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// boolToInt converts a bool for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
