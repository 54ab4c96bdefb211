// Package db opens the controller's SQLite database.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// SchemaVersion is stored in PRAGMA user_version once the tables exist.
const SchemaVersion = 1

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// InitDB opens or creates the controller database and ensures its tables exist.
// A database written by a newer schema is refused.
func InitDB(path string) (*sql.DB, error) {
	conn, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}
	// One writer: the control loop, the override resolver and the HTTP
	// adapter share this connection.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := prepare(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func prepare(conn *sql.DB) error {
	if err := conn.Ping(); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, SchemaVersion)
	}
	return ensureSchema(conn)
}

const schemaZoneState = `
CREATE TABLE IF NOT EXISTS zone_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    mode TEXT NOT NULL,
    requested_mode TEXT NOT NULL,
    origin TEXT NOT NULL,
    cause TEXT NOT NULL,
    temp_c REAL,
    humidity REAL,
    motion BOOLEAN NOT NULL,
    sensor_status TEXT NOT NULL,
    override_active BOOLEAN NOT NULL,
    override_source TEXT,
    errors TEXT,
    reading_at TIMESTAMP,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaZoneEvents = `
CREATE TABLE IF NOT EXISTS zone_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    message TEXT NOT NULL,
    meta TEXT
);
`

const indexZoneEventsOccurredAt = `
CREATE INDEX IF NOT EXISTS idx_zone_events_occurred_at ON zone_events (occurred_at);
`

const schemaOverride = `
CREATE TABLE IF NOT EXISTS override_record (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    mode TEXT NOT NULL,
    expires_at TEXT,
    source TEXT NOT NULL,
    initiated_by TEXT NOT NULL
);
`

const schemaInterlock = `
CREATE TABLE IF NOT EXISTS interlock_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    mode TEXT NOT NULL,
    transitioned_at TIMESTAMP NOT NULL
);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

var schema = []string{
	schemaZoneState,
	schemaZoneEvents,
	indexZoneEventsOccurredAt,
	schemaOverride,
	schemaInterlock,
	schemaUsers,
}

func ensureSchema(conn *sql.DB) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schema {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
