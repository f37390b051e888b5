package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS audit_event (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		category TEXT NOT NULL,
		action TEXT NOT NULL,
		result TEXT NOT NULL,
		severity TEXT NOT NULL,
		actor TEXT NOT NULL DEFAULT '',
		resource_type TEXT NOT NULL DEFAULT '',
		resource_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		attempted INTEGER NOT NULL DEFAULT 0,
		succeeded INTEGER NOT NULL DEFAULT 0,
		missing TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_audit_event_timestamp ON audit_event(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_event_action ON audit_event(action);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Open opens the SQLite database at path and initializes its schema.
// PRE: path is a writable file path or ":memory:"
// POST: Returns a ready connection; the caller closes it
func Open(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	if err := InitDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
