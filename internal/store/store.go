// Package store provides SQLite-backed persistence for works, derivative
// edges, and reward balances. Every mutating operation runs inside a single
// transaction: it either commits fully or leaves no trace, which is what
// gives the orchestration layer its all-or-nothing semantics.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS works (
	work_id       TEXT PRIMARY KEY,
	internal_id   INTEGER NOT NULL UNIQUE,
	provenance_id TEXT NOT NULL,
	owner         TEXT NOT NULL,
	metadata_ptr  TEXT NOT NULL DEFAULT '',
	registered_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS derivative_edges (
	child_work_id        TEXT PRIMARY KEY,
	parent_work_id       TEXT NOT NULL REFERENCES works(work_id),
	parent_provenance_id TEXT NOT NULL,
	child_provenance_id  TEXT NOT NULL,
	category             TEXT NOT NULL DEFAULT '',
	created_at           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_edges_parent ON derivative_edges(parent_work_id);

CREATE TABLE IF NOT EXISTS balances (
	holder  TEXT PRIMARY KEY,
	balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0)
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

INSERT OR IGNORE INTO meta (key, value) VALUES ('clock', 0);
`

// DB wraps a sql.DB with ledger-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// tick advances the logical clock within tx and returns the new value.
// The clock strictly increases across every committed mutating transaction,
// so registration order is total.
func tick(tx *sql.Tx) (uint64, error) {
	if _, err := tx.Exec(`UPDATE meta SET value = value + 1 WHERE key = 'clock'`); err != nil {
		return 0, fmt.Errorf("store: advance clock: %w", err)
	}
	var v uint64
	if err := tx.QueryRow(`SELECT value FROM meta WHERE key = 'clock'`).Scan(&v); err != nil {
		return 0, fmt.Errorf("store: read clock: %w", err)
	}
	return v, nil
}
