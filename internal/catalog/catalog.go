// Package catalog provides a SQLite-backed record of imported books, pages,
// and runs. It is derived data: everything here is rebuildable from the
// per-book JSON manifests, which remain the source of truth.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS books (
	name        TEXT PRIMARY KEY,
	source_file TEXT NOT NULL DEFAULT '',
	total_pages INTEGER NOT NULL DEFAULT 0,
	last_import DATETIME
);

CREATE TABLE IF NOT EXISTS pages (
	book       TEXT NOT NULL,
	page_num   INTEGER NOT NULL,
	file_name  TEXT NOT NULL DEFAULT '',
	image_hash TEXT NOT NULL DEFAULT '',
	has_audio  INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME,
	PRIMARY KEY (book, page_num)
);

CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	book            TEXT NOT NULL,
	run_date        DATETIME NOT NULL,
	new_pages       INTEGER NOT NULL DEFAULT 0,
	modified_pages  INTEGER NOT NULL DEFAULT 0,
	unchanged_pages INTEGER NOT NULL DEFAULT 0,
	deleted_pages   INTEGER NOT NULL DEFAULT 0,
	error_count     INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_book ON runs(book, run_date);
`

// DB wraps a sql.DB with catalog-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite catalog and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
