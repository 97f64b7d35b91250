// Package repository persists users, notes and note versions in SQLite.
//
// modernc.org/sqlite is a pure Go driver, so the server builds without cgo.
// The sql.DB pool opened here is the only shared state between requests;
// every multi-record write goes through a single transaction.
package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id       INTEGER NOT NULL REFERENCES users(id),
	title         TEXT NOT NULL,
	description   TEXT NOT NULL,
	is_protected  INTEGER NOT NULL DEFAULT 0,
	password_hash TEXT,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id);

CREATE TABLE IF NOT EXISTS note_versions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	note_id     INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_note_versions_note_id ON note_versions(note_id);
`

// Open opens the SQLite database at path, configures the connection pool and
// applies the schema.
func Open(path string) (*sql.DB, error) {
	// Pragmas ride on the DSN so every pooled connection gets them; cascade
	// delete of note_versions depends on foreign keys being enforced, and WAL
	// keeps readers unblocked while a request is writing.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return db, nil
}
