// Package statedb provides access to an editor's state.vscdb, the
// SQLite key-value store holding the bulk of per-workspace state
// (chat history included).
package statedb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrDatabaseLocked means a running editor holds the database. The
// operator closes the editor and retries; locks are never broken.
var ErrDatabaseLocked = errors.New("state database is locked by a running editor")

// DB wraps the SQLite connection to one state database file.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens the state database at path. Contention fails fast instead
// of waiting out a live editor.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=0"); err != nil {
		conn.Close()
		return nil, wrapLocked(fmt.Errorf("configuring state database: %w", err))
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// HasItemTable reports whether the editor's key-value table exists.
// Databases without it are left untouched.
func (db *DB) HasItemTable() (bool, error) {
	var name string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master WHERE type='table' AND name='ItemTable'
	`).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, wrapLocked(fmt.Errorf("querying schema: %w", err))
	}
	return true, nil
}

// RewriteTextValues applies fn to every text value in ItemTable and
// writes back the ones that changed, all inside a single transaction:
// either every matching row is updated and committed, or none are.
// Returns the number of rows rewritten.
func (db *DB) RewriteTextValues(fn func(string) string) (int, error) {
	ok, err := db.HasItemTable()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, wrapLocked(fmt.Errorf("starting transaction: %w", err))
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT key, value FROM ItemTable`)
	if err != nil {
		return 0, wrapLocked(fmt.Errorf("reading ItemTable: %w", err))
	}

	type update struct {
		key   string
		value string
	}
	var updates []update

	for rows.Next() {
		var key string
		var raw interface{}
		if err := rows.Scan(&key, &raw); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning row: %w", err)
		}

		// Only text storage is rewritten; blobs stay byte-identical.
		value, ok := raw.(string)
		if !ok {
			continue
		}

		if next := fn(value); next != value {
			updates = append(updates, update{key: key, value: next})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, wrapLocked(fmt.Errorf("iterating ItemTable: %w", err))
	}
	rows.Close()

	for _, u := range updates {
		if _, err := tx.Exec(`UPDATE ItemTable SET value = ? WHERE key = ?`, u.value, u.key); err != nil {
			return 0, wrapLocked(fmt.Errorf("updating key %q: %w", u.key, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, wrapLocked(fmt.Errorf("committing rewrite: %w", err))
	}

	return len(updates), nil
}

// Exec executes a statement outside any transaction.
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// QueryRow executes a query that returns a single row.
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

// wrapLocked maps SQLITE_BUSY-style failures onto ErrDatabaseLocked so
// callers can tell contention from corruption.
func wrapLocked(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY") {
		return fmt.Errorf("%w: %v", ErrDatabaseLocked, err)
	}
	return err
}
