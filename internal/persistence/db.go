// Package persistence provides SQLite-based save storage, narrowed from
// the kernel's many-table domain model to the external save contract's
// single opaque blob per save (§6).
package persistence

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection for save-blob storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
	CREATE TABLE IF NOT EXISTS saves (
		id TEXT PRIMARY KEY,
		created_at_tick INTEGER NOT NULL,
		size_bytes INTEGER NOT NULL,
		blob BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_saves_tick ON saves(created_at_tick);
	`)
	return err
}

// Save writes one row per save: a generated id, the save's size, and the
// blob itself. Returns the id and size for the caller's save-confirmation
// event.
func (db *DB) Save(tick uint64, blob []byte) (id string, size int, err error) {
	id = uuid.NewString()
	size = len(blob)
	_, err = db.conn.Exec(
		"INSERT INTO saves (id, created_at_tick, size_bytes, blob) VALUES (?, ?, ?, ?)",
		id, tick, size, blob,
	)
	if err != nil {
		return "", 0, fmt.Errorf("save: %w", err)
	}
	return id, size, nil
}

// Load reads back a save's blob by id.
func (db *DB) Load(id string) ([]byte, error) {
	var blob []byte
	err := db.conn.Get(&blob, "SELECT blob FROM saves WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	return blob, nil
}

// LatestID returns the id of the most recent save, or "" if there are none.
func (db *DB) LatestID() (string, error) {
	var id string
	err := db.conn.Get(&id, "SELECT id FROM saves ORDER BY created_at_tick DESC LIMIT 1")
	if err != nil {
		return "", nil // no saves yet is not an error for callers probing for a prior save
	}
	return id, nil
}
