// Package db stores history snapshots in sqlite as a key/value table. The
// whole conversation history lives under a single named entry, mirroring
// the browser localStorage model the chat UI was built around.
package db

import (
	"database/sql"
	"errors"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// ErrNoSnapshot is returned when no snapshot exists under the given key.
var ErrNoSnapshot = errors.New("snapshot not found")

type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

func (db *Database) ReadSnapshot(key string) ([]byte, error) {
	var value []byte
	err := db.db.QueryRow("SELECT value FROM snapshots WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (db *Database) WriteSnapshot(key string, value []byte) error {
	query := `
        INSERT INTO snapshots (key, value, updated_at)
        VALUES (?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

	_, err := db.db.Exec(query, key, value)
	return err
}

func (db *Database) Close() error {
	return db.db.Close()
}
