// Package store owns all persistent state: users, linked provider accounts,
// profiles, activities, streams, derived metrics and check-ins.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoAccount is returned when no linked provider account exists.
var ErrNoAccount = errors.New("no linked account")

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the database named by databaseURL, creating the schema if
// necessary. Accepts `sqlite://<path>`, `sqlite:///<path>` or a bare path.
func Open(databaseURL string) (*Store, error) {
	path := sqlitePath(databaseURL)
	if path == "" {
		return nil, fmt.Errorf("empty DATABASE_URL")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// modernc.org/sqlite serializes writes on a single connection; keeping
	// one connection also makes in-memory databases usable.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies database reachability for health checks.
func (s *Store) Ping() error {
	var one int
	return s.db.QueryRow("SELECT 1").Scan(&one)
}

func sqlitePath(databaseURL string) string {
	u := databaseURL
	for _, prefix := range []string{"sqlite:///", "sqlite://", "sqlite3:///", "sqlite3://"} {
		if strings.HasPrefix(u, prefix) {
			return strings.TrimPrefix(u, prefix)
		}
	}
	return u
}
