// Package database opens the SQLite database that backs the session table.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/vmunix/bellhop/internal/migrations"
)

// Open creates the parent directory if needed, opens the database in WAL mode
// and applies the schema. The caller owns the returned handle and must Close it.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded schema. The schema is additive, so it is safe
// to run on every start.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func dsn(path string) string {
	q := url.Values{}
	// busy_timeout first so it also covers the journal_mode switch.
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}
