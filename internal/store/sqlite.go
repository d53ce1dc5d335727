package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteFileName is the database file created inside the data directory.
const SQLiteFileName = "cabinet.db"

// SQLiteStore keeps every collection in a single SQLite database, one row
// per record.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) cabinet.db in dataDir and applies the schema.
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return openSQLiteDSN(filepath.Join(dataDir, SQLiteFileName))
}

func openSQLiteDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// A single connection serializes writers and keeps pragmas in effect.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load returns the rows of the collection ordered by ordinal.
func (s *SQLiteStore) Load(ctx context.Context, name string) ([]json.RawMessage, error) {
	var savedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT saved_at FROM collections WHERE name = ?", name).Scan(&savedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("collection %s: %w", name, ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up collection %s: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT body FROM records WHERE collection = ? ORDER BY ordinal", name)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	defer rows.Close()

	records := []json.RawMessage{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning %s record: %w", name, err)
		}
		if !json.Valid([]byte(body)) {
			return nil, fmt.Errorf("parsing %s record: invalid JSON", name)
		}
		records = append(records, json.RawMessage(body))
	}
	return records, rows.Err()
}

// Save replaces the collection inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, name string, records []json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (name, saved_at) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET saved_at = excluded.saved_at`, name, now); err != nil {
		return fmt.Errorf("upserting collection %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE collection = ?", name); err != nil {
		return fmt.Errorf("clearing %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO records (collection, ordinal, body) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", name, err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if !json.Valid(rec) {
			return fmt.Errorf("record %d of %s: invalid JSON", i, name)
		}
		if _, err := stmt.ExecContext(ctx, name, i, string(rec)); err != nil {
			return fmt.Errorf("inserting %s record %d: %w", name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", name, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
