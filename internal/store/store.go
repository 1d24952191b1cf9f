package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - documents + ordered entries
const currentSchemaVersion = 1

// SQLiteBackend stores every document in one SQLite database.
type SQLiteBackend struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to apply pragmas")
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to apply schema")
	}

	return &SQLiteBackend{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteBackend) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Exists reports whether a document row exists. A document saved with zero
// entries still exists.
func (s *SQLiteBackend) Exists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, errors.Wrapf(err, "check document %q", name)
	}
	return count > 0, nil
}

// Load reads a document's entries in insertion order.
func (s *SQLiteBackend) Load(ctx context.Context, name string) (*Document, error) {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFound(name)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value
		FROM entries
		WHERE document = ?
		ORDER BY ord ASC
	`, name)
	if err != nil {
		return nil, errors.Wrapf(err, "query document %q", name)
	}
	defer rows.Close()

	doc := NewDocument()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, errors.Wrapf(err, "scan document %q", name)
		}
		doc.Set(record.EntityKey(key), json.RawMessage(value))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate document %q", name)
	}
	return doc, nil
}

// SaveAtomically replaces every entry of the document inside one transaction.
func (s *SQLiteBackend) SaveAtomically(ctx context.Context, name string, doc *Document) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "begin save of %q", name)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO documents (name, updated_at) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at
	`, name, s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return errors.Wrapf(err, "upsert document %q", name)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM entries WHERE document = ?`, name); err != nil {
		return errors.Wrapf(err, "clear document %q", name)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (document, ord, key, value) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Wrapf(err, "prepare insert for %q", name)
	}
	defer stmt.Close()

	for i, key := range doc.Keys() {
		value, _ := doc.Get(key)
		if _, err = stmt.ExecContext(ctx, name, i, string(key), string(value)); err != nil {
			return errors.Wrapf(err, "insert %q into %q", key, name)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit document %q", name)
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "failed to execute %q", pragma)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and checks the schema version.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "get user_version")
	}
	if version > currentSchemaVersion {
		return errors.Newf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return errors.Wrap(err, "failed to execute schema")
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return errors.Wrap(err, "set user_version")
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLiteBackend) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return errors.Wrapf(err, "failed to query %s", name)
	}
	if value != expected {
		return errors.Newf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
