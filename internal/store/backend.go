package store

import (
	"context"
	"path/filepath"

	"github.com/roach88/vendorsync/internal/errors"
)

// Backend kinds accepted by Open.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// SQLiteFileName is the database file created in the output directory by the
// sqlite backend.
const SQLiteFileName = "checkpoints.db"

// Backend persists whole documents by name. Implementations must make
// SaveAtomically all-or-nothing for subsequent readers.
type Backend interface {
	// Exists reports whether a document has ever been saved under name.
	Exists(ctx context.Context, name string) (bool, error)

	// Load returns the named document. Fails with errors.ErrNotFound when absent.
	Load(ctx context.Context, name string) (*Document, error)

	// SaveAtomically replaces the named document with doc.
	SaveAtomically(ctx context.Context, name string, doc *Document) error

	// Close releases any resources held by the backend.
	Close() error
}

// Open returns the backend of the given kind rooted at dir.
func Open(kind, dir string) (Backend, error) {
	switch kind {
	case "", KindFile:
		return NewFileBackend(dir), nil
	case KindSQLite:
		return OpenSQLite(filepath.Join(dir, SQLiteFileName))
	default:
		return nil, errors.Mark(
			errors.Newf("unknown backend %q: must be %q or %q", kind, KindFile, KindSQLite),
			errors.ErrConfiguration,
		)
	}
}

func notFound(name string) error {
	return errors.Mark(errors.Newf("document %q does not exist", name), errors.ErrNotFound)
}
