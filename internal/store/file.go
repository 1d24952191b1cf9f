package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/roach88/vendorsync/internal/errors"
)

// FileBackend stores each document as <dir>/<name>.json.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file backend rooted at dir. The directory is
// created on first save.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

// Path returns the file a document is stored in.
func (b *FileBackend) Path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

// Exists reports whether the document file is present.
func (b *FileBackend) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(b.Path(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "stat %s", b.Path(name))
}

// Load reads and decodes the document file.
func (b *FileBackend) Load(_ context.Context, name string) (*Document, error) {
	path := b.Path(name)
	// #nosec G304 -- path is built from the configured output directory and a fixed artifact name
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(name)
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}

	doc := NewDocument()
	if err := doc.UnmarshalJSON(data); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return doc, nil
}

// SaveAtomically writes the document to a temp file in the same directory,
// syncs it and renames it over the previous version.
func (b *FileBackend) SaveAtomically(_ context.Context, name string, doc *Document) error {
	if err := os.MkdirAll(b.dir, 0750); err != nil {
		return errors.Wrapf(err, "create output directory %s", b.dir)
	}

	data, err := doc.MarshalJSON()
	if err != nil {
		return errors.Wrapf(err, "encode document %q", name)
	}

	tmp, err := os.CreateTemp(b.dir, name+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %q", name)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(err, "write temp file for %q", name)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(err, "sync temp file for %q", name)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrapf(err, "close temp file for %q", name)
	}

	if err := os.Rename(tmpPath, b.Path(name)); err != nil {
		cleanup()
		return errors.Wrapf(err, "rename temp file for %q", name)
	}
	return nil
}

// Close is a no-op for the file backend.
func (b *FileBackend) Close() error {
	return nil
}
