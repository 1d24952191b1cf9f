package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/roach88/vendorsync/internal/record"
)

// backendFactory builds a fresh backend in a temp directory.
type backendFactory struct {
	name string
	open func(t *testing.T, dir string) Backend
}

var backendFactories = []backendFactory{
	{
		name: KindFile,
		open: func(t *testing.T, dir string) Backend {
			return NewFileBackend(dir)
		},
	},
	{
		name: KindSQLite,
		open: func(t *testing.T, dir string) Backend {
			t.Helper()
			b, err := OpenSQLite(filepath.Join(dir, SQLiteFileName))
			if err != nil {
				t.Fatalf("OpenSQLite() failed: %v", err)
			}
			t.Cleanup(func() { b.Close() })
			return b
		},
	},
}

// createTestSQLite creates a new SQLite backend in a temp directory.
func createTestSQLite(t *testing.T) *SQLiteBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), SQLiteFileName)
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestDocument builds a document from key/value pairs in order.
func createTestDocument(t *testing.T, pairs ...any) *Document {
	t.Helper()
	if len(pairs)%2 != 0 {
		t.Fatalf("createTestDocument needs key/value pairs, got %d args", len(pairs))
	}
	doc := NewDocument()
	for i := 0; i < len(pairs); i += 2 {
		raw, err := MarshalValue(pairs[i+1])
		if err != nil {
			t.Fatalf("MarshalValue() failed: %v", err)
		}
		doc.Set(record.EntityKey(pairs[i].(string)), raw)
	}
	return doc
}

func rawString(v json.RawMessage) string {
	return string(v)
}
