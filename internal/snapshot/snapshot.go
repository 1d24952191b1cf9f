// Package snapshot implements Snapshot Stores: durable key → payload mappings
// written by the stages that produce data.
//
// A snapshot is created as a clone of the tracker's key set with empty
// payloads the first time a stage needs it. From then on a key with a
// non-empty payload counts as "already processed" for the stage that owns the
// snapshot, independently of the tracker.
package snapshot

import (
	"context"
	"encoding/json"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/record"
	"github.com/roach88/vendorsync/internal/store"
)

// Artifact names of the snapshots written by the pipeline.
const (
	RawName        = "raw_code_data"
	NormalizedName = "updated_data"
)

// Payload is the constraint on snapshot values. The zero value of P must
// report IsEmpty and marshal to an empty JSON value.
type Payload interface {
	IsEmpty() bool
}

// Store is one snapshot artifact held in memory. Load or EnsureExists must be
// called before reading. A Store is not safe for concurrent use.
type Store[P Payload] struct {
	backend store.Backend
	name    string
	keys    []record.EntityKey
	values  map[record.EntityKey]P
}

// New returns a Store for the named artifact on backend.
func New[P Payload](backend store.Backend, name string) *Store[P] {
	return &Store[P]{
		backend: backend,
		name:    name,
		values:  make(map[record.EntityKey]P),
	}
}

// Name returns the artifact name.
func (s *Store[P]) Name() string {
	return s.name
}

// Exists reports whether the artifact has been materialized.
func (s *Store[P]) Exists(ctx context.Context) (bool, error) {
	return s.backend.Exists(ctx, s.name)
}

// EnsureExists creates the artifact with an empty payload for every seed key
// when it has never been saved. An existing artifact is left untouched, even
// if some of its values are empty. created reports which case applied.
func (s *Store[P]) EnsureExists(ctx context.Context, seedKeys []record.EntityKey) (created bool, err error) {
	exists, err := s.Exists(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	var empty P
	s.keys = s.keys[:0]
	s.values = make(map[record.EntityKey]P, len(seedKeys))
	for _, k := range seedKeys {
		if _, dup := s.values[k]; dup {
			continue
		}
		s.keys = append(s.keys, k)
		s.values[k] = empty
	}
	if err := s.Save(ctx); err != nil {
		return false, errors.Wrapf(err, "create snapshot %s", s.name)
	}
	return true, nil
}

// Load replaces the in-memory mapping with the persisted one. Fails with
// errors.ErrNotFound when the artifact does not exist.
func (s *Store[P]) Load(ctx context.Context) error {
	doc, err := s.backend.Load(ctx, s.name)
	if err != nil {
		return errors.Wrapf(err, "load snapshot %s", s.name)
	}

	keys := doc.Keys()
	values := make(map[record.EntityKey]P, len(keys))
	for _, k := range keys {
		raw, _ := doc.Get(k)
		var p P
		if err := json.Unmarshal(raw, &p); err != nil {
			return errors.Wrapf(err, "decode snapshot %s entry %q", s.name, k)
		}
		values[k] = p
	}
	s.keys = keys
	s.values = values
	return nil
}

// Save persists the whole mapping atomically.
func (s *Store[P]) Save(ctx context.Context) error {
	doc := store.NewDocument()
	for _, k := range s.keys {
		raw, err := store.MarshalValue(s.values[k])
		if err != nil {
			return errors.Wrapf(err, "encode snapshot %s entry %q", s.name, k)
		}
		doc.Set(k, raw)
	}
	return s.backend.SaveAtomically(ctx, s.name, doc)
}

// Keys returns the keys in document order.
func (s *Store[P]) Keys() []record.EntityKey {
	out := make([]record.EntityKey, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of keys.
func (s *Store[P]) Len() int {
	return len(s.keys)
}

// Get returns the payload stored for key.
func (s *Store[P]) Get(key record.EntityKey) (P, bool) {
	p, ok := s.values[key]
	return p, ok
}

// HasPayload reports whether key holds a non-empty payload.
func (s *Store[P]) HasPayload(key record.EntityKey) bool {
	p, ok := s.values[key]
	return ok && !p.IsEmpty()
}

// Put replaces the payload for key in memory. Keys not yet present are
// appended. Replacing a non-empty payload with an empty one fails with
// errors.ErrPayloadReset. Call Save to persist.
func (s *Store[P]) Put(key record.EntityKey, p P) error {
	prev, ok := s.values[key]
	if ok && !prev.IsEmpty() && p.IsEmpty() {
		return errors.Mark(
			errors.Newf("snapshot %s: refusing to empty payload for %q", s.name, key),
			errors.ErrPayloadReset,
		)
	}
	if !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = p
	return nil
}

// CountPayloads returns how many keys hold a non-empty payload.
func (s *Store[P]) CountPayloads() int {
	n := 0
	for _, k := range s.keys {
		if !s.values[k].IsEmpty() {
			n++
		}
	}
	return n
}
