// Package tracker implements the Tracker Store: the durable record of which
// stages have completed for each entity key. It is the single source of truth
// for "what has been done".
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/record"
	"github.com/roach88/vendorsync/internal/store"
)

// DocumentName is the artifact name of the tracker in a Backend.
const DocumentName = "tracker"

// legacyTimeLayout is the naive ISO timestamp found in trackers written as
// {stage: timestamp} objects.
const legacyTimeLayout = "2006-01-02T15:04:05.999999"

// Store opens and creates the tracker artifact.
type Store struct {
	backend store.Backend
}

// New creates a Store on backend.
func New(backend store.Backend) *Store {
	return &Store{backend: backend}
}

// Exists reports whether a tracker has been initialized.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	return s.backend.Exists(ctx, DocumentName)
}

// Initialize creates a tracker with an empty marker set per key and persists
// it. Fails with errors.ErrAlreadyInitialized when a tracker already exists;
// existing markers are never reset.
func (s *Store) Initialize(ctx context.Context, keys []record.EntityKey) (*Tracker, error) {
	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.WithHint(
			errors.Mark(errors.New("tracker already exists"), errors.ErrAlreadyInitialized),
			"seed runs once per output directory; use a fresh directory to start over",
		)
	}
	if len(keys) == 0 {
		return nil, errors.New("tracker needs at least one key")
	}

	t := &Tracker{
		backend: s.backend,
		records: make(map[record.EntityKey]record.TrackerRecord, len(keys)),
	}
	for _, k := range keys {
		if _, dup := t.records[k]; dup {
			return nil, errors.Newf("duplicate key %q", k)
		}
		t.keys = append(t.keys, k)
		t.records[k] = record.TrackerRecord{}
	}

	if err := t.save(ctx); err != nil {
		return nil, errors.Wrap(err, "initialize tracker")
	}
	return t, nil
}

// Load reads the tracker. Fails with errors.ErrNotFound when it has not been
// initialized.
func (s *Store) Load(ctx context.Context) (*Tracker, error) {
	doc, err := s.backend.Load(ctx, DocumentName)
	if err != nil {
		return nil, errors.Wrap(err, "load tracker")
	}

	t := &Tracker{
		backend: s.backend,
		keys:    doc.Keys(),
		records: make(map[record.EntityKey]record.TrackerRecord, doc.Len()),
	}
	for _, k := range t.keys {
		raw, _ := doc.Get(k)
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "decode tracker entry %q", k)
		}
		t.records[k] = rec
	}
	return t, nil
}

// Tracker is a loaded tracker. Every mutation is persisted before it returns.
// A Tracker is not safe for concurrent use.
type Tracker struct {
	backend store.Backend
	keys    []record.EntityKey
	records map[record.EntityKey]record.TrackerRecord
}

// Keys returns the tracked keys in insertion order.
func (t *Tracker) Keys() []record.EntityKey {
	out := make([]record.EntityKey, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of tracked keys.
func (t *Tracker) Len() int {
	return len(t.keys)
}

// Record returns the markers for key.
func (t *Tracker) Record(key record.EntityKey) (record.TrackerRecord, bool) {
	rec, ok := t.records[key]
	return rec, ok
}

// IsStageComplete reports whether key carries a marker for stage.
func (t *Tracker) IsStageComplete(key record.EntityKey, stage record.Stage) bool {
	return t.records[key].Has(stage)
}

// MarkStageComplete appends a marker for stage and persists the whole tracker.
//
// Marking an already-complete stage is a no-op that keeps the first
// timestamp. Marking a stage earlier than one already recorded fails with
// errors.ErrOutOfOrder. If the save fails the in-memory record is restored,
// so the Tracker always mirrors what is durable.
func (t *Tracker) MarkStageComplete(ctx context.Context, key record.EntityKey, stage record.Stage, at time.Time) error {
	prev, ok := t.records[key]
	if !ok {
		return errors.Mark(errors.Newf("key %q is not tracked", key), errors.ErrNotFound)
	}

	next, added, err := prev.Append(record.Marker{Stage: stage, CompletedAt: at.UTC()})
	if err != nil {
		return errors.Wrapf(err, "mark %s complete for %q", stage, key)
	}
	if !added {
		return nil
	}

	t.records[key] = next
	if err := t.save(ctx); err != nil {
		t.records[key] = prev
		return errors.Wrapf(err, "persist %s marker for %q", stage, key)
	}
	return nil
}

func (t *Tracker) save(ctx context.Context) error {
	doc := store.NewDocument()
	for _, k := range t.keys {
		raw, err := store.MarshalValue(t.records[k])
		if err != nil {
			return errors.Wrapf(err, "encode tracker entry %q", k)
		}
		doc.Set(k, raw)
	}
	return t.backend.SaveAtomically(ctx, DocumentName, doc)
}

// decodeRecord accepts the marker list format and the older
// {"01_initial_data_retrieved": "2023-05-01T10:20:30.123456"} object format.
func decodeRecord(raw json.RawMessage) (record.TrackerRecord, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return decodeLegacyRecord(trimmed)
	}

	var rec record.TrackerRecord
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, err
	}
	for i := 1; i < len(rec); i++ {
		if rec[i].Stage <= rec[i-1].Stage {
			return nil, errors.Mark(
				errors.Newf("marker %s follows %s", rec[i].Stage, rec[i-1].Stage),
				errors.ErrOutOfOrder,
			)
		}
	}
	if rec == nil {
		rec = record.TrackerRecord{}
	}
	return rec, nil
}

func decodeLegacyRecord(raw []byte) (record.TrackerRecord, error) {
	var legacy map[string]string
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, err
	}

	rec := make(record.TrackerRecord, 0, len(legacy))
	for name, ts := range legacy {
		stage, err := record.ParseStage(name)
		if err != nil {
			return nil, err
		}
		at, err := time.ParseInLocation(legacyTimeLayout, ts, time.Local)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s timestamp", name)
		}
		rec = append(rec, record.Marker{Stage: stage, CompletedAt: at.UTC()})
	}
	sort.Slice(rec, func(i, j int) bool { return rec[i].Stage < rec[j].Stage })
	return rec, nil
}
