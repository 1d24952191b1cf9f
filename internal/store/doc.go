// Package store provides durable, whole-document persistence for vendorsync
// checkpoint artifacts.
//
// Every artifact (the tracker and each snapshot) is a Document: an ordered
// mapping from entity key to a JSON value. A Backend loads and saves whole
// documents; a save is either fully visible to the next reader or not at all.
//
// # Backends
//
//   - FileBackend: one pretty-printed JSON file per document in the output
//     directory, written to a temp file and renamed into place.
//   - SQLiteBackend: one database file holding every document, rewritten
//     inside a single transaction per save.
//
// # Critical Patterns
//
// Ordering: a Document remembers key insertion order and every backend
// persists it. Stages iterate keys in this order, so a restarted run resumes
// at the same position.
//
// Single writer: nothing here locks across processes by itself. Callers hold
// a Lock on the output directory for the duration of a run.
//
// # Database Configuration
//
//   - WAL mode: readers never see a half-written document
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
