// Package record provides the typed records shared by every vendorsync stage.
//
// This package contains type definitions and their invariants only. All other
// internal packages import record; record imports nothing internal except the
// errors taxonomy.
//
// Key design constraints:
//   - EntityKey values are trimmed, otherwise kept as written, and never empty
//   - A TrackerRecord holds at most one marker per stage, in stage order
//   - An empty Payload marshals as {} so freshly cloned snapshots match the
//     artifacts written by earlier runs
//   - All JSON tags use snake_case
package record
