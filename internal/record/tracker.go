package record

import (
	"encoding/json"
	"time"

	"github.com/roach88/vendorsync/internal/errors"
)

// Marker records that a stage completed for a key.
type Marker struct {
	Stage       Stage     `json:"stage"`
	CompletedAt time.Time `json:"completed_at"`
}

// TrackerRecord is the ordered marker list for one key.
type TrackerRecord []Marker

// MarshalJSON writes an empty record as [] rather than null.
func (r TrackerRecord) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Marker(r))
}

// Has reports whether a marker for stage exists.
func (r TrackerRecord) Has(stage Stage) bool {
	for _, m := range r {
		if m.Stage == stage {
			return true
		}
	}
	return false
}

// Highest returns the latest stage marked, or false when the record is empty.
func (r TrackerRecord) Highest() (Stage, bool) {
	if len(r) == 0 {
		return StageSeed, false
	}
	highest := r[0].Stage
	for _, m := range r[1:] {
		if m.Stage > highest {
			highest = m.Stage
		}
	}
	return highest, true
}

// Append returns a new record with m appended. The receiver is never modified.
//
// A marker for a stage already present is ignored (added == false) so the
// first completion time is kept. A marker for a stage earlier than one
// already recorded fails with ErrOutOfOrder.
func (r TrackerRecord) Append(m Marker) (TrackerRecord, bool, error) {
	if !m.Stage.HasMarker() {
		return r, false, errors.Newf("stage %s does not leave a marker", m.Stage)
	}
	if r.Has(m.Stage) {
		return r, false, nil
	}
	if highest, ok := r.Highest(); ok && highest > m.Stage {
		return r, false, errors.Mark(
			errors.Newf("cannot mark %s after %s", m.Stage, highest),
			errors.ErrOutOfOrder,
		)
	}
	out := make(TrackerRecord, len(r), len(r)+1)
	copy(out, r)
	return append(out, m), true, nil
}
