package record

import (
	"github.com/roach88/vendorsync/internal/errors"
)

// Stage is one discrete, resumable unit of pipeline work. The numeric order is
// the order stages run in and the order their markers may be appended.
type Stage int

const (
	StageSeed Stage = iota
	StageFetch
	StageNormalize
	StagePush
)

// Marker names are the keys historically written into tracker.json; keeping
// them lets existing trackers resume.
var markerNames = map[Stage]string{
	StageFetch:     "01_initial_data_retrieved",
	StageNormalize: "02_financial_sys_code_updated",
	StagePush:      "03_alma_updated",
}

var stageNames = map[Stage]string{
	StageSeed:      "seed",
	StageFetch:     "fetch",
	StageNormalize: "normalize",
	StagePush:      "push",
}

// Stages returns all stages in execution order.
func Stages() []Stage {
	return []Stage{StageSeed, StageFetch, StageNormalize, StagePush}
}

// MarkedStages returns the stages that leave a tracker marker, in order.
func MarkedStages() []Stage {
	return []Stage{StageFetch, StageNormalize, StagePush}
}

// String returns the short command name ("fetch").
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarkerName returns the name persisted in the tracker, or "" for Seed.
func (s Stage) MarkerName() string {
	return markerNames[s]
}

// HasMarker reports whether completing s leaves a tracker marker.
func (s Stage) HasMarker() bool {
	_, ok := markerNames[s]
	return ok
}

// ParseStage accepts either the short name or the persisted marker name.
func ParseStage(name string) (Stage, error) {
	for s, n := range stageNames {
		if n == name {
			return s, nil
		}
	}
	for s, n := range markerNames {
		if n == name {
			return s, nil
		}
	}
	return 0, errors.Newf("unknown stage %q", name)
}

// MarshalText encodes the stage as its marker name.
func (s Stage) MarshalText() ([]byte, error) {
	if !s.HasMarker() {
		return nil, errors.Newf("stage %s has no marker", s)
	}
	return []byte(s.MarkerName()), nil
}

// UnmarshalText decodes a marker name.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
