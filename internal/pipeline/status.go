package pipeline

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/record"
	"github.com/roach88/vendorsync/internal/snapshot"
)

// KeyStatus is the derived Pipeline State of one key.
type KeyStatus struct {
	Key string `json:"key"`

	// Stage is the highest stage with a marker, or "seed" when none.
	Stage string `json:"stage"`

	// Next is the stage still to run, or "" once pushed.
	Next string `json:"next,omitempty"`

	Markers record.TrackerRecord `json:"markers"`
}

// Report summarizes an output directory.
type Report struct {
	Total              int            `json:"total"`
	Completed          map[string]int `json:"completed"`
	RawPayloads        int            `json:"raw_payloads"`
	NormalizedPayloads int            `json:"normalized_payloads"`
	Keys               []KeyStatus    `json:"keys"`
}

// Status derives every key's state from the tracker and counts snapshot
// payloads. It fails with errors.ErrTrackerMissing before Seed.
func (p *Pipeline) Status(ctx context.Context) (*Report, error) {
	t, err := p.trackers.Load(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.WithHint(
				errors.Mark(err, errors.ErrTrackerMissing),
				"run `vendorsync seed` first",
			)
		}
		return nil, err
	}

	report := &Report{
		Total:     t.Len(),
		Completed: make(map[string]int),
		Keys:      make([]KeyStatus, 0, t.Len()),
	}
	for _, s := range record.MarkedStages() {
		report.Completed[s.String()] = 0
	}

	for _, key := range t.Keys() {
		rec, _ := t.Record(key)
		highest, _ := rec.Highest()
		ks := KeyStatus{Key: string(key), Stage: highest.String(), Markers: rec}
		if highest < record.StagePush {
			ks.Next = (highest + 1).String()
		}
		for _, m := range rec {
			report.Completed[m.Stage.String()]++
		}
		report.Keys = append(report.Keys, ks)
	}

	if report.RawPayloads, err = countPayloads(ctx, snapshot.New[record.Payload](p.backend, snapshot.RawName)); err != nil {
		return nil, err
	}
	if report.NormalizedPayloads, err = countPayloads(ctx, snapshot.New[record.Payload](p.backend, snapshot.NormalizedName)); err != nil {
		return nil, err
	}
	return report, nil
}

func countPayloads(ctx context.Context, s *snapshot.Store[record.Payload]) (int, error) {
	if err := loadIfExists(ctx, s); err != nil {
		return 0, err
	}
	return s.CountPayloads(), nil
}

// String renders the report as a summary followed by one line per key.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "keys: %d\n", r.Total)
	for _, s := range record.MarkedStages() {
		fmt.Fprintf(&b, "%s: %d/%d\n", s, r.Completed[s.String()], r.Total)
	}
	fmt.Fprintf(&b, "raw payloads: %d\nnormalized payloads: %d\n\n", r.RawPayloads, r.NormalizedPayloads)

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSTAGE\tNEXT")
	for _, k := range r.Keys {
		next := k.Next
		if next == "" {
			next = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", k.Key, k.Stage, next)
	}
	_ = tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}
