// Package runner drives one pipeline stage across every tracked key.
//
// The algorithm is the same for every stage: load the tracker, make sure the
// stage's snapshot exists, then walk the keys in tracker order. For each key
// the stage's predicate decides whether work is still needed; if it is, the
// action runs, its result is saved to the snapshot and only then is the
// tracker marked. The first failure ends the run. Re-running resumes at the
// first key whose work is still pending.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/record"
	"github.com/roach88/vendorsync/internal/snapshot"
	"github.com/roach88/vendorsync/internal/tracker"
)

// Clock provides marker timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Runner holds what every stage run shares.
type Runner struct {
	Tracker *tracker.Store
	Clock   Clock
	Logger  *zap.Logger

	// Limit caps how many actions one run performs. Zero means no cap.
	Limit int
}

// Stage describes one stage for Run.
type Stage[P snapshot.Payload] struct {
	Stage record.Stage

	// Snapshot receives each action's result. Nil for stages that produce
	// no data.
	Snapshot *snapshot.Store[P]

	// Done reports whether key needs no work. It sees the loaded tracker
	// and the loaded snapshot.
	Done func(key record.EntityKey, t *tracker.Tracker) bool

	// Action performs the work for key.
	Action func(ctx context.Context, key record.EntityKey) (P, error)
}

// Summary describes a finished (or aborted) run.
type Summary struct {
	RunID     string `json:"run_id"`
	Stage     string `json:"stage"`
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Limited   bool   `json:"limited"`
}

// Run executes stage over every tracked key. It fails with
// errors.ErrTrackerMissing when the tracker has not been seeded. The returned
// Summary is meaningful even when err is non-nil.
func Run[P snapshot.Payload](ctx context.Context, r *Runner, stage Stage[P]) (Summary, error) {
	runID, err := uuid.NewV7()
	if err != nil {
		return Summary{}, errors.Wrap(err, "generate run id")
	}
	sum := Summary{RunID: runID.String(), Stage: stage.Stage.String()}
	log := r.logger().With(
		zap.String("run_id", sum.RunID),
		zap.String("stage", stage.Stage.String()),
	)

	t, err := r.loadTracker(ctx)
	if err != nil {
		return sum, err
	}
	keys := t.Keys()
	sum.Total = len(keys)

	if stage.Snapshot != nil {
		created, err := stage.Snapshot.EnsureExists(ctx, keys)
		if err != nil {
			return sum, err
		}
		if created {
			log.Info("created snapshot", zap.String("snapshot", stage.Snapshot.Name()))
		}
		if err := stage.Snapshot.Load(ctx); err != nil {
			return sum, err
		}
	}

	log.Info("stage started", zap.Int("keys", sum.Total), zap.Int("limit", r.Limit))
	start := r.clock().Now()

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			log.Warn("stage interrupted", zap.Int("processed", sum.Processed))
			return sum, errors.Wrapf(err, "%s interrupted before %q", stage.Stage, key)
		}

		if stage.Done(key, t) {
			sum.Skipped++
			log.Debug("already done", zap.String("key", string(key)))
			continue
		}

		if r.Limit > 0 && sum.Processed >= r.Limit {
			sum.Limited = true
			log.Info("limit reached", zap.Int("limit", r.Limit))
			break
		}

		if err := runKey(ctx, r, stage, t, key); err != nil {
			log.Error("stage aborted",
				zap.String("key", string(key)),
				zap.Int("processed", sum.Processed),
				zap.Error(err),
			)
			return sum, errors.Wrapf(err, "%s %q", stage.Stage, key)
		}
		sum.Processed++
		log.Debug("processed", zap.String("key", string(key)))
	}

	log.Info("stage finished",
		zap.Int("processed", sum.Processed),
		zap.Int("skipped", sum.Skipped),
		zap.Bool("limited", sum.Limited),
		zap.Duration("elapsed", r.clock().Now().Sub(start)),
	)
	return sum, nil
}

// runKey is one Pending -> Complete transition. The snapshot is saved before
// the tracker is marked, so a crash in between leaves data the predicate can
// see on the next run.
//
// Once the action has succeeded its side effect may already be visible
// remotely, so the key is persisted as Complete even if ctx is cancelled
// meanwhile.
func runKey[P snapshot.Payload](ctx context.Context, r *Runner, stage Stage[P], t *tracker.Tracker, key record.EntityKey) error {
	result, err := stage.Action(ctx, key)
	if err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	if stage.Snapshot != nil {
		if err := stage.Snapshot.Put(key, result); err != nil {
			return err
		}
		if err := stage.Snapshot.Save(ctx); err != nil {
			return errors.Wrapf(err, "save snapshot %s", stage.Snapshot.Name())
		}
	}

	if stage.Stage.HasMarker() {
		if err := t.MarkStageComplete(ctx, key, stage.Stage, r.clock().Now()); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) loadTracker(ctx context.Context) (*tracker.Tracker, error) {
	t, err := r.Tracker.Load(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.WithHint(
				errors.Mark(errors.Wrap(err, "tracker not initialized"), errors.ErrTrackerMissing),
				"run `vendorsync seed` first",
			)
		}
		return nil, err
	}
	return t, nil
}

func (r *Runner) clock() Clock {
	if r.Clock == nil {
		return SystemClock{}
	}
	return r.Clock
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// String renders the summary for text output.
func (s Summary) String() string {
	out := fmt.Sprintf("%s: processed %d, skipped %d of %d keys", s.Stage, s.Processed, s.Skipped, s.Total)
	if s.Limited {
		out += " (limit reached)"
	}
	return out + " [run " + s.RunID + "]"
}
