// Package pipeline composes the four stages of a vendor sync: Seed, Fetch,
// Normalize and Push. Each stage is a full pass over every tracked key and
// can be re-run on its own; Seed must run once before the others.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/gateway"
	"github.com/roach88/vendorsync/internal/record"
	"github.com/roach88/vendorsync/internal/runner"
	"github.com/roach88/vendorsync/internal/snapshot"
	"github.com/roach88/vendorsync/internal/store"
	"github.com/roach88/vendorsync/internal/tracker"
)

// Options tune a Pipeline. The zero value is usable. A zero Rule selects
// DefaultRule; any other Rule is used as given, so callers validate it.
type Options struct {
	Clock  runner.Clock
	Logger *zap.Logger
	Limit  int
	Rule   Rule
}

// Pipeline runs stages against one output directory's backend.
type Pipeline struct {
	backend  store.Backend
	gateway  gateway.Client
	trackers *tracker.Store
	runner   *runner.Runner
	rule     Rule
	log      *zap.Logger
}

// New creates a Pipeline. gw may be nil for Seed and Status, which never
// contact the remote API.
func New(backend store.Backend, gw gateway.Client, opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rule := opts.Rule
	if rule == (Rule{}) {
		rule = DefaultRule()
	}

	trackers := tracker.New(backend)
	return &Pipeline{
		backend:  backend,
		gateway:  gw,
		trackers: trackers,
		runner: &runner.Runner{
			Tracker: trackers,
			Clock:   opts.Clock,
			Logger:  log,
			Limit:   opts.Limit,
		},
		rule: rule,
		log:  log,
	}
}

// SeedResult describes a Seed run.
type SeedResult struct {
	Keys int `json:"keys"`
}

// Seed initializes the tracker with keys. It fails with
// errors.ErrAlreadyInitialized when the tracker already exists; existing
// progress is never reset.
func (p *Pipeline) Seed(ctx context.Context, keys []record.EntityKey) (SeedResult, error) {
	if len(keys) < MinSourceKeys {
		return SeedResult{}, errors.Mark(
			errors.Newf("seed needs at least %d codes, got %d", MinSourceKeys, len(keys)),
			errors.ErrInsufficientInput,
		)
	}
	for _, k := range keys {
		if !k.IsNFC() {
			p.log.Warn("code is not in NFC form; it is sent as written", zap.String("key", string(k)))
		}
	}
	t, err := p.trackers.Initialize(ctx, keys)
	if err != nil {
		return SeedResult{}, err
	}
	p.log.Info("tracker initialized", zap.Int("keys", t.Len()))
	return SeedResult{Keys: t.Len()}, nil
}

// SeedFromFile parses the source list at path and seeds the tracker.
func (p *Pipeline) SeedFromFile(ctx context.Context, path string) (SeedResult, error) {
	keys, err := ReadSourceFile(path)
	if err != nil {
		return SeedResult{}, err
	}
	return p.Seed(ctx, keys)
}

// Fetch retrieves the remote record of every key whose raw snapshot payload
// is still empty. Unusual field sets are logged and kept.
func (p *Pipeline) Fetch(ctx context.Context) (runner.Summary, error) {
	if err := p.requireGateway(); err != nil {
		return runner.Summary{Stage: record.StageFetch.String()}, err
	}
	raw := snapshot.New[record.Payload](p.backend, snapshot.RawName)

	return runner.Run(ctx, p.runner, runner.Stage[record.Payload]{
		Stage:    record.StageFetch,
		Snapshot: raw,
		Done: func(key record.EntityKey, _ *tracker.Tracker) bool {
			return raw.HasPayload(key)
		},
		Action: func(ctx context.Context, key record.EntityKey) (record.Payload, error) {
			payload, err := p.gateway.Fetch(ctx, key)
			if err != nil {
				return nil, err
			}
			if err := gateway.CheckShape(payload); err != nil {
				if errors.IsFatal(err) {
					return nil, err
				}
				p.log.Warn("unusual vendor fields",
					zap.String("key", string(key)),
					zap.Strings("fields", payload.Fields()),
					zap.Error(err),
				)
			}
			return payload, nil
		},
	})
}

// Normalize applies the Rule to every key whose normalized payload does not
// yet satisfy it. The first pass for a key starts from its raw payload.
func (p *Pipeline) Normalize(ctx context.Context) (runner.Summary, error) {
	raw := snapshot.New[record.Payload](p.backend, snapshot.RawName)
	if err := loadIfExists(ctx, raw); err != nil {
		return runner.Summary{Stage: record.StageNormalize.String()}, err
	}
	updated := snapshot.New[record.Payload](p.backend, snapshot.NormalizedName)

	return runner.Run(ctx, p.runner, runner.Stage[record.Payload]{
		Stage:    record.StageNormalize,
		Snapshot: updated,
		Done: func(key record.EntityKey, _ *tracker.Tracker) bool {
			current, _ := updated.Get(key)
			return !current.IsEmpty() && p.rule.Satisfied(current)
		},
		Action: func(_ context.Context, key record.EntityKey) (record.Payload, error) {
			current, _ := updated.Get(key)
			if current.IsEmpty() {
				if !raw.HasPayload(key) {
					return nil, prerequisite(key, record.StageFetch)
				}
				current, _ = raw.Get(key)
			}

			next, changed, err := p.rule.Normalize(current)
			if err != nil {
				return nil, err
			}
			p.log.Debug("normalized",
				zap.String("key", string(key)),
				zap.String("field", p.rule.Field),
				zap.Bool("changed", changed),
			)
			return next, nil
		},
	})
}

// Push writes the normalized payload of every key not yet marked pushed. A
// key is pushed at most once: the tracker marker is the only check.
func (p *Pipeline) Push(ctx context.Context) (runner.Summary, error) {
	if err := p.requireGateway(); err != nil {
		return runner.Summary{Stage: record.StagePush.String()}, err
	}
	updated := snapshot.New[record.Payload](p.backend, snapshot.NormalizedName)
	if err := loadIfExists(ctx, updated); err != nil {
		return runner.Summary{Stage: record.StagePush.String()}, err
	}

	return runner.Run(ctx, p.runner, runner.Stage[record.Payload]{
		Stage: record.StagePush,
		Done: func(key record.EntityKey, t *tracker.Tracker) bool {
			return t.IsStageComplete(key, record.StagePush)
		},
		Action: func(ctx context.Context, key record.EntityKey) (record.Payload, error) {
			payload, ok := updated.Get(key)
			if !ok || payload.IsEmpty() {
				return nil, prerequisite(key, record.StageNormalize)
			}
			return nil, p.gateway.Push(ctx, key, payload)
		},
	})
}

// RunAll seeds from sourcePath when no tracker exists yet, then runs Fetch,
// Normalize and Push in order, stopping at the first failure.
func (p *Pipeline) RunAll(ctx context.Context, sourcePath string) ([]runner.Summary, error) {
	exists, err := p.trackers.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		if _, err := p.SeedFromFile(ctx, sourcePath); err != nil {
			return nil, err
		}
	} else {
		p.log.Info("tracker exists, skipping seed")
	}

	stages := []func(context.Context) (runner.Summary, error){p.Fetch, p.Normalize, p.Push}
	summaries := make([]runner.Summary, 0, len(stages))
	for _, run := range stages {
		sum, err := run(ctx)
		summaries = append(summaries, sum)
		if err != nil {
			return summaries, err
		}
	}
	return summaries, nil
}

func (p *Pipeline) requireGateway() error {
	if p.gateway == nil {
		return errors.Mark(errors.New("remote gateway not configured"), errors.ErrConfiguration)
	}
	return nil
}

func loadIfExists[P snapshot.Payload](ctx context.Context, s *snapshot.Store[P]) error {
	exists, err := s.Exists(ctx)
	if err != nil || !exists {
		return err
	}
	return s.Load(ctx)
}

func prerequisite(key record.EntityKey, needed record.Stage) error {
	return errors.WithHintf(
		errors.Mark(
			errors.Newf("%q has no %s payload", key, needed),
			errors.ErrPrerequisite,
		),
		"run `vendorsync %s` first", needed,
	)
}

// String renders the result for text output.
func (r SeedResult) String() string {
	return fmt.Sprintf("seed: tracker initialized with %d keys", r.Keys)
}
