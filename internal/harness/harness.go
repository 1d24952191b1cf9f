package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/gateway"
	"github.com/roach88/vendorsync/internal/pipeline"
	"github.com/roach88/vendorsync/internal/record"
	"github.com/roach88/vendorsync/internal/runner"
	"github.com/roach88/vendorsync/internal/store"
	"github.com/roach88/vendorsync/internal/testutil"
)

const apiKey = "harness-key"

// Failure kinds a step can expect.
const (
	KindInternal           = "internal"
	KindRemote             = "remote"
	KindTrackerMissing     = "tracker_missing"
	KindAlreadyInitialized = "already_initialized"
	KindInsufficientInput  = "insufficient_input"
	KindPrerequisite       = "prerequisite"
	KindMissingField       = "missing_field"
)

var errorKinds = map[string]error{
	KindTrackerMissing:     errors.ErrTrackerMissing,
	KindAlreadyInitialized: errors.ErrAlreadyInitialized,
	KindInsufficientInput:  errors.ErrInsufficientInput,
	KindPrerequisite:       errors.ErrPrerequisite,
	KindMissingField:       errors.ErrMissingField,
}

// ErrorKind classifies a stage error for traces and expectations.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if _, ok := gateway.AsRemoteError(err); ok {
		return KindRemote
	}
	for _, kind := range []string{
		KindTrackerMissing, KindAlreadyInitialized, KindInsufficientInput,
		KindPrerequisite, KindMissingField,
	} {
		if errors.Is(err, errorKinds[kind]) {
			return kind
		}
	}
	return KindInternal
}

// StepResult is the outcome of one step.
type StepResult struct {
	Stage   string
	Summary runner.Summary
	Keys    int
	Err     error
}

// Result is the outcome of a scenario.
type Result struct {
	// Trace holds one line per stage outcome, answered request and final key
	// state, in order.
	Trace []string

	Steps  []StepResult
	Report *pipeline.Report

	// Requests are every call the fake API answered.
	Requests []testutil.Request

	api *testutil.FakeVendorAPI
}

// RemoteRecord returns the fake API's record for code after the run.
func (r *Result) RemoteRecord(code string) (record.Payload, bool) {
	return r.api.Record(code)
}

// TraceText joins the trace into the golden file layout.
func (r *Result) TraceText() string {
	return strings.Join(r.Trace, "\n") + "\n"
}

// Harness holds the fixtures shared by every step of one scenario.
type Harness struct {
	t       *testing.T
	backend store.Backend
	api     *testutil.FakeVendorAPI
	client  gateway.Client
	clock   *testutil.DeterministicClock
}

// New prepares a fresh output directory and fake API for a scenario.
func New(t *testing.T, scenario *Scenario) (*Harness, error) {
	t.Helper()
	api := testutil.NewFakeVendorAPI(t, apiKey)
	for _, v := range scenario.Remote {
		p := testutil.VendorPayload(v.Code, v.FinancialSysCode)
		for _, field := range v.Drop {
			delete(p, field)
		}
		api.Put(v.Code, p)
	}
	client, err := gateway.NewHTTPClient(api.BaseURL(), apiKey, 0)
	if err != nil {
		return nil, err
	}
	return &Harness{
		t:       t,
		backend: store.NewFileBackend(t.TempDir()),
		api:     api,
		client:  client,
		clock:   testutil.NewDeterministicClock(),
	}, nil
}

// Run executes scenario and evaluates its expectations and assertions. The
// Result is returned even when a check fails, so callers can inspect the
// trace.
func Run(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()
	h, err := New(t, scenario)
	if err != nil {
		return nil, err
	}
	return h.Run(context.Background(), scenario)
}

// Run executes every step of scenario in order.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := &Result{api: h.api}
	seen := 0

	var failures []string
	for i, step := range scenario.Steps {
		h.applyFailures(step)
		sr := h.runStep(ctx, scenario, step)
		result.Steps = append(result.Steps, sr)

		requests := h.api.Requests()
		for _, req := range requests[seen:] {
			result.Trace = append(result.Trace, "  "+req.String())
		}
		seen = len(requests)
		result.Trace = append(result.Trace, outcomeLine(sr))

		if msg := checkStep(sr, step.Expect); msg != "" {
			failures = append(failures, fmt.Sprintf("steps[%d] %s: %s", i, step.Stage, msg))
		}
	}
	result.Requests = h.api.Requests()

	report, err := h.pipeline(0).Status(ctx)
	switch {
	case err == nil:
		result.Report = report
		for _, k := range report.Keys {
			result.Trace = append(result.Trace, fmt.Sprintf("final %s %s", k.Key, k.Stage))
		}
	case errors.Is(err, errors.ErrTrackerMissing):
		result.Trace = append(result.Trace, "final no tracker")
	default:
		return result, err
	}

	for _, a := range scenario.Assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) > 0 {
		return result, &ScenarioError{Name: scenario.Name, Failures: failures, Trace: result.Trace}
	}
	return result, nil
}

func (h *Harness) pipeline(limit int) *pipeline.Pipeline {
	return pipeline.New(h.backend, h.client, pipeline.Options{
		Clock:  h.clock,
		Logger: zaptest.NewLogger(h.t),
		Limit:  limit,
	})
}

func (h *Harness) applyFailures(step Step) {
	if step.ClearFailures {
		h.api.ClearFailures()
	}
	for code, status := range step.FailGet {
		h.api.FailGet(code, status)
	}
	for code, status := range step.FailPut {
		h.api.FailPut(code, status)
	}
}

func (h *Harness) runStep(ctx context.Context, scenario *Scenario, step Step) StepResult {
	stage, _ := record.ParseStage(step.Stage)
	p := h.pipeline(step.Limit)
	sr := StepResult{Stage: stage.String()}

	switch stage {
	case record.StageSeed:
		keys, err := pipeline.ParseSourceList(strings.Join(scenario.Keys, "\n"))
		if err != nil {
			sr.Err = err
			return sr
		}
		res, err := p.Seed(ctx, keys)
		sr.Keys, sr.Err = res.Keys, err
	case record.StageFetch:
		sr.Summary, sr.Err = p.Fetch(ctx)
	case record.StageNormalize:
		sr.Summary, sr.Err = p.Normalize(ctx)
	case record.StagePush:
		sr.Summary, sr.Err = p.Push(ctx)
	}
	return sr
}

func outcomeLine(sr StepResult) string {
	if sr.Err != nil {
		return fmt.Sprintf("%s error=%s processed=%d", sr.Stage, ErrorKind(sr.Err), sr.Summary.Processed)
	}
	if sr.Stage == record.StageSeed.String() {
		return fmt.Sprintf("seed ok keys=%d", sr.Keys)
	}
	s := sr.Summary
	line := fmt.Sprintf("%s ok processed=%d skipped=%d", sr.Stage, s.Processed, s.Skipped)
	if s.Limited {
		line += " limited"
	}
	return line
}

func checkStep(sr StepResult, expect *StepExpect) string {
	wantKind := ""
	if expect != nil {
		wantKind = expect.Error
	}
	if got := ErrorKind(sr.Err); got != wantKind {
		if wantKind == "" {
			return fmt.Sprintf("unexpected error: %v", sr.Err)
		}
		return fmt.Sprintf("expected %s error, got %q (%v)", wantKind, got, sr.Err)
	}
	if expect == nil {
		return ""
	}
	if expect.Processed != nil && *expect.Processed != sr.Summary.Processed {
		return fmt.Sprintf("expected processed=%d, got %d", *expect.Processed, sr.Summary.Processed)
	}
	if expect.Skipped != nil && *expect.Skipped != sr.Summary.Skipped {
		return fmt.Sprintf("expected skipped=%d, got %d", *expect.Skipped, sr.Summary.Skipped)
	}
	return ""
}

// ScenarioError lists every failed expectation and assertion of a scenario.
type ScenarioError struct {
	Name     string
	Failures []string
	Trace    []string
}

func (e *ScenarioError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario %s failed:\n", e.Name)
	for _, f := range e.Failures {
		fmt.Fprintf(&buf, "  - %s\n", f)
	}
	buf.WriteString("\nTrace:\n")
	for _, line := range e.Trace {
		fmt.Fprintf(&buf, "  %s\n", line)
	}
	return buf.String()
}
