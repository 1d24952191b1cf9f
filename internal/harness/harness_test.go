package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/gateway"
)

func intPtr(n int) *int { return &n }

func sixVendors() []Vendor {
	out := make([]Vendor, 0, 6)
	for i, code := range []string{"A", "B", "C", "D", "E", "F"} {
		out = append(out, Vendor{Code: code, FinancialSysCode: strings.Repeat("9", i+1)})
	}
	return out
}

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			_, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
		})
	}
}

func TestRun_Minimal(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "seed only",
		Keys:        []string{"A", "B", "C", "D", "E", "F"},
		Steps:       []Step{{Stage: "seed"}},
		Assertions: []Assertion{
			{Type: AssertMarkerCount, Stage: "fetch", Count: 0},
			{Type: AssertKeyStage, Key: "A", Stage: "seed"},
		},
	}

	result, err := Run(t, scenario)
	require.NoError(t, err)
	require.NotNil(t, result.Report)
	assert.Equal(t, 6, result.Report.Total)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, 6, result.Steps[0].Keys)
	assert.Equal(t, "seed ok keys=6", result.Trace[0])
	assert.Empty(t, result.Requests)
}

func TestRun_StepExpectationMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "fetch expected to fail but succeeds",
		Keys:        []string{"A", "B", "C", "D", "E", "F"},
		Remote:      sixVendors(),
		Steps: []Step{
			{Stage: "seed"},
			{Stage: "fetch", Expect: &StepExpect{Error: KindRemote}},
		},
	}

	result, err := Run(t, scenario)
	require.Error(t, err)
	require.NotNil(t, result)

	var scenarioErr *ScenarioError
	require.True(t, errors.As(err, &scenarioErr))
	require.Len(t, scenarioErr.Failures, 1)
	assert.Contains(t, scenarioErr.Failures[0], "steps[1] fetch")
	assert.Contains(t, err.Error(), "fetch ok processed=6 skipped=0")
}

func TestRun_CountMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "count_mismatch",
		Description: "processed count differs",
		Keys:        []string{"A", "B", "C", "D", "E", "F"},
		Remote:      sixVendors(),
		Steps: []Step{
			{Stage: "seed"},
			{Stage: "fetch", Limit: 3, Expect: &StepExpect{Processed: intPtr(2)}},
		},
	}

	_, err := Run(t, scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected processed=2, got 3")
}

func TestRun_FailedAssertions(t *testing.T) {
	scenario := &Scenario{
		Name:        "failed_assertions",
		Description: "every assertion type fails",
		Keys:        []string{"A", "B", "C", "D", "E", "F"},
		Remote:      sixVendors(),
		Steps:       []Step{{Stage: "seed"}, {Stage: "fetch"}},
		Assertions: []Assertion{
			{Type: AssertMarkerCount, Stage: "push", Count: 6},
			{Type: AssertKeyStage, Key: "A", Stage: "normalize"},
			{Type: AssertKeyStage, Key: "Z", Stage: "seed"},
			{Type: AssertRemoteField, Key: "A", Field: "financial_sys_code", Value: "S9"},
			{Type: AssertRemoteField, Key: "Z", Field: "financial_sys_code", Value: "S9"},
			{Type: AssertRequestCount, Method: "PUT", Count: 1},
		},
	}

	_, err := Run(t, scenario)
	require.Error(t, err)

	var scenarioErr *ScenarioError
	require.True(t, errors.As(err, &scenarioErr))
	assert.Len(t, scenarioErr.Failures, 6)
	assert.Contains(t, scenarioErr.Failures[0], "6 keys marked push")
	assert.Contains(t, scenarioErr.Failures[1], `got fetch`)
	assert.Contains(t, scenarioErr.Failures[2], "not tracked")
	assert.Contains(t, scenarioErr.Failures[3], `got "9"`)
	assert.Contains(t, scenarioErr.Failures[4], "none")
	assert.Contains(t, scenarioErr.Failures[5], "1 PUT requests")
}

func TestRun_InsufficientKeys(t *testing.T) {
	scenario := &Scenario{
		Name:        "too_few",
		Description: "seed rejects a short list",
		Keys:        []string{"A", "B"},
		Steps:       []Step{{Stage: "seed", Expect: &StepExpect{Error: KindInsufficientInput}}},
	}

	result, err := Run(t, scenario)
	require.NoError(t, err)
	assert.Nil(t, result.Report)
	assert.Equal(t, []string{"seed error=insufficient_input processed=0", "final no tracker"}, result.Trace)
}

func TestRun_FailGetAndClear(t *testing.T) {
	scenario := &Scenario{
		Name:        "fail_get",
		Description: "an injected GET failure is cleared for the retry",
		Keys:        []string{"A", "B", "C", "D", "E", "F"},
		Remote:      sixVendors(),
		Steps: []Step{
			{Stage: "seed"},
			{Stage: "fetch", FailGet: map[string]int{"A": 503}, Expect: &StepExpect{Error: KindRemote}},
			{Stage: "fetch", ClearFailures: true, Expect: &StepExpect{Processed: intPtr(6)}},
		},
	}

	result, err := Run(t, scenario)
	require.NoError(t, err)
	require.Len(t, result.Requests, 7)
	assert.Equal(t, 503, result.Requests[0].Status)
	assert.Equal(t, "GET A 503", result.Requests[0].String())
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.Wrap(&gateway.RemoteError{Status: 500}, "push \"A\""), KindRemote},
		{errors.Mark(errors.New("x"), errors.ErrTrackerMissing), KindTrackerMissing},
		{errors.Mark(errors.New("x"), errors.ErrAlreadyInitialized), KindAlreadyInitialized},
		{errors.Mark(errors.New("x"), errors.ErrInsufficientInput), KindInsufficientInput},
		{errors.Mark(errors.New("x"), errors.ErrPrerequisite), KindPrerequisite},
		{errors.Mark(errors.New("x"), errors.ErrMissingField), KindMissingField},
		{errors.New("x"), KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), "%v", tt.err)
	}
}
