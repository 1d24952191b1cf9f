package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vendorsync/internal/runner"
)

func TestRunHelpText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "then fetch, normalize and push")
	assert.Contains(t, output, "--limit 5")
	assert.Contains(t, output, "stopping at the first failure")
}

func TestRunRejectsArguments(t *testing.T) {
	code, _, stderr := execute(t, "run", "extra")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "E000")
}

func TestRunSummaries(t *testing.T) {
	summaries := runSummaries{
		{RunID: "r1", Stage: "fetch", Total: 6, Processed: 6},
		{RunID: "r2", Stage: "normalize", Total: 6, Skipped: 6},
	}
	assert.Equal(t,
		"fetch: processed 6, skipped 0 of 6 keys [run r1]\nnormalize: processed 0, skipped 6 of 6 keys [run r2]",
		summaries.String(),
	)

	data, err := json.Marshal(summaries)
	require.NoError(t, err)
	var back []runner.Summary
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []runner.Summary(summaries), back)
}

func TestRun_ReportsProgressBeforeFailure(t *testing.T) {
	e := newCLIEnv(t)
	e.api.FailGet("V4", 500)

	code, _, stderr := execute(t, e.args("run")...)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "fetch: processed 3, skipped 0 of 6 keys")
	assert.Contains(t, stderr, "E005")
}
