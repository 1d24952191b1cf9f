package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/gateway"
	"github.com/roach88/vendorsync/internal/runner"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(runner.Summary{Stage: "fetch", Total: 7, Processed: 7})
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   runner.Summary `json:"data"`
	}
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 7, resp.Data.Processed)
}

func TestOutputFormatter_YAMLSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "yaml",
		Writer: buf,
	}

	err := formatter.Success(runner.Summary{RunID: "r1", Stage: "push", Total: 3, Skipped: 1})
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "push", data["stage"])
	assert.Equal(t, 1, data["skipped"])
	assert.Equal(t, "r1", data["run_id"], "yaml uses the json field names")
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E001", "missing configuration", []string{"set ALMA_VENDOR__API_KEY"}, nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "missing configuration", resp.Error.Message)
	assert.Equal(t, []string{"set ALMA_VENDOR__API_KEY"}, resp.Error.Hints)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success(runner.Summary{RunID: "r1", Stage: "fetch", Total: 7, Processed: 2, Limited: true})
	require.NoError(t, err)
	assert.Equal(t, "fetch: processed 2, skipped 0 of 7 keys (limit reached) [run r1]\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("E003", "tracker missing", []string{"run `vendorsync seed` first"}, "stack")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E003]: tracker missing")
	assert.Contains(t, buf.String(), "Hint: run `vendorsync seed` first")
	assert.NotContains(t, buf.String(), "Details:")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.ReportError(errors.Wrap(errors.New("boom"), "fetch \"A\""))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E000]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"configuration", errors.Mark(errors.New("x"), errors.ErrConfiguration), CodeConfiguration},
		{"insufficient input", errors.Mark(errors.New("x"), errors.ErrInsufficientInput), CodeInsufficientInput},
		{"tracker missing", errors.Mark(errors.New("x"), errors.ErrTrackerMissing), CodeTrackerMissing},
		{"already seeded", errors.Mark(errors.New("x"), errors.ErrAlreadyInitialized), CodeAlreadySeeded},
		{"locked", errors.Mark(errors.New("x"), errors.ErrLocked), CodeLocked},
		{"prerequisite", errors.Mark(errors.New("x"), errors.ErrPrerequisite), CodePrerequisite},
		{"missing field", errors.Mark(errors.New("x"), errors.ErrMissingField), CodeData},
		{"remote", errors.Wrap(&gateway.RemoteError{Status: 500}, "push \"C\""), CodeRemote},
		{"wrapped in exit error", WrapExitError(ExitFailure, "push failed", &gateway.RemoteError{Status: 500}), CodeRemote},
		{"other", errors.New("x"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("x")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))

	cfgErr := wrapStageError("seed failed", errors.Mark(errors.New("x"), errors.ErrConfiguration))
	assert.Equal(t, ExitCommandError, GetExitCode(cfgErr))
	assert.Equal(t, ExitFailure, GetExitCode(wrapStageError("push failed", errors.New("x"))))
}
