package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := `
name: test_scenario
description: "Test scenario for validation"
keys: [A, B, C, D, E, "#F"]
remote:
  - code: A
    financial_sys_code: "1"
    drop: [note]
steps:
  - stage: seed
  - stage: fetch
    limit: 2
    fail_get: { B: 503 }
    expect: { error: remote, processed: 1 }
  - stage: 03_alma_updated
assertions:
  - type: marker_count
    stage: fetch
    count: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "#F"}, scenario.Keys)
	require.Len(t, scenario.Remote, 1)
	assert.Equal(t, []string{"note"}, scenario.Remote[0].Drop)
	require.Len(t, scenario.Steps, 3)
	assert.Equal(t, 2, scenario.Steps[1].Limit)
	assert.Equal(t, map[string]int{"B": 503}, scenario.Steps[1].FailGet)
	require.NotNil(t, scenario.Steps[1].Expect)
	assert.Equal(t, KindRemote, scenario.Steps[1].Expect.Error)
	require.NotNil(t, scenario.Steps[1].Expect.Processed)
	assert.Equal(t, 1, *scenario.Steps[1].Expect.Processed)
	assert.Nil(t, scenario.Steps[1].Expect.Skipped)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: d\nstep:\n  - stage: seed\n",
			wantErr: "field step not found",
		},
		{
			name:    "missing name",
			content: "description: d\nsteps:\n  - stage: seed\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\nsteps:\n  - stage: seed\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			content: "name: x\ndescription: d\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown stage",
			content: "name: x\ndescription: d\nsteps:\n  - stage: deploy\n",
			wantErr: `unknown stage "deploy"`,
		},
		{
			name:    "negative limit",
			content: "name: x\ndescription: d\nsteps:\n  - stage: fetch\n    limit: -1\n",
			wantErr: "limit must be non-negative",
		},
		{
			name:    "unknown error kind",
			content: "name: x\ndescription: d\nsteps:\n  - stage: fetch\n    expect: { error: boom }\n",
			wantErr: `unknown error kind "boom"`,
		},
		{
			name:    "remote without code",
			content: "name: x\ndescription: d\nremote:\n  - financial_sys_code: \"1\"\nsteps:\n  - stage: seed\n",
			wantErr: "remote[0]: code is required",
		},
		{
			name:    "unknown assertion",
			content: "name: x\ndescription: d\nsteps:\n  - stage: seed\nassertions:\n  - type: trace_contains\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "assertion without type",
			content: "name: x\ndescription: d\nsteps:\n  - stage: seed\nassertions:\n  - count: 1\n",
			wantErr: "type is required",
		},
		{
			name:    "key_stage without key",
			content: "name: x\ndescription: d\nsteps:\n  - stage: seed\nassertions:\n  - type: key_stage\n    stage: fetch\n",
			wantErr: "key is required",
		},
		{
			name:    "remote_field without field",
			content: "name: x\ndescription: d\nsteps:\n  - stage: seed\nassertions:\n  - type: remote_field\n    key: A\n",
			wantErr: "key and field are required",
		},
		{
			name:    "request_count without method",
			content: "name: x\ndescription: d\nsteps:\n  - stage: seed\nassertions:\n  - type: request_count\n",
			wantErr: "method is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
