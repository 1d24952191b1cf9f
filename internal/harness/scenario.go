package harness

import (
	"bytes"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/record"
)

// Scenario defines one end-to-end sync run.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Keys is the source list handed to Seed.
	Keys []string `yaml:"keys"`

	// Remote lists the records the fake API starts with.
	Remote []Vendor `yaml:"remote,omitempty"`

	// Steps run in order against the same output directory.
	Steps []Step `yaml:"steps"`

	// Assertions validate the state left after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Vendor is a remote record built from the standard vendor template.
type Vendor struct {
	Code             string `yaml:"code"`
	FinancialSysCode string `yaml:"financial_sys_code"`

	// Drop removes fields from the template, to produce unusual shapes.
	Drop []string `yaml:"drop,omitempty"`
}

// Step runs one stage.
type Step struct {
	// Stage is seed, fetch, normalize or push.
	Stage string `yaml:"stage"`

	// Limit caps the actions of this run.
	Limit int `yaml:"limit,omitempty"`

	// ClearFailures removes failures injected by earlier steps.
	ClearFailures bool `yaml:"clear_failures,omitempty"`

	// FailGet and FailPut map codes to the status the fake API answers with.
	FailGet map[string]int `yaml:"fail_get,omitempty"`
	FailPut map[string]int `yaml:"fail_put,omitempty"`

	// Expect checks the step outcome. Without it the step must succeed.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect describes the expected outcome of a step.
type StepExpect struct {
	// Error is the expected failure kind (see ErrorKind). Empty means success.
	Error string `yaml:"error,omitempty"`

	Processed *int `yaml:"processed,omitempty"`
	Skipped   *int `yaml:"skipped,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Stage  string `yaml:"stage,omitempty"`
	Key    string `yaml:"key,omitempty"`
	Field  string `yaml:"field,omitempty"`
	Value  string `yaml:"value,omitempty"`
	Method string `yaml:"method,omitempty"`
	Count  int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertMarkerCount  = "marker_count"
	AssertKeyStage     = "key_stage"
	AssertRemoteField  = "remote_field"
	AssertRequestCount = "request_count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario file")
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, errors.Wrap(err, "parse scenario")
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, errors.Wrap(err, "invalid scenario")
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}

	for i, v := range s.Remote {
		if v.Code == "" {
			return errors.Newf("remote[%d]: code is required", i)
		}
	}

	for i, step := range s.Steps {
		if _, err := record.ParseStage(step.Stage); err != nil {
			return errors.Wrapf(err, "steps[%d]", i)
		}
		if step.Limit < 0 {
			return errors.Newf("steps[%d]: limit must be non-negative", i)
		}
		if step.Expect != nil && step.Expect.Error != "" {
			if _, ok := errorKinds[step.Expect.Error]; !ok && step.Expect.Error != KindInternal {
				return errors.Newf("steps[%d].expect: unknown error kind %q", i, step.Expect.Error)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertMarkerCount:
		if _, err := record.ParseStage(a.Stage); err != nil {
			return errors.Wrapf(err, "assertions[%d]", index)
		}
		if a.Count < 0 {
			return errors.Newf("assertions[%d]: count must be non-negative", index)
		}
	case AssertKeyStage:
		if a.Key == "" {
			return errors.Newf("assertions[%d]: key is required for key_stage", index)
		}
		if _, err := record.ParseStage(a.Stage); err != nil {
			return errors.Wrapf(err, "assertions[%d]", index)
		}
	case AssertRemoteField:
		if a.Key == "" || a.Field == "" {
			return errors.Newf("assertions[%d]: key and field are required for remote_field", index)
		}
	case AssertRequestCount:
		if a.Method == "" {
			return errors.Newf("assertions[%d]: method is required for request_count", index)
		}
	case "":
		return errors.Newf("assertions[%d]: type is required", index)
	default:
		return errors.Newf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
