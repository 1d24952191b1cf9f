package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/record"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertMarkerCount:
		return assertMarkerCount(r, a)
	case AssertKeyStage:
		return assertKeyStage(r, a)
	case AssertRemoteField:
		return assertRemoteField(r, a)
	case AssertRequestCount:
		return assertRequestCount(r, a)
	default:
		return errors.Newf("unknown assertion type %q", a.Type)
	}
}

func assertMarkerCount(r *Result, a Assertion) error {
	stage, err := record.ParseStage(a.Stage)
	if err != nil {
		return err
	}
	got := 0
	if r.Report != nil {
		got = r.Report.Completed[stage.String()]
	}
	if got != a.Count {
		return &AssertionError{
			Type:     AssertMarkerCount,
			Expected: fmt.Sprintf("%d keys marked %s", a.Count, stage),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

func assertKeyStage(r *Result, a Assertion) error {
	stage, err := record.ParseStage(a.Stage)
	if err != nil {
		return err
	}
	if r.Report == nil {
		return &AssertionError{Type: AssertKeyStage, Expected: "a tracker", Actual: "none"}
	}
	for _, k := range r.Report.Keys {
		if k.Key != a.Key {
			continue
		}
		if k.Stage != stage.String() {
			return &AssertionError{
				Type:     AssertKeyStage,
				Expected: fmt.Sprintf("%s at %s", a.Key, stage),
				Actual:   k.Stage,
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertKeyStage,
		Expected: fmt.Sprintf("%s tracked", a.Key),
		Actual:   "not tracked",
	}
}

func assertRemoteField(r *Result, a Assertion) error {
	p, ok := r.RemoteRecord(a.Key)
	if !ok {
		return &AssertionError{
			Type:     AssertRemoteField,
			Expected: fmt.Sprintf("remote record %s", a.Key),
			Actual:   "none",
		}
	}
	got, ok := p.StringField(a.Field)
	if !ok || got != a.Value {
		return &AssertionError{
			Type:     AssertRemoteField,
			Expected: fmt.Sprintf("%s.%s = %q", a.Key, a.Field, a.Value),
			Actual:   fmt.Sprintf("%q", got),
		}
	}
	return nil
}

func assertRequestCount(r *Result, a Assertion) error {
	got := 0
	for _, req := range r.Requests {
		if strings.EqualFold(req.Method, a.Method) {
			got++
		}
	}
	if got != a.Count {
		return &AssertionError{
			Type:     AssertRequestCount,
			Expected: fmt.Sprintf("%d %s requests", a.Count, strings.ToUpper(a.Method)),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}
