package pipeline

import (
	"strings"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/record"
)

// Default normalization: the financial system code must carry the "S" prefix.
const (
	DefaultNormalizeField  = "financial_sys_code"
	DefaultNormalizePrefix = "S"
)

// Rule is the normalization applied by the normalize stage: Field must be a
// string starting with Prefix.
type Rule struct {
	Field  string
	Prefix string
}

// DefaultRule returns the financial_sys_code rule.
func DefaultRule() Rule {
	return Rule{Field: DefaultNormalizeField, Prefix: DefaultNormalizePrefix}
}

// Satisfied reports whether p already complies with the rule.
func (r Rule) Satisfied(p record.Payload) bool {
	v, ok := p.StringField(r.Field)
	return ok && strings.HasPrefix(v, r.Prefix)
}

// Normalize returns a copy of p whose Field starts with Prefix, and whether a
// change was made. It is idempotent: Normalize of a normalized payload
// returns an equal payload and changed == false. A missing or non-string
// field fails with errors.ErrMissingField.
func (r Rule) Normalize(p record.Payload) (out record.Payload, changed bool, err error) {
	v, ok := p.StringField(r.Field)
	if !ok {
		return nil, false, errors.Mark(
			errors.Newf("field %q is missing or not a string", r.Field),
			errors.ErrMissingField,
		)
	}

	out = p.Clone()
	if strings.HasPrefix(v, r.Prefix) {
		return out, false, nil
	}
	out[r.Field] = r.Prefix + v
	return out, true, nil
}
