package gateway

import (
	"sort"
	"strings"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/record"
)

// ExpectedFields is the top-level field set of a vendor record.
var ExpectedFields = []string{
	"access_provider", "account", "code", "contact_info", "contact_person",
	"currency", "edi_info", "financial_sys_code", "governmental", "interface",
	"language", "liable_for_vat", "library", "licensor", "link",
	"material_supplier", "name", "note", "status",
}

// CheckShape compares payload's top-level fields with ExpectedFields. A
// mismatch is returned marked errors.ErrUnexpectedShape; it is a warning,
// not a reason to stop.
func CheckShape(payload record.Payload) error {
	var missing, extra []string
	for _, f := range ExpectedFields {
		if _, ok := payload[f]; !ok {
			missing = append(missing, f)
		}
	}
	expected := make(map[string]struct{}, len(ExpectedFields))
	for _, f := range ExpectedFields {
		expected[f] = struct{}{}
	}
	for _, f := range payload.Fields() {
		if _, ok := expected[f]; !ok {
			extra = append(extra, f)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}

	sort.Strings(extra)
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ","))
	}
	if len(extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(extra, ","))
	}
	return errors.Mark(
		errors.Newf("unusual vendor fields: %s", strings.Join(parts, "; ")),
		errors.ErrUnexpectedShape,
	)
}
