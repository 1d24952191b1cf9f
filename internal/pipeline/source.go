package pipeline

import (
	"os"
	"strings"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/record"
)

// MinSourceKeys is the smallest source list Seed accepts.
const MinSourceKeys = 6

// ParseSourceList splits a delimited code list on commas and newlines. Blank
// entries and repeats are dropped; the first occurrence fixes a key's
// position. Fewer than MinSourceKeys keys fails with
// errors.ErrInsufficientInput.
func ParseSourceList(data string) ([]record.EntityKey, error) {
	data = strings.TrimPrefix(data, "\ufeff")
	fields := strings.FieldsFunc(data, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	keys := record.NewOrderedKeys()
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			continue
		}
		k, err := record.NewEntityKey(f)
		if err != nil {
			return nil, err
		}
		keys.Add(k)
	}

	if keys.Len() < MinSourceKeys {
		return nil, errors.WithHint(
			errors.Mark(
				errors.Newf("source list has %d codes, need at least %d", keys.Len(), MinSourceKeys),
				errors.ErrInsufficientInput,
			),
			"check that the source file is the comma-separated vendor code export",
		)
	}
	return keys.Slice(), nil
}

// ReadSourceFile reads and parses the source list at path.
func ReadSourceFile(path string) ([]record.EntityKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read source list %s", path)
	}
	keys, err := ParseSourceList(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "parse source list %s", path)
	}
	return keys, nil
}
