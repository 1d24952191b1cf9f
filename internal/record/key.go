package record

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/vendorsync/internal/errors"
)

// EntityKey identifies one vendor code for the whole pipeline. It is opaque:
// it may contain characters such as '#' that need encoding before it is placed
// in a request path.
type EntityKey string

// NewEntityKey validates a raw code. Surrounding whitespace is trimmed; the
// remaining bytes are kept as written, since the remote API matches codes
// byte for byte.
func NewEntityKey(raw string) (EntityKey, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("entity key must not be empty")
	}
	return EntityKey(trimmed), nil
}

// IsNFC reports whether the key is in Unicode normalization form C. Keys in
// other forms are valid but look identical to distinct codes when printed.
func (k EntityKey) IsNFC() bool {
	return norm.NFC.IsNormalString(string(k))
}

// String returns the key as a plain string.
func (k EntityKey) String() string {
	return string(k)
}

// OrderedKeys is an insertion-ordered set of keys. Iteration order of every
// stage is the order keys were added at seed time.
type OrderedKeys struct {
	keys []EntityKey
	seen map[EntityKey]struct{}
}

// NewOrderedKeys creates an empty set.
func NewOrderedKeys() *OrderedKeys {
	return &OrderedKeys{seen: make(map[EntityKey]struct{})}
}

// Add appends k unless it is already present. Returns true if k was added.
func (o *OrderedKeys) Add(k EntityKey) bool {
	if _, ok := o.seen[k]; ok {
		return false
	}
	o.seen[k] = struct{}{}
	o.keys = append(o.keys, k)
	return true
}

// Contains reports whether k is in the set.
func (o *OrderedKeys) Contains(k EntityKey) bool {
	_, ok := o.seen[k]
	return ok
}

// Len returns the number of keys.
func (o *OrderedKeys) Len() int {
	return len(o.keys)
}

// Slice returns a copy of the keys in insertion order.
func (o *OrderedKeys) Slice() []EntityKey {
	out := make([]EntityKey, len(o.keys))
	copy(out, o.keys)
	return out
}
