package record

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Payload is a vendor record as returned by the remote API. Field values keep
// their decoded JSON types.
type Payload map[string]any

// IsEmpty reports whether the payload has no fields. An empty payload means
// "not yet produced" in every snapshot.
func (p Payload) IsEmpty() bool {
	return len(p) == 0
}

// MarshalJSON writes a nil payload as {}.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(p))
}

// UnmarshalJSON decodes numbers as json.Number so large integer IDs survive a
// fetch/push round trip without float64 precision loss.
func (p *Payload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*p = m
	return nil
}

// Clone returns a shallow copy. Stages only replace top-level values, so
// nested objects may be shared.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// StringField returns a top-level string field.
func (p Payload) StringField(field string) (string, bool) {
	v, ok := p[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Fields returns the top-level field names, sorted.
func (p Payload) Fields() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
