package store

import (
	"bytes"
	"encoding/json"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/record"
)

// Document is an insertion-ordered mapping from entity key to a compact JSON
// value.
type Document struct {
	keys   []record.EntityKey
	values map[record.EntityKey]json.RawMessage
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{values: make(map[record.EntityKey]json.RawMessage)}
}

// Set stores value under key. A new key is appended; an existing key keeps
// its position.
func (d *Document) Set(key record.EntityKey, value json.RawMessage) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the raw value for key.
func (d *Document) Get(key record.EntityKey) (json.RawMessage, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (d *Document) Keys() []record.EntityKey {
	out := make([]record.EntityKey, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of keys.
func (d *Document) Len() int {
	return len(d.keys)
}

// MarshalValue encodes v as compact JSON without HTML escaping, so vendor
// text such as "A & B" is stored as written.
func MarshalValue(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// MarshalJSON writes the document as a two-space indented JSON object with
// keys in insertion order.
func (d *Document) MarshalJSON() ([]byte, error) {
	if len(d.keys) == 0 {
		return []byte("{}\n"), nil
	}
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, key := range d.keys {
		encodedKey, err := MarshalValue(string(key))
		if err != nil {
			return nil, errors.Wrapf(err, "encode key %q", key)
		}
		buf.WriteString("  ")
		buf.Write(encodedKey)
		buf.WriteString(": ")
		if err := json.Indent(&buf, d.values[key], "  ", "  "); err != nil {
			return nil, errors.Wrapf(err, "encode value for %q", key)
		}
		if i < len(d.keys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping the order keys appear in.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "read document")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.Newf("document must be a JSON object, got %v", tok)
	}

	*d = *NewDocument()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "read document key")
		}
		key, ok := tok.(string)
		if !ok {
			return errors.Newf("document key must be a string, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, "read value for %q", key)
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return errors.Wrapf(err, "compact value for %q", key)
		}
		d.Set(record.EntityKey(key), json.RawMessage(compact.Bytes()))
	}
	if _, err := dec.Token(); err != nil {
		return errors.Wrap(err, "read document end")
	}
	return nil
}
