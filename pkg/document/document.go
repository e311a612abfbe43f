// Package document implements an insertion-ordered JSON object.
//
// The object is held as compact JSON text and edited in place with sjson, so
// nested content written by other tools survives a read/write cycle untouched
// and top-level keys are written back in the order they were first seen.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/errors"
)

// ErrNotObject is returned by Parse when the top-level value is not a JSON object.
var ErrNotObject = errors.New("top-level JSON value is not an object")

var emptyObject = []byte("{}")

// Document is an ordered JSON object. The zero value is an empty document.
type Document struct {
	data []byte
}

// New returns an empty document.
func New() *Document {
	return &Document{data: append([]byte(nil), emptyObject...)}
}

// Parse decodes data into a Document. Duplicate keys keep the position of
// their first occurrence and the value of their last.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON document")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrNotObject
	}

	doc := New()
	var err error
	root.ForEach(func(key, value gjson.Result) bool {
		err = doc.SetRaw(key.String(), json.RawMessage(value.Raw))
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Len returns the number of keys.
func (d *Document) Len() int {
	return len(d.Keys())
}

// Keys returns the keys in insertion order.
func (d *Document) Keys() []string {
	keys := []string{}
	gjson.ParseBytes(d.bytes()).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	return d.lookup(key).Exists()
}

// Get returns the raw JSON value stored under key.
func (d *Document) Get(key string) (json.RawMessage, bool) {
	res := d.lookup(key)
	if !res.Exists() {
		return nil, false
	}
	return json.RawMessage(res.Raw), true
}

// Set marshals v and stores it under key. Existing keys keep their position;
// new keys are appended.
func (d *Document) Set(key string, v any) error {
	raw, err := marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	return d.put(key, raw)
}

// SetRaw stores an already encoded JSON value under key.
func (d *Document) SetRaw(key string, raw json.RawMessage) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("invalid JSON for %q", key)
	}
	return d.put(key, pretty.Ugly(raw))
}

// Delete removes key if present.
func (d *Document) Delete(key string) {
	if !d.Has(key) {
		return
	}
	if out, err := sjson.DeleteBytes(d.bytes(), path(key)); err == nil {
		d.data = out
	}
}

// Decode unmarshals the value stored under key into v.
func (d *Document) Decode(key string, v any) error {
	raw, ok := d.Get(key)
	if !ok {
		return errors.NewNotFoundError("key", key)
	}
	return json.Unmarshal(raw, v)
}

// String returns the value under key when it is a JSON string.
func (d *Document) String(key string) (string, bool) {
	res := d.lookup(key)
	if res.Type != gjson.String {
		return "", false
	}
	return res.Str, true
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	return &Document{data: append([]byte(nil), d.bytes()...)}
}

// MarshalJSON implements json.Marshaler, producing a compact object in key order.
func (d *Document) MarshalJSON() ([]byte, error) {
	return append([]byte(nil), d.bytes()...), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// MarshalIndent renders the document with the given indent and key order.
// Every array element and object member goes on its own line.
func (d *Document) MarshalIndent(indent string) ([]byte, error) {
	out := pretty.PrettyOptions(d.bytes(), &pretty.Options{
		Width:    0,
		Indent:   indent,
		SortKeys: false,
	})
	return bytes.TrimRight(out, "\n"), nil
}

func (d *Document) bytes() []byte {
	if len(d.data) == 0 {
		return emptyObject
	}
	return d.data
}

func (d *Document) lookup(key string) gjson.Result {
	return gjson.GetBytes(d.bytes(), path(key))
}

func (d *Document) put(key string, raw []byte) error {
	out, err := sjson.SetRawBytes(d.bytes(), path(key), raw)
	if err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	d.data = out
	return nil
}

// path escapes key so gjson and sjson treat it as a single literal member name.
func path(key string) string {
	return gjson.Escape(key)
}

// marshal encodes v without HTML escaping so paths and flags stay readable.
func marshal(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
