// Package rules extracts a temperature from a smartctl JSON document using
// an ordered list of dialect-specific matchers.
package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Kind is the JSON type of a Document node.
type Kind int

const (
	// Invalid marks a missing node, the result of navigating a path that
	// does not exist.
	Invalid Kind = iota
	Null
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "invalid"
	}
}

// Document is a read-only view over a decoded JSON tree. Navigation never
// fails: stepping through a missing key, an out-of-range index or a node of
// the wrong kind yields an Invalid document.
type Document struct {
	v     interface{}
	valid bool
}

// ParseDocument decodes a single JSON value. Numbers are kept as
// json.Number so integers are not rounded through float64.
func ParseDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return Document{}, fmt.Errorf("failed to parse JSON document: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Document{}, errors.New("failed to parse JSON document: trailing data after top-level value")
	}
	return Document{v: v, valid: true}, nil
}

// MustParse is ParseDocument for literals in tests and examples.
func MustParse(s string) Document {
	d, err := ParseDocument([]byte(s))
	if err != nil {
		panic(err)
	}
	return d
}

// Kind returns the node's JSON type.
func (d Document) Kind() Kind {
	if !d.valid {
		return Invalid
	}
	switch d.v.(type) {
	case nil:
		return Null
	case bool:
		return Bool
	case json.Number:
		return Number
	case string:
		return String
	case []interface{}:
		return Array
	case map[string]interface{}:
		return Object
	default:
		return Invalid
	}
}

// Exists reports whether the node is present.
func (d Document) Exists() bool {
	return d.Kind() != Invalid
}

// Get returns the member key of an object node.
func (d Document) Get(key string) Document {
	m, ok := d.v.(map[string]interface{})
	if !d.valid || !ok {
		return Document{}
	}
	v, ok := m[key]
	if !ok {
		return Document{}
	}
	return Document{v: v, valid: true}
}

// Path follows keys through nested objects.
func (d Document) Path(keys ...string) Document {
	for _, k := range keys {
		d = d.Get(k)
	}
	return d
}

// Index returns element i of an array node.
func (d Document) Index(i int) Document {
	a, ok := d.v.([]interface{})
	if !d.valid || !ok || i < 0 || i >= len(a) {
		return Document{}
	}
	return Document{v: a[i], valid: true}
}

// Items returns the elements of an array node, or nil for any other kind.
func (d Document) Items() []Document {
	a, ok := d.v.([]interface{})
	if !d.valid || !ok {
		return nil
	}
	items := make([]Document, len(a))
	for i, v := range a {
		items[i] = Document{v: v, valid: true}
	}
	return items
}

// Int returns the node as an int64. It succeeds only for JSON numbers that
// are integers in int64 range.
func (d Document) Int() (int64, bool) {
	n, ok := d.v.(json.Number)
	if !d.valid || !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return i, true
}

// Str returns the node as a string.
func (d Document) Str() (string, bool) {
	s, ok := d.v.(string)
	return s, d.valid && ok
}

// Find returns the first element of an array node for which match is true.
func (d Document) Find(match func(Document) bool) Document {
	for _, item := range d.Items() {
		if match(item) {
			return item
		}
	}
	return Document{}
}
