package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Declarative path extraction over decoded JSON
// ---------------------------------------------------------------------------

// Path is a sequence of object keys (string) and list indexes (int).
type Path []any

// P builds a Path.
func P(steps ...any) Path { return Path(steps) }

// Node is the result of resolving a Path. A missing intermediate node at any
// depth yields an absent Node rather than an error.
type Node struct {
	v       any
	present bool
}

// DecodePayload decodes raw JSON keeping numbers as json.Number so that
// large integers and decimal amounts survive untouched.
func DecodePayload(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return v, nil
}

// Lookup resolves p against root.
func Lookup(root any, p Path) Node {
	cur := root
	for _, step := range p {
		switch k := step.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return Node{}
			}
			next, ok := m[k]
			if !ok {
				return Node{}
			}
			cur = next
		case int:
			l, ok := cur.([]any)
			if !ok || k < 0 || k >= len(l) {
				return Node{}
			}
			cur = l[k]
		default:
			return Node{}
		}
	}
	if cur == nil {
		return Node{}
	}
	return Node{v: cur, present: true}
}

// FirstPresent returns the first path that resolves to a non-empty value.
func FirstPresent(root any, paths ...Path) Node {
	for _, p := range paths {
		if n := Lookup(root, p); n.present && !n.IsEmpty() {
			return n
		}
	}
	return Node{}
}

// Present reports whether the node resolved.
func (n Node) Present() bool { return n.present }

// Value returns the raw decoded value.
func (n Node) Value() any { return n.v }

// IsEmpty is true for absent nodes, blank strings and empty containers.
func (n Node) IsEmpty() bool {
	if !n.present {
		return true
	}
	switch v := n.v.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

// Get resolves a further path relative to n.
func (n Node) Get(steps ...any) Node {
	if !n.present {
		return Node{}
	}
	return Lookup(n.v, Path(steps))
}

// String renders scalars as trimmed strings.
func (n Node) String() (string, bool) {
	if !n.present {
		return "", false
	}
	switch v := n.v.(type) {
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

// StringOr returns the string value or fallback.
func (n Node) StringOr(fallback string) string {
	if s, ok := n.String(); ok {
		return s
	}
	return fallback
}

// Int parses integers from numbers or numeric strings.
func (n Node) Int() (int, bool) {
	d, ok := n.Decimal()
	if !ok || !d.Equal(d.Truncate(0)) {
		return 0, false
	}
	return int(d.IntPart()), true
}

// Decimal parses a number, tolerating thousands separators and currency
// noise in string form.
func (n Node) Decimal() (decimal.Decimal, bool) {
	s, ok := n.String()
	if !ok {
		return decimal.Zero, false
	}
	return ParseAmount(s)
}

// Bool accepts JSON booleans and "true"/"yes"/"1" style strings.
func (n Node) Bool() (bool, bool) {
	if !n.present {
		return false, false
	}
	switch v := n.v.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1", "y":
			return true, true
		case "false", "no", "0", "n":
			return false, true
		}
	}
	return false, false
}

// List returns the node as a list. A single object is promoted to a
// one-element list so that fields that are "object or list" read uniformly.
func (n Node) List() []Node {
	if !n.present {
		return nil
	}
	switch v := n.v.(type) {
	case []any:
		out := make([]Node, 0, len(v))
		for _, item := range v {
			if item != nil {
				out = append(out, Node{v: item, present: true})
			}
		}
		return out
	case map[string]any:
		return []Node{n}
	}
	return nil
}

// Map returns the node as an object.
func (n Node) Map() (map[string]any, bool) {
	m, ok := n.v.(map[string]any)
	return m, ok && n.present
}

// ParseAmount parses a monetary figure such as "12,500", "₹ 1,200.50" or
// "-1". Returns false for blanks and non-numeric text.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer(",", "", "₹", "", "Rs.", "", "INR", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
