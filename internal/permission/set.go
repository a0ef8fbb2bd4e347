package permission

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Entry is one record of the list-shaped permission document.
// Effect is always Allow or Deny; an absent pair means NotSet.
type Entry struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Effect   Status `json:"effect"`
}

type shapeKind int

const (
	shapeUnknown shapeKind = iota
	shapeEntries
	shapeNested
	shapeFlat
)

// Set is a permission document. Authorization services hand the console
// one of three JSON shapes (a list of entries, a nested object map, or
// a flat dot-notation map) and the shape is decided exactly once, in
// DecodeSet. All lookups and edits afterwards dispatch on the tag
// instead of re-probing the runtime shape.
//
// The zero Set resolves everything to NotSet and edits like an empty
// flat map.
type Set struct {
	kind    shapeKind
	entries []Entry
	nested  map[string]any
	flat    map[string]bool
}

// NewEntries builds a list-shaped set.
func NewEntries(entries []Entry) Set {
	return Set{kind: shapeEntries, entries: entries}
}

// NewNested builds a nested-object set. Values are either bool leaves
// or map[string]any subtrees; anything else degrades to NotSet on
// lookup rather than failing.
func NewNested(m map[string]any) Set {
	return Set{kind: shapeNested, nested: m}
}

// NewFlat builds a flat "resource.action" → bool set.
func NewFlat(m map[string]bool) Set {
	return Set{kind: shapeFlat, flat: m}
}

// DecodeSet infers the shape family of a raw JSON document and returns
// the tagged set. A JSON array is the entries shape; an object whose
// top-level values are all booleans is the flat shape; any other object
// is the nested shape. Invalid JSON is the only error; odd-but-valid
// documents decode and simply resolve to NotSet where malformed.
func DecodeSet(raw []byte) (Set, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Set{}, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var entries []Entry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return Set{}, fmt.Errorf("decode permission entries: %w", err)
		}
		return NewEntries(entries), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Set{}, fmt.Errorf("decode permission document: %w", err)
	}

	allBools := len(obj) > 0
	for _, v := range obj {
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			allBools = false
			break
		}
	}

	if allBools {
		flat := make(map[string]bool, len(obj))
		for k, v := range obj {
			var b bool
			json.Unmarshal(v, &b)
			flat[k] = b
		}
		return NewFlat(flat), nil
	}

	var nested map[string]any
	if err := json.Unmarshal(raw, &nested); err != nil {
		return Set{}, fmt.Errorf("decode permission document: %w", err)
	}
	return NewNested(nested), nil
}

// Encode serializes the set back to JSON in its own shape family, so a
// document round-trips through the editor in the form the
// authorization service supplied it.
func (s Set) Encode() ([]byte, error) {
	switch s.kind {
	case shapeEntries:
		if s.entries == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(s.entries)
	case shapeNested:
		if s.nested == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(s.nested)
	default:
		if s.flat == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(s.flat)
	}
}

// MarshalJSON makes a Set usable directly in response payloads.
func (s Set) MarshalJSON() ([]byte, error) {
	return s.Encode()
}

// Pairs returns every (resource, action) pair the document explicitly
// mentions, sorted, for diagnostics and tests.
func (s Set) Pairs() []string {
	seen := map[string]struct{}{}
	switch s.kind {
	case shapeEntries:
		for _, e := range s.entries {
			seen[e.Resource+"."+e.Action] = struct{}{}
		}
	case shapeNested:
		for resource, v := range s.nested {
			collectLeafPaths(resource, v, seen)
		}
	case shapeFlat:
		for k := range s.flat {
			seen[k] = struct{}{}
		}
	}
	pairs := make([]string, 0, len(seen))
	for k := range seen {
		pairs = append(pairs, k)
	}
	sort.Strings(pairs)
	return pairs
}

func collectLeafPaths(prefix string, v any, out map[string]struct{}) {
	switch val := v.(type) {
	case bool:
		out[prefix] = struct{}{}
	case map[string]any:
		for k, sub := range val {
			collectLeafPaths(prefix+"."+k, sub, out)
		}
	}
}
