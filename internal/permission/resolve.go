package permission

import "strings"

// Resolve returns the status of (resource, action) in the set. It is a
// total function: any pair the document does not speak to, including
// pairs reached through malformed subtrees, is NotSet, never an error.
//
// Entries shape: an exact (resource, action) match wins. If the action
// is a dot path and no exact entry exists, an entry whose action is a
// strict prefix of the path answers for it, so a coarse grant like
// "view" covers a finer query like "view.metadata".
//
// Nested shape: the resource key selects a subtree, then the action's
// dot segments are walked one at a time. A missing segment, or a
// non-map where the walk still has segments left, is NotSet. At the
// final segment only a boolean leaf produces Allow or Deny.
//
// Flat shape: a single lookup of "resource.action".
func Resolve(s Set, resource, action string) Status {
	switch s.kind {
	case shapeEntries:
		return resolveEntries(s.entries, resource, action)
	case shapeNested:
		return resolveNested(s.nested, resource, action)
	case shapeFlat:
		if v, ok := s.flat[resource+"."+action]; ok {
			return effectOf(v)
		}
		return NotSet
	default:
		return NotSet
	}
}

func resolveEntries(entries []Entry, resource, action string) Status {
	var prefixMatch *Entry
	for i := range entries {
		e := &entries[i]
		if e.Resource != resource {
			continue
		}
		if e.Action == action {
			return e.Effect
		}
		if prefixMatch == nil && strings.HasPrefix(action, e.Action+".") {
			prefixMatch = e
		}
	}
	if prefixMatch != nil {
		return prefixMatch.Effect
	}
	return NotSet
}

func resolveNested(nested map[string]any, resource, action string) Status {
	if nested == nil {
		return NotSet
	}
	node, ok := nested[resource]
	if !ok {
		return NotSet
	}

	segments := strings.Split(action, ".")
	for i, seg := range segments {
		m, ok := node.(map[string]any)
		if !ok {
			// Leaf (or junk) reached while segments remain.
			return NotSet
		}
		node, ok = m[seg]
		if !ok {
			return NotSet
		}
		if i == len(segments)-1 {
			if b, isBool := node.(bool); isBool {
				return effectOf(b)
			}
			// Final segment is a subtree, not a grant.
			return NotSet
		}
	}
	return NotSet
}

func effectOf(allowed bool) Status {
	if allowed {
		return Allow
	}
	return Deny
}
