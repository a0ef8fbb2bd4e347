package permission

import "strings"

// Update returns a copy of the set with (resource, action) set to the
// given status. The input is never mutated and the result stays in the
// same shape family, so callers can hold the old document and swap the
// reference on success.
//
// NotSet removes: the matching entry on the list shape, the leaf key
// (pruning emptied subtrees) on the nested shape, the dot key on the
// flat shape. Allow and Deny upsert. Update only ever writes the exact
// (resource, action) pair it was given; composite actions are fanned
// out by the caller, never invented here.
func Update(s Set, resource, action string, status Status) Set {
	switch s.kind {
	case shapeEntries:
		return Set{kind: shapeEntries, entries: updateEntries(s.entries, resource, action, status)}
	case shapeNested:
		return Set{kind: shapeNested, nested: updateNested(s.nested, resource, action, status)}
	case shapeFlat:
		return Set{kind: shapeFlat, flat: updateFlat(s.flat, resource, action, status)}
	default:
		// A zero Set edits like an empty flat map.
		return Set{kind: shapeFlat, flat: updateFlat(nil, resource, action, status)}
	}
}

func updateEntries(entries []Entry, resource, action string, status Status) []Entry {
	out := make([]Entry, 0, len(entries)+1)
	found := false
	for _, e := range entries {
		if e.Resource == resource && e.Action == action {
			found = true
			if status == NotSet {
				continue
			}
			e.Effect = status
		}
		out = append(out, e)
	}
	if !found && status != NotSet {
		out = append(out, Entry{Resource: resource, Action: action, Effect: status})
	}
	return out
}

func updateFlat(flat map[string]bool, resource, action string, status Status) map[string]bool {
	out := make(map[string]bool, len(flat)+1)
	for k, v := range flat {
		out[k] = v
	}
	key := resource + "." + action
	if status == NotSet {
		delete(out, key)
	} else {
		out[key] = status == Allow
	}
	return out
}

func updateNested(nested map[string]any, resource, action string, status Status) map[string]any {
	out := copyTree(nested)
	segments := append([]string{resource}, strings.Split(action, ".")...)

	if status == NotSet {
		removeLeaf(out, segments)
		return out
	}

	// Walk to the parent of the leaf, materializing maps. A non-map in
	// the way is replaced: the write wins over malformed data.
	cur := out
	for _, seg := range segments[:len(segments)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	cur[segments[len(segments)-1]] = status == Allow
	return out
}

func copyTree(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = copyTree(sub)
		} else {
			out[k] = v
		}
	}
	return out
}

// removeLeaf deletes the leaf at path and prunes subtrees it empties.
func removeLeaf(m map[string]any, path []string) bool {
	if len(path) == 1 {
		delete(m, path[0])
		return len(m) == 0
	}
	sub, ok := m[path[0]].(map[string]any)
	if !ok {
		return false
	}
	if removeLeaf(sub, path[1:]) {
		delete(m, path[0])
	}
	return len(m) == 0
}
