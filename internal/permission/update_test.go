package permission

import (
	"reflect"
	"testing"
)

func allShapes() map[string]Set {
	return map[string]Set{
		"entries": entriesFixture(),
		"nested":  nestedFixture(),
		"flat":    flatFixture(),
	}
}

func TestUpdate_RoundTrip(t *testing.T) {
	for name, set := range allShapes() {
		for _, status := range []Status{Allow, Deny} {
			updated := Update(set, "pipelines", "create", status)
			if got := Resolve(updated, "pipelines", "create"); got != status {
				t.Fatalf("%s shape: round-trip %v, got %v", name, status, got)
			}
		}
	}
}

func TestUpdate_Removal(t *testing.T) {
	for name, set := range allShapes() {
		// Prior status Allow, Deny, and NotSet all end at NotSet.
		for _, pair := range [][2]string{
			{"assets", "view"},
			{"assets", "delete"},
			{"pipelines", "view"},
		} {
			updated := Update(set, pair[0], pair[1], NotSet)
			if got := Resolve(updated, pair[0], pair[1]); got != NotSet {
				t.Fatalf("%s shape: removal of %s.%s left %v", name, pair[0], pair[1], got)
			}
		}
	}
}

func TestUpdate_Idempotence(t *testing.T) {
	for name, set := range allShapes() {
		for _, status := range []Status{Allow, Deny, NotSet} {
			once := Update(set, "assets", "edit", status)
			twice := Update(once, "assets", "edit", status)
			if !reflect.DeepEqual(once, twice) {
				t.Fatalf("%s shape: double update with %v diverged", name, status)
			}
		}
	}
}

func TestUpdate_DoesNotMutateInput(t *testing.T) {
	entries := entriesFixture()
	nested := nestedFixture()
	flat := flatFixture()

	Update(entries, "assets", "view", Deny)
	Update(nested, "settings", "users.edit", Deny)
	Update(flat, "assets", "view", NotSet)

	if got := Resolve(entries, "assets", "view"); got != Allow {
		t.Fatalf("entries input mutated: got %v", got)
	}
	if got := Resolve(nested, "settings", "users.edit"); got != Allow {
		t.Fatalf("nested input mutated: got %v", got)
	}
	if got := Resolve(flat, "assets", "view"); got != Allow {
		t.Fatalf("flat input mutated: got %v", got)
	}
}

func TestUpdate_PreservesShapeFamily(t *testing.T) {
	for name, set := range allShapes() {
		updated := Update(set, "collections", "create", Allow)
		if updated.kind != set.kind {
			t.Fatalf("%s shape: update changed shape tag %v -> %v", name, set.kind, updated.kind)
		}
	}
}

func TestUpdate_EntriesUpsert(t *testing.T) {
	set := NewEntries([]Entry{
		{Resource: "assets", Action: "view", Effect: Allow},
	})

	// Existing entry flips effect, no duplicate appended.
	updated := Update(set, "assets", "view", Deny)
	if n := len(updated.entries); n != 1 {
		t.Fatalf("expected 1 entry after flip, got %d", n)
	}
	if updated.entries[0].Effect != Deny {
		t.Fatalf("expected flipped effect Deny, got %v", updated.entries[0].Effect)
	}

	// New pair appends.
	updated = Update(set, "assets", "edit", Deny)
	if n := len(updated.entries); n != 2 {
		t.Fatalf("expected 2 entries after upsert, got %d", n)
	}

	// NotSet removes.
	updated = Update(set, "assets", "view", NotSet)
	if n := len(updated.entries); n != 0 {
		t.Fatalf("expected 0 entries after removal, got %d", n)
	}
}

func TestUpdate_NestedPrunesEmptySubtrees(t *testing.T) {
	set := NewNested(map[string]any{
		"settings": map[string]any{
			"users": map[string]any{"edit": true},
		},
	})
	updated := Update(set, "settings", "users.edit", NotSet)
	if _, ok := updated.nested["settings"]; ok {
		t.Fatalf("expected emptied settings subtree to be pruned: %v", updated.nested)
	}
}

func TestUpdate_ZeroSetEditable(t *testing.T) {
	var set Set
	updated := Update(set, "assets", "view", Allow)
	if got := Resolve(updated, "assets", "view"); got != Allow {
		t.Fatalf("zero set after update: got %v, want Allow", got)
	}
}
