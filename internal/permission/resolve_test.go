package permission

import "testing"

func entriesFixture() Set {
	return NewEntries([]Entry{
		{Resource: "assets", Action: "view", Effect: Allow},
		{Resource: "assets", Action: "delete", Effect: Deny},
		{Resource: "settings", Action: "users.edit", Effect: Allow},
	})
}

func nestedFixture() Set {
	return NewNested(map[string]any{
		"assets": map[string]any{
			"view":   true,
			"delete": false,
		},
		"settings": map[string]any{
			"users": map[string]any{"edit": true},
		},
	})
}

func flatFixture() Set {
	return NewFlat(map[string]bool{
		"assets.view":         true,
		"assets.delete":       false,
		"settings.users.edit": true,
	})
}

func TestResolve_ShapeEquivalence(t *testing.T) {
	shapes := map[string]Set{
		"entries": entriesFixture(),
		"nested":  nestedFixture(),
		"flat":    flatFixture(),
	}

	cases := []struct {
		resource, action string
		want             Status
	}{
		{"assets", "view", Allow},
		{"assets", "delete", Deny},
		{"assets", "edit", NotSet},
		{"settings", "users.edit", Allow},
		{"settings", "system.edit", NotSet},
		{"pipelines", "view", NotSet},
	}

	for name, set := range shapes {
		for _, tc := range cases {
			got := Resolve(set, tc.resource, tc.action)
			if got != tc.want {
				t.Fatalf("%s shape: Resolve(%s, %s) = %v, want %v", name, tc.resource, tc.action, got, tc.want)
			}
		}
	}
}

func TestResolve_AbsentPairIsNotSet(t *testing.T) {
	for name, set := range map[string]Set{
		"entries": entriesFixture(),
		"nested":  nestedFixture(),
		"flat":    flatFixture(),
		"zero":    {},
	} {
		if got := Resolve(set, "nonexistent", "whatever"); got != NotSet {
			t.Fatalf("%s shape: absent pair resolved to %v, want NotSet", name, got)
		}
	}
}

func TestResolve_EntriesPrefixMatch(t *testing.T) {
	set := NewEntries([]Entry{
		{Resource: "assets", Action: "view", Effect: Allow},
	})

	// Coarse entry covers the finer query.
	if got := Resolve(set, "assets", "view.metadata"); got != Allow {
		t.Fatalf("prefix match: got %v, want Allow", got)
	}

	// Exact match wins over a prefix entry.
	set = NewEntries([]Entry{
		{Resource: "assets", Action: "view", Effect: Allow},
		{Resource: "assets", Action: "view.metadata", Effect: Deny},
	})
	if got := Resolve(set, "assets", "view.metadata"); got != Deny {
		t.Fatalf("exact over prefix: got %v, want Deny", got)
	}

	// "viewer" is not a dot-path extension of "view".
	set = NewEntries([]Entry{
		{Resource: "assets", Action: "view", Effect: Allow},
	})
	if got := Resolve(set, "assets", "viewer"); got != NotSet {
		t.Fatalf("non-path suffix: got %v, want NotSet", got)
	}
}

func TestResolve_NestedDeeperThanData(t *testing.T) {
	set := NewNested(map[string]any{
		"pipelines": map[string]any{"view": true},
	})

	if got := Resolve(set, "pipelines", "view"); got != Allow {
		t.Fatalf("leaf lookup: got %v, want Allow", got)
	}
	// Query deeper than the data: leaf mid-walk is NotSet, not an error.
	if got := Resolve(set, "pipelines", "view.extra"); got != NotSet {
		t.Fatalf("deeper than data: got %v, want NotSet", got)
	}
	// Query shallower than the data: subtree at the final segment.
	set = NewNested(map[string]any{
		"settings": map[string]any{"users": map[string]any{"edit": true}},
	})
	if got := Resolve(set, "settings", "users"); got != NotSet {
		t.Fatalf("subtree at final segment: got %v, want NotSet", got)
	}
}

func TestResolve_MalformedDegradesToNotSet(t *testing.T) {
	// Non-map, non-bool junk inside the nested shape.
	set := NewNested(map[string]any{
		"assets":    "not a map",
		"pipelines": map[string]any{"view": 42},
	})
	if got := Resolve(set, "assets", "view"); got != NotSet {
		t.Fatalf("junk resource node: got %v, want NotSet", got)
	}
	if got := Resolve(set, "pipelines", "view"); got != NotSet {
		t.Fatalf("non-bool leaf: got %v, want NotSet", got)
	}

	if got := Resolve(NewNested(nil), "assets", "view"); got != NotSet {
		t.Fatalf("nil nested map: got %v, want NotSet", got)
	}
}
