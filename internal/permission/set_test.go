package permission

import "testing"

func TestDecodeSet_ShapeInference(t *testing.T) {
	set, err := DecodeSet([]byte(`[{"resource":"assets","action":"view","effect":"allow"}]`))
	if err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if set.kind != shapeEntries {
		t.Fatalf("array document: got kind %v, want entries", set.kind)
	}
	if got := Resolve(set, "assets", "view"); got != Allow {
		t.Fatalf("decoded entries: got %v, want Allow", got)
	}

	set, err = DecodeSet([]byte(`{"assets":{"view":true,"delete":false}}`))
	if err != nil {
		t.Fatalf("decode nested: %v", err)
	}
	if set.kind != shapeNested {
		t.Fatalf("object-of-objects: got kind %v, want nested", set.kind)
	}
	if got := Resolve(set, "assets", "delete"); got != Deny {
		t.Fatalf("decoded nested: got %v, want Deny", got)
	}

	set, err = DecodeSet([]byte(`{"assets.view":true,"assets.delete":false}`))
	if err != nil {
		t.Fatalf("decode flat: %v", err)
	}
	if set.kind != shapeFlat {
		t.Fatalf("all-boolean object: got kind %v, want flat", set.kind)
	}
	if got := Resolve(set, "assets", "view"); got != Allow {
		t.Fatalf("decoded flat: got %v, want Allow", got)
	}
}

func TestDecodeSet_CapitalizedEffects(t *testing.T) {
	set, err := DecodeSet([]byte(`[{"resource":"assets","action":"view","effect":"Allow"},{"resource":"assets","action":"delete","effect":"Deny"}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := Resolve(set, "assets", "view"); got != Allow {
		t.Fatalf("capitalized Allow: got %v", got)
	}
	if got := Resolve(set, "assets", "delete"); got != Deny {
		t.Fatalf("capitalized Deny: got %v", got)
	}
}

func TestDecodeSet_EmptyAndNull(t *testing.T) {
	for _, raw := range []string{"", "null", "  "} {
		set, err := DecodeSet([]byte(raw))
		if err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
		if got := Resolve(set, "assets", "view"); got != NotSet {
			t.Fatalf("empty document %q resolved %v, want NotSet", raw, got)
		}
	}
}

func TestDecodeSet_InvalidJSON(t *testing.T) {
	if _, err := DecodeSet([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if _, err := DecodeSet([]byte(`[{"resource": 1}]`)); err == nil {
		t.Fatal("expected error for non-string entry fields")
	}
}

func TestEncode_RoundTripsShape(t *testing.T) {
	for _, raw := range []string{
		`[{"resource":"assets","action":"view","effect":"allow"}]`,
		`{"assets":{"view":true}}`,
		`{"assets.view":true}`,
	} {
		set, err := DecodeSet([]byte(raw))
		if err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		updated := Update(set, "pipelines", "create", Deny)
		encoded, err := updated.Encode()
		if err != nil {
			t.Fatalf("encode %s: %v", raw, err)
		}
		again, err := DecodeSet(encoded)
		if err != nil {
			t.Fatalf("re-decode %s: %v", string(encoded), err)
		}
		if again.kind != set.kind {
			t.Fatalf("shape changed through encode: %v -> %v (doc %s)", set.kind, again.kind, encoded)
		}
		if got := Resolve(again, "pipelines", "create"); got != Deny {
			t.Fatalf("edit lost through encode of %s: got %v", raw, got)
		}
	}
}

func TestPairs(t *testing.T) {
	set := NewNested(map[string]any{
		"settings": map[string]any{"users": map[string]any{"edit": true}},
		"assets":   map[string]any{"view": false},
	})
	pairs := set.Pairs()
	want := []string{"assets.view", "settings.users.edit"}
	if len(pairs) != len(want) {
		t.Fatalf("pairs: got %v, want %v", pairs, want)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Fatalf("pairs: got %v, want %v", pairs, want)
		}
	}
}
