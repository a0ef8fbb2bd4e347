package permission

import "testing"

func TestAggregate(t *testing.T) {
	cases := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"any allow wins", []Status{Allow, Deny, NotSet}, Allow},
		{"all deny", []Status{Deny, Deny, Deny}, Deny},
		{"mixed deny and notset", []Status{NotSet, Deny, NotSet}, NotSet},
		{"all notset", []Status{NotSet, NotSet}, NotSet},
		{"empty", nil, NotSet},
		{"single allow", []Status{Allow}, Allow},
		{"single deny", []Status{Deny}, Deny},
	}
	for _, tc := range cases {
		if got := Aggregate(tc.statuses...); got != tc.want {
			t.Fatalf("%s: Aggregate(%v) = %v, want %v", tc.name, tc.statuses, got, tc.want)
		}
	}
}

func TestResolveAggregate_SettingsEdit(t *testing.T) {
	// users.edit=Allow, system.edit=Deny, regions.edit=NotSet -> Allow
	set := NewFlat(map[string]bool{
		"settings.users.edit":  true,
		"settings.system.edit": false,
	})
	if got := ResolveAggregate(set, "settings", "edit"); got != Allow {
		t.Fatalf("any-allow aggregate: got %v, want Allow", got)
	}

	// All three denied -> Deny
	set = NewFlat(map[string]bool{
		"settings.users.edit":   false,
		"settings.system.edit":  false,
		"settings.regions.edit": false,
	})
	if got := ResolveAggregate(set, "settings", "edit"); got != Deny {
		t.Fatalf("all-deny aggregate: got %v, want Deny", got)
	}

	// Deny plus NotSet -> NotSet
	set = NewFlat(map[string]bool{
		"settings.system.edit": false,
	})
	if got := ResolveAggregate(set, "settings", "edit"); got != NotSet {
		t.Fatalf("partial deny aggregate: got %v, want NotSet", got)
	}
}

func TestResolveAggregate_PlainActionFallsThrough(t *testing.T) {
	set := NewFlat(map[string]bool{"assets.view": true})
	if got := ResolveAggregate(set, "assets", "view"); got != Allow {
		t.Fatalf("non-composite action: got %v, want Allow", got)
	}
}

func TestCombine_DenyOverrides(t *testing.T) {
	cases := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"deny blocks allow", []Status{Allow, Deny}, Deny},
		{"allow admits", []Status{NotSet, Allow}, Allow},
		{"all notset", []Status{NotSet, NotSet}, NotSet},
		{"empty", nil, NotSet},
	}
	for _, tc := range cases {
		if got := Combine(tc.statuses...); got != tc.want {
			t.Fatalf("%s: Combine(%v) = %v, want %v", tc.name, tc.statuses, got, tc.want)
		}
	}
}

func TestTaxonomy(t *testing.T) {
	if !IsLegal("assets", "view") {
		t.Fatal("assets.view should be legal")
	}
	if !IsLegal("pipelineExecutions", "retry") {
		t.Fatal("pipelineExecutions.retry should be legal")
	}
	if !IsLegal("settings", "edit") {
		t.Fatal("composite settings.edit should be legal")
	}
	if IsLegal("assets", "retry") {
		t.Fatal("assets.retry should not be legal")
	}
	if IsLegal("widgets", "view") {
		t.Fatal("unknown resource should not be legal")
	}

	subs, ok := CompositeFor("settings", "edit")
	if !ok || len(subs) != 3 {
		t.Fatalf("settings.edit composite: got %v, %v", subs, ok)
	}
	if LegalActions("pipelineExecutions") == nil {
		t.Fatal("pipelineExecutions should have legal actions")
	}
	if LegalActions("widgets") != nil {
		t.Fatal("unknown resource should have no legal actions")
	}
}
