package role

import (
	"testing"

	"media-console/internal/permission"
)

func TestBuildMatrix_CoversTaxonomy(t *testing.T) {
	set := permission.NewFlat(map[string]bool{
		"assets.view":          true,
		"assets.delete":        false,
		"settings.system.edit": false,
	})
	rows := BuildMatrix(set)
	if len(rows) != len(permission.Taxonomy) {
		t.Fatalf("matrix rows: got %d, want %d", len(rows), len(permission.Taxonomy))
	}

	byResource := map[string]ResourceRow{}
	for _, row := range rows {
		byResource[row.Resource] = row
	}

	assets := byResource["assets"]
	statuses := map[string]permission.Status{}
	for _, cell := range assets.Cells {
		statuses[cell.Action] = cell.Status
	}
	if statuses["view"] != permission.Allow {
		t.Fatalf("assets.view: got %v", statuses["view"])
	}
	if statuses["delete"] != permission.Deny {
		t.Fatalf("assets.delete: got %v", statuses["delete"])
	}
	if statuses["edit"] != permission.NotSet {
		t.Fatalf("assets.edit: got %v", statuses["edit"])
	}

	settings := byResource["settings"]
	if len(settings.Composites) != 1 {
		t.Fatalf("settings composites: got %d", len(settings.Composites))
	}
	// system.edit=Deny, others NotSet -> composite NotSet.
	if got := settings.Composites[0].Status; got != permission.NotSet {
		t.Fatalf("settings.edit composite: got %v", got)
	}
}

func TestApplyUpdates_FansOutComposite(t *testing.T) {
	set := permission.NewFlat(map[string]bool{})
	updated, err := ApplyUpdates(set, []CellUpdate{
		{Resource: "settings", Action: "edit", Status: permission.Allow},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	for _, sub := range []string{"users.edit", "system.edit", "regions.edit"} {
		if got := permission.Resolve(updated, "settings", sub); got != permission.Allow {
			t.Fatalf("fan-out %s: got %v, want Allow", sub, got)
		}
	}
	// The composite resolves through aggregation afterwards.
	if got := permission.ResolveAggregate(updated, "settings", "edit"); got != permission.Allow {
		t.Fatalf("aggregate after fan-out: got %v", got)
	}
}

func TestApplyUpdates_RejectsUnknownCell(t *testing.T) {
	set := permission.NewFlat(map[string]bool{})
	if _, err := ApplyUpdates(set, []CellUpdate{
		{Resource: "assets", Action: "retry", Status: permission.Allow},
	}); err == nil {
		t.Fatal("expected error for action outside the taxonomy")
	}
	if _, err := ApplyUpdates(set, []CellUpdate{
		{Resource: "widgets", Action: "view", Status: permission.Allow},
	}); err == nil {
		t.Fatal("expected error for resource outside the taxonomy")
	}
}

func TestApplyUpdates_BatchIsOrdered(t *testing.T) {
	set := permission.NewNested(map[string]any{})
	updated, err := ApplyUpdates(set, []CellUpdate{
		{Resource: "assets", Action: "view", Status: permission.Allow},
		{Resource: "assets", Action: "view", Status: permission.Deny},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := permission.Resolve(updated, "assets", "view"); got != permission.Deny {
		t.Fatalf("last update should win: got %v", got)
	}
}
