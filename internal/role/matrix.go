package role

import (
	"fmt"

	"media-console/internal/permission"
)

// Cell is one resolved cell of the permission matrix.
type Cell struct {
	Action string            `json:"action"`
	Status permission.Status `json:"status"`
}

// CompositeCell is a summary cell derived from concrete sub-actions.
type CompositeCell struct {
	Action     string            `json:"action"`
	Status     permission.Status `json:"status"`
	SubActions []string          `json:"sub_actions"`
}

// ResourceRow is one resource's row of the matrix.
type ResourceRow struct {
	Resource   string          `json:"resource"`
	Cells      []Cell          `json:"cells"`
	Composites []CompositeCell `json:"composites,omitempty"`
}

// CellUpdate is one requested matrix edit.
type CellUpdate struct {
	Resource string            `json:"resource"`
	Action   string            `json:"action"`
	Status   permission.Status `json:"status"`
}

// BuildMatrix resolves every taxonomy cell against the document. Pairs
// outside the taxonomy simply do not appear; the document may contain
// them but the matrix never shows them.
func BuildMatrix(set permission.Set) []ResourceRow {
	rows := make([]ResourceRow, 0, len(permission.Taxonomy))
	for _, ra := range permission.Taxonomy {
		row := ResourceRow{Resource: ra.Resource}
		for _, action := range ra.Actions {
			row.Cells = append(row.Cells, Cell{
				Action: action,
				Status: permission.Resolve(set, ra.Resource, action),
			})
		}
		for _, comp := range ra.Composites {
			row.Composites = append(row.Composites, CompositeCell{
				Action:     comp.Action,
				Status:     permission.ResolveAggregate(set, ra.Resource, comp.Action),
				SubActions: comp.SubActions,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

// ApplyUpdates folds a batch of matrix edits into the document. Each
// update must name a taxonomy cell. A composite action is fanned out to
// its concrete sub-actions; the permission package itself never writes
// aggregates, so the fan-out policy lives here, at the integration
// boundary.
func ApplyUpdates(set permission.Set, updates []CellUpdate) (permission.Set, error) {
	for _, u := range updates {
		if !permission.IsLegal(u.Resource, u.Action) {
			return permission.Set{}, fmt.Errorf("unknown permission cell %s.%s", u.Resource, u.Action)
		}
		if subs, ok := permission.CompositeFor(u.Resource, u.Action); ok {
			for _, sub := range subs {
				set = permission.Update(set, u.Resource, sub, u.Status)
			}
			continue
		}
		set = permission.Update(set, u.Resource, u.Action, u.Status)
	}
	return set, nil
}
