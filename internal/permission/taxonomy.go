package permission

// Resource names of the console. The taxonomy below is the compile-time
// contract between the permission matrix and the route guards: cells
// exist only for the pairs listed here, and a (resource, action) pair
// outside the taxonomy renders nothing rather than erroring.
const (
	ResourceAssets             = "assets"
	ResourceCollections        = "collections"
	ResourcePipelines          = "pipelines"
	ResourcePipelineExecutions = "pipelineExecutions"
	ResourceConnectors         = "connectors"
	ResourceSettings           = "settings"
)

// Common action names.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
	ActionAdmin  = "admin"
	ActionRetry  = "retry"
	ActionCancel = "cancel"
	ActionTest   = "test"
)

// Composite is a summary action whose matrix cell is derived from
// concrete sub-actions via Aggregate.
type Composite struct {
	Action     string   `json:"action"`
	SubActions []string `json:"sub_actions"`
}

// ResourceActions lists the legal actions for one resource.
type ResourceActions struct {
	Resource   string      `json:"resource"`
	Actions    []string    `json:"actions"`
	Composites []Composite `json:"composites,omitempty"`
}

// Taxonomy is the fixed resource/action table the matrix enumerates.
var Taxonomy = []ResourceActions{
	{
		Resource: ResourceAssets,
		Actions:  []string{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionAdmin},
	},
	{
		Resource: ResourceCollections,
		Actions:  []string{ActionView, ActionCreate, ActionEdit, ActionDelete},
	},
	{
		Resource: ResourcePipelines,
		Actions:  []string{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionAdmin},
	},
	{
		Resource: ResourcePipelineExecutions,
		Actions:  []string{ActionView, ActionRetry, ActionCancel},
	},
	{
		Resource: ResourceConnectors,
		Actions:  []string{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionTest},
	},
	{
		Resource: ResourceSettings,
		Actions:  []string{"users.view", "users.edit", "system.edit", "regions.edit"},
		Composites: []Composite{
			{Action: "edit", SubActions: []string{"users.edit", "system.edit", "regions.edit"}},
		},
	},
}

// LegalActions returns the concrete actions for a resource, or nil for
// a resource outside the taxonomy.
func LegalActions(resource string) []string {
	for _, ra := range Taxonomy {
		if ra.Resource == resource {
			return ra.Actions
		}
	}
	return nil
}

// IsLegal reports whether (resource, action) is a cell of the matrix,
// either a concrete action or a declared composite.
func IsLegal(resource, action string) bool {
	for _, ra := range Taxonomy {
		if ra.Resource != resource {
			continue
		}
		for _, a := range ra.Actions {
			if a == action {
				return true
			}
		}
		for _, comp := range ra.Composites {
			if comp.Action == action {
				return true
			}
		}
	}
	return false
}

// CompositeFor returns the sub-actions of a declared composite.
func CompositeFor(resource, action string) ([]string, bool) {
	for _, ra := range Taxonomy {
		if ra.Resource != resource {
			continue
		}
		for _, comp := range ra.Composites {
			if comp.Action == action {
				return comp.SubActions, true
			}
		}
	}
	return nil, false
}
