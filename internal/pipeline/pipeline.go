package pipeline

import (
	"fmt"
	"time"
)

// Step types. Connector steps deliver the execution context to an
// outbound endpoint; set steps mutate the context; log steps record a
// history entry and move on.
const (
	StepConnector = "connector"
	StepSet       = "set"
	StepLog       = "log"
)

// Step is one unit of a pipeline definition. Condition is an optional
// boolean expression over the execution context; when it evaluates
// false the step is skipped, not failed.
type Step struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Condition string         `json:"condition,omitempty"`
	Connector string         `json:"connector,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
}

// Pipeline is an ordered set of steps run against a context document.
type Pipeline struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Steps       []Step    `json:"steps"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks a definition before it is saved: step IDs must be
// unique, types known, connector steps must name a connector, and
// conditions must compile.
func (p *Pipeline) Validate(evaluator *ExprLangEvaluator) error {
	if p.Name == "" {
		return fmt.Errorf("pipeline name is required")
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("pipeline needs at least one step")
	}

	seen := map[string]bool{}
	for i, step := range p.Steps {
		if step.ID == "" {
			return fmt.Errorf("step %d: id is required", i)
		}
		if seen[step.ID] {
			return fmt.Errorf("step %s: duplicate id", step.ID)
		}
		seen[step.ID] = true

		switch step.Type {
		case StepConnector:
			if step.Connector == "" {
				return fmt.Errorf("step %s: connector steps must name a connector", step.ID)
			}
		case StepSet:
			if len(step.Params) == 0 {
				return fmt.Errorf("step %s: set steps need params", step.ID)
			}
		case StepLog:
		default:
			return fmt.Errorf("step %s: unknown type %q", step.ID, step.Type)
		}

		if step.Condition != "" {
			if err := evaluator.Compile(step.Condition); err != nil {
				return fmt.Errorf("step %s: %w", step.ID, err)
			}
		}
	}
	return nil
}

// FindStep returns the step with the given ID, or nil.
func (p *Pipeline) FindStep(id string) *Step {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}
