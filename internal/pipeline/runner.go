package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"media-console/internal/connector"
	"media-console/internal/store"
)

// dispatchAttempts is how many times a connector step retries a
// transient delivery failure before the execution fails.
const dispatchAttempts = 3

// Runner executes one claimed execution at a time: walk the steps,
// evaluate conditions, dispatch connector steps, record history. The
// first failed step fails the execution; skipped steps do not.
type Runner struct {
	pipelines  *Store
	connectors *connector.Store
	evaluator  *ExprLangEvaluator
}

func NewRunner(pipelines *Store, connectors *connector.Store, evaluator *ExprLangEvaluator) *Runner {
	return &Runner{pipelines: pipelines, connectors: connectors, evaluator: evaluator}
}

// Run drives the execution to a terminal status. The execution must
// already be in running state.
func (r *Runner) Run(ctx context.Context, e *Execution) error {
	p, err := r.pipelines.Get(ctx, e.PipelineID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return r.fail(ctx, e, "", "pipeline definition no longer exists")
		}
		return err
	}

	for i := range p.Steps {
		step := &p.Steps[i]

		if step.Condition != "" {
			ok, err := r.evaluator.EvaluateBool(step.Condition, r.env(e, step))
			if err != nil {
				return r.fail(ctx, e, step.ID, fmt.Sprintf("condition error: %v", err))
			}
			if !ok {
				r.record(e, step.ID, "skipped", "condition evaluated false")
				continue
			}
		}

		if err := r.runStep(ctx, p, e, step); err != nil {
			return r.fail(ctx, e, step.ID, err.Error())
		}
		r.record(e, step.ID, "succeeded", "")

		if err := r.pipelines.SaveProgress(ctx, e); err != nil {
			log.Printf("WARN: save execution %s progress: %v", e.ID, err)
		}
	}

	e.Status = StatusSucceeded
	return r.pipelines.Finish(ctx, e, StatusSucceeded, "")
}

func (r *Runner) runStep(ctx context.Context, p *Pipeline, e *Execution, step *Step) error {
	switch step.Type {
	case StepSet:
		for k, v := range step.Params {
			e.Context[k] = v
		}
		return nil

	case StepLog:
		detail := ""
		if msg, ok := step.Params["message"].(string); ok {
			detail = msg
		}
		log.Printf("pipeline %s execution %s step %s: %s", p.Name, e.ID, step.ID, detail)
		return nil

	case StepConnector:
		conn, err := r.connectors.GetByName(ctx, step.Connector)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("connector %q not found", step.Connector)
			}
			return err
		}
		if !conn.Enabled {
			return fmt.Errorf("connector %q is disabled", step.Connector)
		}

		payload, err := json.Marshal(map[string]any{
			"event":     "pipeline.step",
			"pipeline":  p.Name,
			"execution": e.ID,
			"step":      step.ID,
			"context":   e.Context,
			"params":    step.Params,
		})
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}

		result := connector.Dispatch(ctx, conn, payload, dispatchAttempts)
		if result.Error != "" {
			return fmt.Errorf("dispatch to %q failed after %d attempts: %s",
				conn.Name, result.Attempts, result.Error)
		}
		return nil

	default:
		return fmt.Errorf("unknown step type %q", step.Type)
	}
}

// env builds the expression environment a condition sees.
func (r *Runner) env(e *Execution, step *Step) map[string]any {
	return map[string]any{
		"context":  e.Context,
		"pipeline": e.PipelineName,
		"step":     step.ID,
		"retry":    e.RetryOf != "",
	}
}

func (r *Runner) record(e *Execution, stepID, status, detail string) {
	e.History = append(e.History, HistoryEntry{
		Step:   stepID,
		Status: status,
		Detail: detail,
		At:     time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Runner) fail(ctx context.Context, e *Execution, stepID, msg string) error {
	if stepID != "" {
		r.record(e, stepID, "failed", msg)
	}
	e.Status = StatusFailed
	e.Error = msg
	return r.pipelines.Finish(ctx, e, StatusFailed, msg)
}
