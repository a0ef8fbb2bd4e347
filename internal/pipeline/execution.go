package pipeline

import "time"

// Execution statuses. Pending executions are claimed by the scheduler;
// cancelled is terminal and only reachable from pending or running.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// HistoryEntry records one step outcome inside an execution.
type HistoryEntry struct {
	Step   string `json:"step"`
	Status string `json:"status"` // succeeded, failed, skipped
	Detail string `json:"detail,omitempty"`
	At     string `json:"at"`
}

// Execution is one run of a pipeline. Retrying a finished execution
// creates a new row pointing back via RetryOf; history is never
// rewritten in place.
type Execution struct {
	ID           string         `json:"id"`
	PipelineID   string         `json:"pipeline_id"`
	PipelineName string         `json:"pipeline_name"`
	Status       string         `json:"status"`
	Context      map[string]any `json:"context"`
	History      []HistoryEntry `json:"history"`
	Error        string         `json:"error,omitempty"`
	RetryOf      string         `json:"retry_of,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// IsTerminal reports whether the execution can still change state.
func (e *Execution) IsTerminal() bool {
	switch e.Status {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
