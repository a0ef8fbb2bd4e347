package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"media-console/internal/store"
)

// ErrNotCancellable is returned when cancelling an execution that has
// already reached a terminal status.
var ErrNotCancellable = errors.New("execution is already finished")

// Store persists pipeline definitions and executions.
type Store struct {
	db *store.Store
}

func NewStore(db *store.Store) *Store {
	return &Store{db: db}
}

const pipelineColumns = "id, name, description, steps, active, created_at, updated_at"
const executionColumns = "id, pipeline_id, pipeline_name, status, context, history, error, retry_of, started_at, finished_at, created_at, updated_at"

func (s *Store) List(ctx context.Context) ([]Pipeline, error) {
	rows, err := store.QueryRows(ctx, s.db.DB,
		fmt.Sprintf("SELECT %s FROM pipelines ORDER BY name", pipelineColumns))
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	if s.db.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans(rows, []string{"active"})
	}
	pipelines := make([]Pipeline, 0, len(rows))
	for _, row := range rows {
		p, err := pipelineFromRow(row)
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Pipeline, error) {
	pb := s.db.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, s.db.DB, fmt.Sprintf(
		"SELECT %s FROM pipelines WHERE id = %s", pipelineColumns, pb.Add(id)),
		pb.Params()...)
	if err != nil {
		return nil, err
	}
	if s.db.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans([]map[string]any{row}, []string{"active"})
	}
	p, err := pipelineFromRow(row)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) Create(ctx context.Context, p *Pipeline) (*Pipeline, error) {
	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return nil, fmt.Errorf("encode steps: %w", err)
	}

	id := uuid.New().String()
	pb := s.db.Dialect.NewParamBuilder()
	_, err = store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"INSERT INTO pipelines (id, name, description, steps, active) VALUES (%s, %s, %s, %s, %s)",
		pb.Add(id), pb.Add(p.Name), pb.Add(p.Description), pb.Add(string(steps)), pb.Add(p.Active)),
		pb.Params()...)
	if err != nil {
		return nil, s.db.Dialect.MapError(err)
	}
	return s.Get(ctx, id)
}

func (s *Store) Update(ctx context.Context, id string, p *Pipeline) (*Pipeline, error) {
	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return nil, fmt.Errorf("encode steps: %w", err)
	}

	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"UPDATE pipelines SET name = %s, description = %s, steps = %s, active = %s, updated_at = %s WHERE id = %s",
		pb.Add(p.Name), pb.Add(p.Description), pb.Add(string(steps)), pb.Add(p.Active),
		s.db.Dialect.NowExpr(), pb.Add(id)), pb.Params()...)
	if err != nil {
		return nil, s.db.Dialect.MapError(err)
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"DELETE FROM pipelines WHERE id = %s", pb.Add(id)), pb.Params()...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- executions ---

// CreateExecution enqueues a pending run. retryOf is empty for fresh
// runs.
func (s *Store) CreateExecution(ctx context.Context, p *Pipeline, execContext map[string]any, retryOf string) (*Execution, error) {
	if execContext == nil {
		execContext = map[string]any{}
	}
	ctxJSON, err := json.Marshal(execContext)
	if err != nil {
		return nil, fmt.Errorf("encode context: %w", err)
	}

	id := uuid.New().String()
	pb := s.db.Dialect.NewParamBuilder()
	var retryParam any
	if retryOf != "" {
		retryParam = retryOf
	}
	_, err = store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"INSERT INTO pipeline_executions (id, pipeline_id, pipeline_name, status, context, retry_of) VALUES (%s, %s, %s, %s, %s, %s)",
		pb.Add(id), pb.Add(p.ID), pb.Add(p.Name), pb.Add(StatusPending),
		pb.Add(string(ctxJSON)), pb.Add(retryParam)), pb.Params()...)
	if err != nil {
		return nil, err
	}
	return s.GetExecution(ctx, id)
}

func (s *Store) GetExecution(ctx context.Context, id string) (*Execution, error) {
	pb := s.db.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, s.db.DB, fmt.Sprintf(
		"SELECT %s FROM pipeline_executions WHERE id = %s", executionColumns, pb.Add(id)),
		pb.Params()...)
	if err != nil {
		return nil, err
	}
	e, err := executionFromRow(row)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExecutions returns executions, optionally filtered by pipeline
// and status, newest first.
func (s *Store) ListExecutions(ctx context.Context, pipelineID, status string, limit int) ([]Execution, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	pb := s.db.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT %s FROM pipeline_executions", executionColumns)
	where := ""
	if pipelineID != "" {
		where = " WHERE pipeline_id = " + pb.Add(pipelineID)
	}
	if status != "" {
		if where == "" {
			where = " WHERE status = " + pb.Add(status)
		} else {
			where += " AND status = " + pb.Add(status)
		}
	}
	sqlStr += where + " ORDER BY created_at DESC LIMIT " + pb.Add(limit)

	rows, err := store.QueryRows(ctx, s.db.DB, sqlStr, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	executions := make([]Execution, 0, len(rows))
	for _, row := range rows {
		e, err := executionFromRow(row)
		if err != nil {
			return nil, err
		}
		executions = append(executions, e)
	}
	return executions, nil
}

// ClaimPending flips one pending execution to running and returns it.
// The status guard in the UPDATE keeps two scheduler ticks from
// claiming the same row. Returns ErrNotFound when the queue is empty.
func (s *Store) ClaimPending(ctx context.Context) (*Execution, error) {
	pb := s.db.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, s.db.DB, fmt.Sprintf(
		"SELECT id FROM pipeline_executions WHERE status = %s ORDER BY created_at LIMIT 1",
		pb.Add(StatusPending)), pb.Params()...)
	if err != nil {
		return nil, err
	}
	id, _ := row["id"].(string)

	pb = s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"UPDATE pipeline_executions SET status = %s, started_at = %s, updated_at = %s WHERE id = %s AND status = %s",
		pb.Add(StatusRunning), s.db.Dialect.NowExpr(), s.db.Dialect.NowExpr(),
		pb.Add(id), pb.Add(StatusPending)), pb.Params()...)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Someone else claimed or cancelled it between the two statements.
		return nil, store.ErrNotFound
	}
	return s.GetExecution(ctx, id)
}

// SaveProgress persists the mutated context and history of a running
// execution.
func (s *Store) SaveProgress(ctx context.Context, e *Execution) error {
	ctxJSON, err := json.Marshal(e.Context)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	history, err := json.Marshal(e.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	pb := s.db.Dialect.NewParamBuilder()
	_, err = store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"UPDATE pipeline_executions SET context = %s, history = %s, updated_at = %s WHERE id = %s",
		pb.Add(string(ctxJSON)), pb.Add(string(history)), s.db.Dialect.NowExpr(), pb.Add(e.ID)),
		pb.Params()...)
	return err
}

// Finish moves a running execution to a terminal status.
func (s *Store) Finish(ctx context.Context, e *Execution, status, errMsg string) error {
	history, err := json.Marshal(e.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	ctxJSON, err := json.Marshal(e.Context)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}

	pb := s.db.Dialect.NewParamBuilder()
	_, err = store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"UPDATE pipeline_executions SET status = %s, error = %s, context = %s, history = %s, finished_at = %s, updated_at = %s WHERE id = %s AND status = %s",
		pb.Add(status), pb.Add(errMsg), pb.Add(string(ctxJSON)), pb.Add(string(history)),
		s.db.Dialect.NowExpr(), s.db.Dialect.NowExpr(), pb.Add(e.ID), pb.Add(StatusRunning)),
		pb.Params()...)
	return err
}

// Cancel moves a pending or running execution to cancelled. Terminal
// executions cannot be cancelled.
func (s *Store) Cancel(ctx context.Context, id string) (*Execution, error) {
	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"UPDATE pipeline_executions SET status = %s, finished_at = %s, updated_at = %s WHERE id = %s AND status IN (%s, %s)",
		pb.Add(StatusCancelled), s.db.Dialect.NowExpr(), s.db.Dialect.NowExpr(),
		pb.Add(id), pb.Add(StatusPending), pb.Add(StatusRunning)), pb.Params()...)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, getErr := s.GetExecution(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrNotCancellable
	}
	return s.GetExecution(ctx, id)
}

func pipelineFromRow(row map[string]any) (Pipeline, error) {
	p := Pipeline{}
	if s, ok := row["id"].(string); ok {
		p.ID = s
	}
	if s, ok := row["name"].(string); ok {
		p.Name = s
	}
	if s, ok := row["description"].(string); ok {
		p.Description = s
	}
	if b, ok := row["active"].(bool); ok {
		p.Active = b
	}
	if raw, ok := row["steps"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.Steps); err != nil {
			return Pipeline{}, fmt.Errorf("decode pipeline %s steps: %w", p.ID, err)
		}
	}
	if t, ok := row["created_at"].(time.Time); ok {
		p.CreatedAt = t
	}
	if t, ok := row["updated_at"].(time.Time); ok {
		p.UpdatedAt = t
	}
	return p, nil
}

func executionFromRow(row map[string]any) (Execution, error) {
	e := Execution{
		Context: map[string]any{},
		History: []HistoryEntry{},
	}
	if s, ok := row["id"].(string); ok {
		e.ID = s
	}
	if s, ok := row["pipeline_id"].(string); ok {
		e.PipelineID = s
	}
	if s, ok := row["pipeline_name"].(string); ok {
		e.PipelineName = s
	}
	if s, ok := row["status"].(string); ok {
		e.Status = s
	}
	if s, ok := row["error"].(string); ok {
		e.Error = s
	}
	if s, ok := row["retry_of"].(string); ok {
		e.RetryOf = s
	}
	if raw, ok := row["context"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &e.Context); err != nil {
			return Execution{}, fmt.Errorf("decode execution %s context: %w", e.ID, err)
		}
	}
	if raw, ok := row["history"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &e.History); err != nil {
			return Execution{}, fmt.Errorf("decode execution %s history: %w", e.ID, err)
		}
	}
	if t, ok := row["started_at"].(time.Time); ok {
		e.StartedAt = &t
	}
	if t, ok := row["finished_at"].(time.Time); ok {
		e.FinishedAt = &t
	}
	if t, ok := row["created_at"].(time.Time); ok {
		e.CreatedAt = t
	}
	if t, ok := row["updated_at"].(time.Time); ok {
		e.UpdatedAt = t
	}
	return e, nil
}
