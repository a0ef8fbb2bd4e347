package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"media-console/internal/store"
)

// Connector is an outbound HTTP endpoint pipelines deliver to:
// transcoders, CDN purge hooks, notification services. Header values
// may reference environment variables as {{env.NAME}}; secrets never
// land in the database.
type Connector struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Kind      string            `json:"kind"`
	Endpoint  string            `json:"endpoint"`
	Headers   map[string]string `json:"headers"`
	Enabled   bool              `json:"enabled"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Store persists connectors.
type Store struct {
	db *store.Store
}

func NewStore(db *store.Store) *Store {
	return &Store{db: db}
}

const connectorColumns = "id, name, kind, endpoint, headers, enabled, created_at, updated_at"

func (s *Store) List(ctx context.Context) ([]Connector, error) {
	rows, err := store.QueryRows(ctx, s.db.DB,
		fmt.Sprintf("SELECT %s FROM connectors ORDER BY name", connectorColumns))
	if err != nil {
		return nil, fmt.Errorf("list connectors: %w", err)
	}
	if s.db.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans(rows, []string{"enabled"})
	}
	connectors := make([]Connector, 0, len(rows))
	for _, row := range rows {
		c, err := connectorFromRow(row)
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, c)
	}
	return connectors, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Connector, error) {
	pb := s.db.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, s.db.DB, fmt.Sprintf(
		"SELECT %s FROM connectors WHERE id = %s", connectorColumns, pb.Add(id)),
		pb.Params()...)
	if err != nil {
		return nil, err
	}
	if s.db.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans([]map[string]any{row}, []string{"enabled"})
	}
	c, err := connectorFromRow(row)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByName resolves a connector reference from a pipeline step.
func (s *Store) GetByName(ctx context.Context, name string) (*Connector, error) {
	pb := s.db.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, s.db.DB, fmt.Sprintf(
		"SELECT %s FROM connectors WHERE name = %s", connectorColumns, pb.Add(name)),
		pb.Params()...)
	if err != nil {
		return nil, err
	}
	if s.db.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans([]map[string]any{row}, []string{"enabled"})
	}
	c, err := connectorFromRow(row)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) Create(ctx context.Context, c *Connector) (*Connector, error) {
	if c.Headers == nil {
		c.Headers = map[string]string{}
	}
	headers, err := json.Marshal(c.Headers)
	if err != nil {
		return nil, fmt.Errorf("encode headers: %w", err)
	}

	id := uuid.New().String()
	pb := s.db.Dialect.NewParamBuilder()
	_, err = store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"INSERT INTO connectors (id, name, kind, endpoint, headers, enabled) VALUES (%s, %s, %s, %s, %s, %s)",
		pb.Add(id), pb.Add(c.Name), pb.Add(c.Kind), pb.Add(c.Endpoint),
		pb.Add(string(headers)), pb.Add(c.Enabled)), pb.Params()...)
	if err != nil {
		return nil, s.db.Dialect.MapError(err)
	}
	return s.Get(ctx, id)
}

func (s *Store) Update(ctx context.Context, id string, c *Connector) (*Connector, error) {
	headers, err := json.Marshal(c.Headers)
	if err != nil {
		return nil, fmt.Errorf("encode headers: %w", err)
	}

	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"UPDATE connectors SET name = %s, kind = %s, endpoint = %s, headers = %s, enabled = %s, updated_at = %s WHERE id = %s",
		pb.Add(c.Name), pb.Add(c.Kind), pb.Add(c.Endpoint), pb.Add(string(headers)),
		pb.Add(c.Enabled), s.db.Dialect.NowExpr(), pb.Add(id)), pb.Params()...)
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
		"DELETE FROM connectors WHERE id = %s", pb.Add(id)), pb.Params()...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func connectorFromRow(row map[string]any) (Connector, error) {
	c := Connector{
		Headers: map[string]string{},
	}
	if s, ok := row["id"].(string); ok {
		c.ID = s
	}
	if s, ok := row["name"].(string); ok {
		c.Name = s
	}
	if s, ok := row["kind"].(string); ok {
		c.Kind = s
	}
	if s, ok := row["endpoint"].(string); ok {
		c.Endpoint = s
	}
	if b, ok := row["enabled"].(bool); ok {
		c.Enabled = b
	}
	if raw, ok := row["headers"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.Headers); err != nil {
			return Connector{}, fmt.Errorf("decode connector %s headers: %w", c.ID, err)
		}
	}
	if t, ok := row["created_at"].(time.Time); ok {
		c.CreatedAt = t
	}
	if t, ok := row["updated_at"].(time.Time); ok {
		c.UpdatedAt = t
	}
	return c, nil
}
