package role

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"media-console/internal/permission"
	"media-console/internal/store"
)

// Role is a named permission document. The document keeps whatever
// shape family the authorization data arrived in; editing it goes
// through the permission package so the shape survives round trips.
type Role struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Permissions permission.Set `json:"permissions"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Store persists roles.
type Store struct {
	db *store.Store
}

func NewStore(db *store.Store) *Store {
	return &Store{db: db}
}

func (s *Store) List(ctx context.Context) ([]Role, error) {
	rows, err := store.QueryRows(ctx, s.db.DB,
		"SELECT id, name, description, permissions, created_at, updated_at FROM roles ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	roles := make([]Role, 0, len(rows))
	for _, row := range rows {
		r, err := roleFromRow(row)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Role, error) {
	pb := s.db.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, s.db.DB, fmt.Sprintf(
		"SELECT id, name, description, permissions, created_at, updated_at FROM roles WHERE id = %s",
		pb.Add(id)), pb.Params()...)
	if err != nil {
		return nil, err
	}
	r, err := roleFromRow(row)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) Create(ctx context.Context, name, description string, set permission.Set) (*Role, error) {
	encoded, err := set.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode permissions: %w", err)
	}

	id := uuid.New().String()
	pb := s.db.Dialect.NewParamBuilder()
	_, err = store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"INSERT INTO roles (id, name, description, permissions) VALUES (%s, %s, %s, %s)",
		pb.Add(id), pb.Add(name), pb.Add(description), pb.Add(string(encoded))),
		pb.Params()...)
	if err != nil {
		return nil, s.db.Dialect.MapError(err)
	}
	return s.Get(ctx, id)
}

func (s *Store) UpdateMeta(ctx context.Context, id, name, description string) error {
	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"UPDATE roles SET name = %s, description = %s, updated_at = %s WHERE id = %s",
		pb.Add(name), pb.Add(description), s.db.Dialect.NowExpr(), pb.Add(id)),
		pb.Params()...)
	if err != nil {
		return s.db.Dialect.MapError(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdatePermissions replaces the role's permission document wholesale.
// Concurrent editors are last-write-wins by design.
func (s *Store) UpdatePermissions(ctx context.Context, id string, set permission.Set) error {
	encoded, err := set.Encode()
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"UPDATE roles SET permissions = %s, updated_at = %s WHERE id = %s",
		pb.Add(string(encoded)), s.db.Dialect.NowExpr(), pb.Add(id)),
		pb.Params()...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"DELETE FROM roles WHERE id = %s", pb.Add(id)), pb.Params()...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetsForRoles loads the permission documents for the named roles.
// Unknown role names are skipped: a stale role claim in a token means
// NotSet everywhere, not an error.
func (s *Store) SetsForRoles(ctx context.Context, names []string) ([]permission.Set, error) {
	if len(names) == 0 {
		return nil, nil
	}
	values := make([]any, len(names))
	for i, n := range names {
		values[i] = n
	}
	pb := s.db.Dialect.NewParamBuilder()
	cond := s.db.Dialect.InExpr("name", pb, values)
	rows, err := store.QueryRows(ctx, s.db.DB,
		"SELECT permissions FROM roles WHERE "+cond, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("load role permissions: %w", err)
	}
	sets := make([]permission.Set, 0, len(rows))
	for _, row := range rows {
		raw, _ := row["permissions"].(string)
		set, err := permission.DecodeSet([]byte(raw))
		if err != nil {
			// A corrupted document must not lock every guard closed.
			continue
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func roleFromRow(row map[string]any) (Role, error) {
	raw, _ := row["permissions"].(string)
	set, err := permission.DecodeSet([]byte(raw))
	if err != nil {
		return Role{}, fmt.Errorf("decode role permissions: %w", err)
	}
	r := Role{
		Permissions: set,
	}
	r.ID, _ = row["id"].(string)
	r.Name, _ = row["name"].(string)
	r.Description, _ = row["description"].(string)
	if t, ok := row["created_at"].(time.Time); ok {
		r.CreatedAt = t
	}
	if t, ok := row["updated_at"].(time.Time); ok {
		r.UpdatedAt = t
	}
	return r, nil
}
