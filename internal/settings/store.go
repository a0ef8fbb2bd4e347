package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"media-console/internal/auth"
	"media-console/internal/store"
)

// User is the console account record. The password hash never leaves
// this package.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Region is a named storage/delivery region operators can assign work
// to.
type Region struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists users, regions, and system settings.
type Store struct {
	db *store.Store
}

func NewStore(db *store.Store) *Store {
	return &Store{db: db}
}

// --- users ---

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := store.QueryRows(ctx, s.db.DB,
		"SELECT id, email, roles, active, created_at, updated_at FROM users ORDER BY email")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if s.db.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans(rows, []string{"active"})
	}
	users := make([]User, 0, len(rows))
	for _, row := range rows {
		u, err := s.userFromRow(row)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	pb := s.db.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, s.db.DB, fmt.Sprintf(
		"SELECT id, email, roles, active, created_at, updated_at FROM users WHERE id = %s",
		pb.Add(id)), pb.Params()...)
	if err != nil {
		return nil, err
	}
	if s.db.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans([]map[string]any{row}, []string{"active"})
	}
	u, err := s.userFromRow(row)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, email, password string, roles []string) (*User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.New().String()
	pb := s.db.Dialect.NewParamBuilder()
	_, err = store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"INSERT INTO users (id, email, password_hash, roles, active) VALUES (%s, %s, %s, %s, %s)",
		pb.Add(id), pb.Add(email), pb.Add(hash),
		pb.Add(s.db.Dialect.ArrayParam(roles)), pb.Add(true)), pb.Params()...)
	if err != nil {
		return nil, s.db.Dialect.MapError(err)
	}
	return s.GetUser(ctx, id)
}

// UpdateUserRoles replaces the user's role list.
func (s *Store) UpdateUserRoles(ctx context.Context, id string, roles []string) (*User, error) {
	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"UPDATE users SET roles = %s, updated_at = %s WHERE id = %s",
		pb.Add(s.db.Dialect.ArrayParam(roles)), s.db.Dialect.NowExpr(), pb.Add(id)),
		pb.Params()...)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetUser(ctx, id)
}

// SetUserActive activates or deactivates an account. Deactivation also
// revokes refresh tokens so open sessions die at access-token expiry.
func (s *Store) SetUserActive(ctx context.Context, id string, active bool) (*User, error) {
	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"UPDATE users SET active = %s, updated_at = %s WHERE id = %s",
		pb.Add(active), s.db.Dialect.NowExpr(), pb.Add(id)), pb.Params()...)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}

	if !active {
		pb = s.db.Dialect.NewParamBuilder()
		if _, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
			"DELETE FROM refresh_tokens WHERE user_id = %s", pb.Add(id)),
			pb.Params()...); err != nil {
			return nil, fmt.Errorf("revoke refresh tokens: %w", err)
		}
	}
	return s.GetUser(ctx, id)
}

func (s *Store) userFromRow(row map[string]any) (User, error) {
	u := User{}
	if v, ok := row["id"].(string); ok {
		u.ID = v
	}
	if v, ok := row["email"].(string); ok {
		u.Email = v
	}
	if v, ok := row["active"].(bool); ok {
		u.Active = v
	}
	roles, err := s.db.Dialect.ScanArray(row["roles"])
	if err != nil {
		return User{}, fmt.Errorf("decode user %s roles: %w", u.ID, err)
	}
	u.Roles = roles
	if t, ok := row["created_at"].(time.Time); ok {
		u.CreatedAt = t
	}
	if t, ok := row["updated_at"].(time.Time); ok {
		u.UpdatedAt = t
	}
	return u, nil
}

// --- regions ---

func (s *Store) ListRegions(ctx context.Context) ([]Region, error) {
	rows, err := store.QueryRows(ctx, s.db.DB,
		"SELECT id, name, created_at FROM regions ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	regions := make([]Region, 0, len(rows))
	for _, row := range rows {
		r := Region{}
		if v, ok := row["id"].(string); ok {
			r.ID = v
		}
		if v, ok := row["name"].(string); ok {
			r.Name = v
		}
		if t, ok := row["created_at"].(time.Time); ok {
			r.CreatedAt = t
		}
		regions = append(regions, r)
	}
	return regions, nil
}

func (s *Store) CreateRegion(ctx context.Context, name string) (*Region, error) {
	id := uuid.New().String()
	pb := s.db.Dialect.NewParamBuilder()
	_, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"INSERT INTO regions (id, name) VALUES (%s, %s)", pb.Add(id), pb.Add(name)),
		pb.Params()...)
	if err != nil {
		return nil, s.db.Dialect.MapError(err)
	}

	pb = s.db.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, s.db.DB, fmt.Sprintf(
		"SELECT id, name, created_at FROM regions WHERE id = %s", pb.Add(id)),
		pb.Params()...)
	if err != nil {
		return nil, err
	}
	r := Region{ID: id}
	if v, ok := row["name"].(string); ok {
		r.Name = v
	}
	if t, ok := row["created_at"].(time.Time); ok {
		r.CreatedAt = t
	}
	return &r, nil
}

func (s *Store) DeleteRegion(ctx context.Context, id string) error {
	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"DELETE FROM regions WHERE id = %s", pb.Add(id)), pb.Params()...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- system settings ---

// GetSystemSettings returns all key/value settings as one document.
func (s *Store) GetSystemSettings(ctx context.Context) (map[string]any, error) {
	rows, err := store.QueryRows(ctx, s.db.DB, "SELECT key, value FROM system_settings")
	if err != nil {
		return nil, fmt.Errorf("list system settings: %w", err)
	}
	settings := map[string]any{}
	for _, row := range rows {
		key, _ := row["key"].(string)
		raw, _ := row["value"].(string)
		var value any
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &value); err != nil {
				return nil, fmt.Errorf("decode setting %s: %w", key, err)
			}
		}
		settings[key] = value
	}
	return settings, nil
}

// PutSystemSetting upserts one key.
func (s *Store) PutSystemSetting(ctx context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}

	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"UPDATE system_settings SET value = %s, updated_at = %s WHERE key = %s",
		pb.Add(string(encoded)), s.db.Dialect.NowExpr(), pb.Add(key)), pb.Params()...)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	pb = s.db.Dialect.NewParamBuilder()
	_, err = store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"INSERT INTO system_settings (key, value) VALUES (%s, %s)",
		pb.Add(key), pb.Add(string(encoded))), pb.Params()...)
	if err != nil {
		// A concurrent insert may have won the race; retry as update.
		if errors.Is(s.db.Dialect.MapError(err), store.ErrUniqueViolation) {
			return s.PutSystemSetting(ctx, key, value)
		}
	}
	return err
}
