package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"media-console/internal/store"
)

// Asset is a single media asset in the catalog. The binary lives in
// blob storage under StoragePath; the row carries everything the
// console lists and filters on.
type Asset struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	MediaType   string         `json:"media_type"`
	MimeType    string         `json:"mime_type"`
	SizeBytes   int64          `json:"size_bytes"`
	StoragePath string         `json:"storage_path"`
	Metadata    map[string]any `json:"metadata"`
	Tags        []string       `json:"tags"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Store persists assets.
type Store struct {
	db *store.Store
}

func NewStore(db *store.Store) *Store {
	return &Store{db: db}
}

// Search runs a parsed plan and returns the matching page plus the
// unpaged total.
func (s *Store) Search(ctx context.Context, plan *SearchPlan) ([]Asset, int64, error) {
	sel := BuildSelectSQL(plan, s.db.Dialect)
	rows, err := store.QueryRows(ctx, s.db.DB, sel.SQL, sel.Params...)
	if err != nil {
		return nil, 0, fmt.Errorf("search assets: %w", err)
	}

	assets := make([]Asset, 0, len(rows))
	for _, row := range rows {
		a, err := s.assetFromRow(row)
		if err != nil {
			return nil, 0, err
		}
		assets = append(assets, a)
	}

	count := BuildCountSQL(plan, s.db.Dialect)
	countRow, err := store.QueryRow(ctx, s.db.DB, count.SQL, count.Params...)
	if err != nil {
		return nil, 0, fmt.Errorf("count assets: %w", err)
	}
	total := toInt64(countRow["total"])

	return assets, total, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Asset, error) {
	pb := s.db.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, s.db.DB, fmt.Sprintf(
		"SELECT %s FROM assets WHERE id = %s AND deleted_at IS NULL",
		assetColumns, pb.Add(id)), pb.Params()...)
	if err != nil {
		return nil, err
	}
	a, err := s.assetFromRow(row)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *Asset) (*Asset, error) {
	a.ID = uuid.New().String()
	a.MediaType = NormalizeMediaType(a.MediaType)
	if a.Metadata == nil {
		a.Metadata = map[string]any{}
	}

	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	pb := s.db.Dialect.NewParamBuilder()
	_, err = store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"INSERT INTO assets (id, title, description, media_type, mime_type, metadata, tags) VALUES (%s, %s, %s, %s, %s, %s, %s)",
		pb.Add(a.ID), pb.Add(a.Title), pb.Add(a.Description), pb.Add(a.MediaType),
		pb.Add(a.MimeType), pb.Add(string(metadata)), pb.Add(s.db.Dialect.ArrayParam(a.Tags))),
		pb.Params()...)
	if err != nil {
		return nil, s.db.Dialect.MapError(err)
	}
	return s.Get(ctx, a.ID)
}

func (s *Store) Update(ctx context.Context, id string, a *Asset) (*Asset, error) {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"UPDATE assets SET title = %s, description = %s, media_type = %s, metadata = %s, tags = %s, updated_at = %s WHERE id = %s AND deleted_at IS NULL",
		pb.Add(a.Title), pb.Add(a.Description), pb.Add(NormalizeMediaType(a.MediaType)),
		pb.Add(string(metadata)), pb.Add(s.db.Dialect.ArrayParam(a.Tags)),
		s.db.Dialect.NowExpr(), pb.Add(id)),
		pb.Params()...)
	if err != nil {
		return nil, s.db.Dialect.MapError(err)
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return s.Get(ctx, id)
}

// AttachFile records an uploaded binary against the asset row.
func (s *Store) AttachFile(ctx context.Context, id, storagePath, mimeType string, sizeBytes int64) error {
	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"UPDATE assets SET storage_path = %s, mime_type = %s, size_bytes = %s, updated_at = %s WHERE id = %s AND deleted_at IS NULL",
		pb.Add(storagePath), pb.Add(mimeType), pb.Add(sizeBytes),
		s.db.Dialect.NowExpr(), pb.Add(id)),
		pb.Params()...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SoftDelete marks the asset deleted. The row and blob stay around
// until a retention job cleans them up.
func (s *Store) SoftDelete(ctx context.Context, id string) error {
	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"UPDATE assets SET deleted_at = %s WHERE id = %s AND deleted_at IS NULL",
		s.db.Dialect.NowExpr(), pb.Add(id)),
		pb.Params()...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) assetFromRow(row map[string]any) (Asset, error) {
	a := Asset{
		ID:          asString(row["id"]),
		Title:       asString(row["title"]),
		Description: asString(row["description"]),
		MediaType:   asString(row["media_type"]),
		MimeType:    asString(row["mime_type"]),
		SizeBytes:   toInt64(row["size_bytes"]),
		StoragePath: asString(row["storage_path"]),
		Metadata:    map[string]any{},
	}

	if raw := asString(row["metadata"]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &a.Metadata); err != nil {
			return Asset{}, fmt.Errorf("decode asset %s metadata: %w", a.ID, err)
		}
	}

	tags, err := s.db.Dialect.ScanArray(row["tags"])
	if err != nil {
		return Asset{}, fmt.Errorf("decode asset %s tags: %w", a.ID, err)
	}
	a.Tags = tags

	if t, ok := row["created_at"].(time.Time); ok {
		a.CreatedAt = t
	}
	if t, ok := row["updated_at"].(time.Time); ok {
		a.UpdatedAt = t
	}
	return a, nil
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
