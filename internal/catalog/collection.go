package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"media-console/internal/store"
)

// Collection is a named grouping of assets. Membership is free-form;
// an asset can belong to any number of collections.
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AssetCount  int64     `json:"asset_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CollectionStore persists collections and their membership.
type CollectionStore struct {
	db *store.Store
}

func NewCollectionStore(db *store.Store) *CollectionStore {
	return &CollectionStore{db: db}
}

func (s *CollectionStore) List(ctx context.Context) ([]Collection, error) {
	rows, err := store.QueryRows(ctx, s.db.DB,
		`SELECT c.id, c.name, c.description, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM collection_assets ca WHERE ca.collection_id = c.id) AS asset_count
		 FROM collections c ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	collections := make([]Collection, 0, len(rows))
	for _, row := range rows {
		collections = append(collections, collectionFromRow(row))
	}
	return collections, nil
}

func (s *CollectionStore) Get(ctx context.Context, id string) (*Collection, error) {
	pb := s.db.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, s.db.DB, fmt.Sprintf(
		`SELECT c.id, c.name, c.description, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM collection_assets ca WHERE ca.collection_id = c.id) AS asset_count
		 FROM collections c WHERE c.id = %s`, pb.Add(id)), pb.Params()...)
	if err != nil {
		return nil, err
	}
	c := collectionFromRow(row)
	return &c, nil
}

func (s *CollectionStore) Create(ctx context.Context, name, description string) (*Collection, error) {
	id := uuid.New().String()
	pb := s.db.Dialect.NewParamBuilder()
	_, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"INSERT INTO collections (id, name, description) VALUES (%s, %s, %s)",
		pb.Add(id), pb.Add(name), pb.Add(description)), pb.Params()...)
	if err != nil {
		return nil, s.db.Dialect.MapError(err)
	}
	return s.Get(ctx, id)
}

func (s *CollectionStore) Update(ctx context.Context, id, name, description string) (*Collection, error) {
	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"UPDATE collections SET name = %s, description = %s, updated_at = %s WHERE id = %s",
		pb.Add(name), pb.Add(description), s.db.Dialect.NowExpr(), pb.Add(id)),
		pb.Params()...)
	if err != nil {
		return nil, s.db.Dialect.MapError(err)
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *CollectionStore) Delete(ctx context.Context, id string) error {
	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"DELETE FROM collections WHERE id = %s", pb.Add(id)), pb.Params()...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Assets lists the member assets of a collection, newest membership
// first. Soft deleted assets drop out of the listing automatically.
func (s *CollectionStore) Assets(ctx context.Context, collectionID string) ([]Asset, error) {
	assets := NewStore(s.db)
	pb := s.db.Dialect.NewParamBuilder()
	rows, err := store.QueryRows(ctx, s.db.DB, fmt.Sprintf(
		`SELECT %s FROM assets a
		 JOIN collection_assets ca ON ca.asset_id = a.id
		 WHERE ca.collection_id = %s AND a.deleted_at IS NULL
		 ORDER BY ca.added_at DESC`, prefixedAssetColumns("a"), pb.Add(collectionID)),
		pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("list collection assets: %w", err)
	}
	result := make([]Asset, 0, len(rows))
	for _, row := range rows {
		a, err := assets.assetFromRow(row)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

// AddAsset makes the asset a member. Adding an existing member is a
// no-op.
func (s *CollectionStore) AddAsset(ctx context.Context, collectionID, assetID string) error {
	pb := s.db.Dialect.NewParamBuilder()
	_, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"INSERT INTO collection_assets (collection_id, asset_id) VALUES (%s, %s)",
		pb.Add(collectionID), pb.Add(assetID)), pb.Params()...)
	if err != nil {
		if errors.Is(s.db.Dialect.MapError(err), store.ErrUniqueViolation) {
			return nil
		}
		return err
	}
	return nil
}

func (s *CollectionStore) RemoveAsset(ctx context.Context, collectionID, assetID string) error {
	pb := s.db.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.db.DB, fmt.Sprintf(
		"DELETE FROM collection_assets WHERE collection_id = %s AND asset_id = %s",
		pb.Add(collectionID), pb.Add(assetID)), pb.Params()...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func collectionFromRow(row map[string]any) Collection {
	c := Collection{
		ID:          asString(row["id"]),
		Name:        asString(row["name"]),
		Description: asString(row["description"]),
		AssetCount:  toInt64(row["asset_count"]),
	}
	if t, ok := row["created_at"].(time.Time); ok {
		c.CreatedAt = t
	}
	if t, ok := row["updated_at"].(time.Time); ok {
		c.UpdatedAt = t
	}
	return c
}

// prefixedAssetColumns qualifies the asset column list with a table
// alias for joins.
func prefixedAssetColumns(alias string) string {
	cols := ""
	for i, col := range []string{"id", "title", "description", "media_type", "mime_type", "size_bytes", "storage_path", "metadata", "tags", "created_at", "updated_at"} {
		if i > 0 {
			cols += ", "
		}
		cols += alias + "." + col
	}
	return cols
}
