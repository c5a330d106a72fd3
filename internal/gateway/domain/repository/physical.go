package repository

import (
	"context"

	"docbase/internal/gateway/domain/model"
)

// PhysicalStore is a thin synchronous wrapper around the document store
// driver. It owns the document lifecycle and knows nothing about tenants or
// logical names; callers address it exclusively through resolved physical
// names. Every method draws its connection from the driver pool for the
// duration of the single call, so no connection is ever held across a catalog
// round-trip.
type PhysicalStore interface {
	EnsureDatabaseExists(ctx context.Context, physicalDB string) error
	DropDatabase(ctx context.Context, physicalDB string) error

	CreateCollection(ctx context.Context, physicalDB, name string) error
	DropCollection(ctx context.Context, physicalDB, name string) error
	RenameCollection(ctx context.Context, physicalDB, oldName, newName string) error
	ListCollectionNames(ctx context.Context, physicalDB string) (map[string]struct{}, error)

	CountDocuments(ctx context.Context, physicalDB, collection string, filter model.Filter) (int64, error)
	Find(ctx context.Context, physicalDB, collection string, filter model.Filter, skip, limit int64) ([]model.Document, error)
	InsertOne(ctx context.Context, physicalDB, collection string, doc model.Document) (string, error)
	InsertMany(ctx context.Context, physicalDB, collection string, docs []model.Document) ([]string, error)
	UpdateOne(ctx context.Context, physicalDB, collection, documentID string, patch model.Document) error
	DeleteOne(ctx context.Context, physicalDB, collection, documentID string) error

	// BulkFieldSet sets each named field to null on every document where the
	// field is absent. Idempotent: re-adding a present field is a no-op.
	BulkFieldSet(ctx context.Context, physicalDB, collection string, fields []string) (int64, error)

	// BulkFieldUnset removes each named field from every document. Idempotent.
	BulkFieldUnset(ctx context.Context, physicalDB, collection string, fields []string) (int64, error)

	// EnsureIndex creates a single-field index if it does not already exist.
	EnsureIndex(ctx context.Context, physicalDB, collection, field string) error
}
