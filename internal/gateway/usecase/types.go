package usecase

import (
	"context"
	"time"

	"docbase/internal/gateway/domain/model"
)

// CreateDatabaseRequest creates a logical database plus its initial
// collections in one operation.
type CreateDatabaseRequest struct {
	DisplayName string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Collections []string `json:"collections"`
}

// ListDatabasesRequest pages through a tenant's databases.
type ListDatabasesRequest struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	NameFilter string `json:"nameFilter"`
}

// DatabaseDetail is a database together with its collections and their live
// document counts.
type DatabaseDetail struct {
	Database    *model.LogicalDatabase  `json:"database"`
	Collections []*model.CollectionInfo `json:"collections"`
}

// CreateCollectionRequest creates one collection in an existing database.
type CreateCollectionRequest struct {
	Name   string   `json:"name" validate:"required"`
	Fields []string `json:"fields"`
}

// RenameCollectionRequest renames a collection.
type RenameCollectionRequest struct {
	OldName string `json:"collectionName" validate:"required"`
	NewName string `json:"newName" validate:"required"`
}

// AlterFieldsRequest adds and/or removes declared fields. Adds are applied
// before removes.
type AlterFieldsRequest struct {
	CollectionName string   `json:"collectionName" validate:"required"`
	AddFields      []string `json:"addFields"`
	RemoveFields   []string `json:"removeFields"`
}

// QueryRequest pages through a collection's documents. FilterJSON is a
// JSON-encoded equality map; empty means match-all.
type QueryRequest struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	FilterJSON string `json:"filters"`
}

// UsageRequest selects a reporting rollup for a tenant.
type UsageRequest struct {
	Window model.RollupWindow `json:"window"`
	At     time.Time          `json:"at"`
}

// Gateway is the tenant-facing surface of the document-store gateway. Every
// method requires the resolved tenant ID; ownership is always checked against
// the catalog before any physical mutation.
type Gateway interface {
	CreateDatabase(ctx context.Context, tenantID string, req CreateDatabaseRequest) (*model.LogicalDatabase, error)
	ListDatabases(ctx context.Context, tenantID string, req ListDatabasesRequest) (*model.DatabasePage, error)
	GetDatabase(ctx context.Context, tenantID, databaseID string) (*DatabaseDetail, error)
	DropDatabase(ctx context.Context, tenantID, databaseID string) error

	CreateCollection(ctx context.Context, tenantID, databaseID string, req CreateCollectionRequest) (*model.LogicalCollection, error)
	RenameCollection(ctx context.Context, tenantID, databaseID string, req RenameCollectionRequest) error
	AlterCollectionFields(ctx context.Context, tenantID, databaseID string, req AlterFieldsRequest) (*model.LogicalCollection, error)
	DropCollection(ctx context.Context, tenantID, databaseID, collectionName string) error

	QueryDocuments(ctx context.Context, tenantID, databaseID, collectionName string, req QueryRequest) (*model.DocumentPage, error)
	InsertDocuments(ctx context.Context, tenantID, databaseID, collectionName string, docs []model.Document) ([]string, error)
	UpdateDocument(ctx context.Context, tenantID, databaseID, collectionName, documentID string, patch model.Document) error
	DeleteDocument(ctx context.Context, tenantID, databaseID, collectionName, documentID string) error

	Usage(ctx context.Context, tenantID string, req UsageRequest) (*model.UsageRollup, error)
}
