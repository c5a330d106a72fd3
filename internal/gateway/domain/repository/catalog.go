package repository

import (
	"context"

	"docbase/internal/gateway/domain/model"
)

// Catalog is the relational metadata catalog: the source of truth for what
// should exist and what shape it should have. Every method takes the tenant ID
// as its mandatory first parameter after the context so that a query scoped
// without a tenant is structurally impossible, not a runtime check.
type Catalog interface {
	// CreateDatabase inserts the database row and all of its collection rows
	// in a single catalog transaction. Returns a conflict error if the
	// (tenantID, displayName) pair or the physical name is already taken.
	CreateDatabase(ctx context.Context, tenantID string, db *model.LogicalDatabase, collections []*model.LogicalCollection) error

	// FindDatabase resolves a database by ID, scoped to the owning tenant.
	FindDatabase(ctx context.Context, tenantID, databaseID string) (*model.LogicalDatabase, error)

	// FindDatabaseByName resolves a database by its logical display name.
	FindDatabaseByName(ctx context.Context, tenantID, displayName string) (*model.LogicalDatabase, error)

	// ListDatabases returns a page ordered by creation time descending.
	// nameFilter matches case-insensitively against the logical name only.
	ListDatabases(ctx context.Context, tenantID string, page, pageSize int, nameFilter string) (*model.DatabasePage, error)

	// DeleteDatabase removes the database row and all of its collection rows.
	DeleteDatabase(ctx context.Context, tenantID, databaseID string) error

	CreateCollection(ctx context.Context, tenantID, databaseID string, collection *model.LogicalCollection) error
	FindCollection(ctx context.Context, tenantID, databaseID, name string) (*model.LogicalCollection, error)
	ListCollections(ctx context.Context, tenantID, databaseID string) ([]*model.LogicalCollection, error)
	DeleteCollection(ctx context.Context, tenantID, databaseID, name string) error

	// UpdateCollectionFields replaces the declared field set. The declared
	// list is advisory metadata; document propagation happens before this.
	UpdateCollectionFields(ctx context.Context, tenantID, databaseID, name string, fields []string) error

	// RenameCollection updates the catalog name of a collection.
	RenameCollection(ctx context.Context, tenantID, databaseID, oldName, newName string) error

	// IncrementAccessCount bumps the database access counter.
	IncrementAccessCount(ctx context.Context, tenantID, databaseID string) error
}
