package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docbase/internal/gateway/config"
	"docbase/internal/gateway/domain/model"
	"docbase/internal/gateway/usecase"
	"docbase/internal/shared/errors"
	"docbase/internal/shared/logger"
)

type testEnv struct {
	catalog  *fakeCatalog
	physical *fakePhysical
	usage    *fakeUsageStore
	cache    *fakeRollupCache
	gw       *usecase.GatewayUsecase
}

func newTestEnv() *testEnv {
	log := logger.NewLogger()
	catalog := newFakeCatalog()
	physical := newFakePhysical()
	usageStore := &fakeUsageStore{}
	cache := newFakeRollupCache()
	usageLogger := usecase.NewUsageLogger(usageStore, cache, time.Minute, log, nil)
	evolution := usecase.NewEvolutionEngine(physical, log)
	limits := config.LimitsConfig{DefaultPageSize: 20, MaxPageSize: 100}
	return &testEnv{
		catalog:  catalog,
		physical: physical,
		usage:    usageStore,
		cache:    cache,
		gw:       usecase.NewGatewayUsecase(catalog, physical, evolution, usageLogger, limits, log, nil),
	}
}

func (e *testEnv) mustCreateDatabase(t *testing.T, tenantID, name string, collections ...string) *model.LogicalDatabase {
	t.Helper()
	db, err := e.gw.CreateDatabase(context.Background(), tenantID, usecase.CreateDatabaseRequest{
		DisplayName: name,
		Collections: collections,
	})
	require.NoError(t, err)
	require.NotNil(t, db)
	return db
}

func TestCreateDatabase_WithInitialCollections(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	db := env.mustCreateDatabase(t, "acme", "CRM", "users", "orders")
	assert.Equal(t, "acme", db.TenantID)
	assert.Equal(t, "CRM", db.DisplayName)
	assert.Equal(t, "acme_crm", db.PhysicalName)

	detail, err := env.gw.GetDatabase(ctx, "acme", db.ID)
	require.NoError(t, err)
	require.Len(t, detail.Collections, 2)
	names := map[string]int64{}
	for _, col := range detail.Collections {
		names[col.Name] = col.NumDocuments
	}
	assert.Equal(t, int64(0), names["users"])
	assert.Equal(t, int64(0), names["orders"])

	// Physical collections live under the tenant-prefixed database.
	physNames, err := env.physical.ListCollectionNames(ctx, "acme_crm")
	require.NoError(t, err)
	assert.Contains(t, physNames, "users")
	assert.Contains(t, physNames, "orders")
}

func TestCreateDatabase_RejectsInvalidNames(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	cases := []struct {
		name string
		req  usecase.CreateDatabaseRequest
	}{
		{"dotted database name", usecase.CreateDatabaseRequest{DisplayName: "a.b"}},
		{"empty database name", usecase.CreateDatabaseRequest{DisplayName: ""}},
		{"dollar collection name", usecase.CreateDatabaseRequest{DisplayName: "crm", Collections: []string{"$bad"}}},
		{"duplicate collection names", usecase.CreateDatabaseRequest{DisplayName: "crm", Collections: []string{"users", "users"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.gw.CreateDatabase(ctx, "acme", tc.req)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "expected validation error, got %v", err)
		})
	}

	// A rejected request must not touch either store.
	assert.Equal(t, 0, env.catalog.createDatabaseCalls)
	assert.Empty(t, env.physical.data)
}

func TestCreateDatabase_DuplicateNameConflicts(t *testing.T) {
	env := newTestEnv()
	env.mustCreateDatabase(t, "acme", "crm")

	_, err := env.gw.CreateDatabase(context.Background(), "acme", usecase.CreateDatabaseRequest{DisplayName: "crm"})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))

	// Another tenant may reuse the logical name.
	db, err := env.gw.CreateDatabase(context.Background(), "globex", usecase.CreateDatabaseRequest{DisplayName: "crm"})
	require.NoError(t, err)
	assert.Equal(t, "globex_crm", db.PhysicalName)
}

func TestCreateDatabase_PhysicalFailureRollsBackCreated(t *testing.T) {
	env := newTestEnv()
	env.physical.failCreateCollection["orders"] = errors.NewUpstreamStoreError("store down")

	_, err := env.gw.CreateDatabase(context.Background(), "acme", usecase.CreateDatabaseRequest{
		DisplayName: "crm",
		Collections: []string{"users", "orders"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsUpstreamStore(err))

	// The collection created before the failure was dropped again and no
	// catalog row was written.
	assert.Contains(t, env.physical.droppedCollections, "acme_crm/users")
	assert.Empty(t, env.catalog.databases)
}

func TestCreateDatabase_RetryAfterCatalogFailureConverges(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.catalog.failCreateDatabase = errors.NewUpstreamStoreError("catalog down")
	_, err := env.gw.CreateDatabase(ctx, "acme", usecase.CreateDatabaseRequest{
		DisplayName: "crm",
		Collections: []string{"users"},
	})
	require.Error(t, err)

	// The physical collection is an unreachable orphan until the retry.
	physNames, err := env.physical.ListCollectionNames(ctx, "acme_crm")
	require.NoError(t, err)
	assert.Contains(t, physNames, "users")
	assert.Empty(t, env.catalog.databases)

	env.catalog.failCreateDatabase = nil
	db := env.mustCreateDatabase(t, "acme", "crm", "users")

	detail, err := env.gw.GetDatabase(ctx, "acme", db.ID)
	require.NoError(t, err)
	require.Len(t, detail.Collections, 1)
	assert.Equal(t, "users", detail.Collections[0].Name)
}

func TestGetDatabase_TenantIsolation(t *testing.T) {
	env := newTestEnv()
	db := env.mustCreateDatabase(t, "acme", "crm")

	_, err := env.gw.GetDatabase(context.Background(), "globex", db.ID)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestGetDatabase_IncrementsAccessCount(t *testing.T) {
	env := newTestEnv()
	db := env.mustCreateDatabase(t, "acme", "crm")

	_, err := env.gw.GetDatabase(context.Background(), "acme", db.ID)
	require.NoError(t, err)
	_, err = env.gw.GetDatabase(context.Background(), "acme", db.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), env.catalog.databases[db.ID].AccessCount)
}

func TestDropDatabase_RemovesCatalogAndPhysical(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	db := env.mustCreateDatabase(t, "acme", "crm", "users")

	require.NoError(t, env.gw.DropDatabase(ctx, "acme", db.ID))

	_, err := env.gw.GetDatabase(ctx, "acme", db.ID)
	assert.True(t, errors.IsNotFound(err))
	_, ok := env.physical.data["acme_crm"]
	assert.False(t, ok)

	// Dropping twice is a clean not-found, not a crash.
	err = env.gw.DropDatabase(ctx, "acme", db.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestCreateCollection_Succeeds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	db := env.mustCreateDatabase(t, "acme", "crm")

	col, err := env.gw.CreateCollection(ctx, "acme", db.ID, usecase.CreateCollectionRequest{
		Name:   "invoices",
		Fields: []string{"amount", "dueDate"},
	})
	require.NoError(t, err)
	assert.Equal(t, "invoices", col.Name)
	assert.Equal(t, []string{"amount", "dueDate"}, col.DeclaredFields)

	// Declared fields get supporting indexes.
	assert.Contains(t, env.physical.indexes, "acme_crm/invoices/amount")
	assert.Contains(t, env.physical.indexes, "acme_crm/invoices/dueDate")
}

func TestCreateCollection_CatalogFailureCompensates(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	db := env.mustCreateDatabase(t, "acme", "crm")

	env.catalog.failCreateCollection = errors.NewUpstreamStoreError("catalog down")
	_, err := env.gw.CreateCollection(ctx, "acme", db.ID, usecase.CreateCollectionRequest{Name: "invoices"})
	require.Error(t, err)
	assert.True(t, errors.IsUpstreamStore(err))

	// The physical collection was dropped again so the retry starts clean.
	assert.Contains(t, env.physical.droppedCollections, "acme_crm/invoices")

	env.catalog.failCreateCollection = nil
	_, err = env.gw.CreateCollection(ctx, "acme", db.ID, usecase.CreateCollectionRequest{Name: "invoices"})
	require.NoError(t, err)
}

func TestCreateCollection_ConflictOnExisting(t *testing.T) {
	env := newTestEnv()
	db := env.mustCreateDatabase(t, "acme", "crm", "users")

	_, err := env.gw.CreateCollection(context.Background(), "acme", db.ID, usecase.CreateCollectionRequest{Name: "users"})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestRenameCollection_MovesDocuments(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	db := env.mustCreateDatabase(t, "acme", "crm", "users")

	_, err := env.gw.InsertDocuments(ctx, "acme", db.ID, "users", []model.Document{
		{"name": "ada"}, {"name": "grace"},
	})
	require.NoError(t, err)

	err = env.gw.RenameCollection(ctx, "acme", db.ID, usecase.RenameCollectionRequest{
		OldName: "users",
		NewName: "people",
	})
	require.NoError(t, err)

	page, err := env.gw.QueryDocuments(ctx, "acme", db.ID, "people", usecase.QueryRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Pagination.Total)

	_, err = env.gw.QueryDocuments(ctx, "acme", db.ID, "users", usecase.QueryRequest{})
	assert.True(t, errors.IsNotFound(err))
}

func TestRenameCollection_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	db := env.mustCreateDatabase(t, "acme", "crm", "users", "orders")

	err := env.gw.RenameCollection(ctx, "acme", db.ID, usecase.RenameCollectionRequest{OldName: "users", NewName: "users"})
	assert.True(t, errors.IsValidation(err))

	err = env.gw.RenameCollection(ctx, "acme", db.ID, usecase.RenameCollectionRequest{OldName: "ghosts", NewName: "people"})
	assert.True(t, errors.IsNotFound(err))

	err = env.gw.RenameCollection(ctx, "acme", db.ID, usecase.RenameCollectionRequest{OldName: "users", NewName: "orders"})
	assert.True(t, errors.IsConflict(err))
}

func TestRenameCollection_PhysicalDriftIsInconsistency(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	db := env.mustCreateDatabase(t, "acme", "crm", "users")

	// Someone dropped the physical collection behind the gateway's back.
	delete(env.physical.data["acme_crm"], "users")

	err := env.gw.RenameCollection(ctx, "acme", db.ID, usecase.RenameCollectionRequest{OldName: "users", NewName: "people"})
	require.Error(t, err)
	assert.True(t, errors.IsInconsistency(err))
}

func TestRenameCollection_CatalogFailureIsInconsistency(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	db := env.mustCreateDatabase(t, "acme", "crm", "users")
	env.catalog.failRenameCollection = errors.NewUpstreamStoreError("catalog down")

	err := env.gw.RenameCollection(ctx, "acme", db.ID, usecase.RenameCollectionRequest{OldName: "users", NewName: "people"})
	require.Error(t, err)
	assert.True(t, errors.IsInconsistency(err))

	// No reverse rename: the physical store keeps the new name for the
	// operator to reconcile against the stale catalog row.
	physNames, listErr := env.physical.ListCollectionNames(ctx, "acme_crm")
	require.NoError(t, listErr)
	assert.Contains(t, physNames, "people")
	assert.NotContains(t, physNames, "users")
}

func TestDropCollection_CatalogFirst(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	db := env.mustCreateDatabase(t, "acme", "crm", "users", "orders")

	require.NoError(t, env.gw.DropCollection(ctx, "acme", db.ID, "users"))

	detail, err := env.gw.GetDatabase(ctx, "acme", db.ID)
	require.NoError(t, err)
	require.Len(t, detail.Collections, 1)
	assert.Equal(t, "orders", detail.Collections[0].Name)

	err = env.gw.DropCollection(ctx, "acme", db.ID, "users")
	assert.True(t, errors.IsNotFound(err))
}

func TestListDatabases_NormalizesPaging(t *testing.T) {
	env := newTestEnv()
	env.mustCreateDatabase(t, "acme", "crm")
	env.mustCreateDatabase(t, "acme", "billing")

	page, err := env.gw.ListDatabases(context.Background(), "acme", usecase.ListDatabasesRequest{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 100, page.Pagination.PageSize)
	assert.Equal(t, int64(2), page.Pagination.Total)
}
