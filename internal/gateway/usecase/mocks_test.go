package usecase_test

import (
	"context"
	"fmt"
	"time"

	"docbase/internal/gateway/domain/model"
	"docbase/internal/gateway/domain/repository"
	"docbase/internal/shared/errors"
)

// fakeCatalog is an in-memory stand-in for the relational catalog.
type fakeCatalog struct {
	databases   map[string]*model.LogicalDatabase              // databaseID -> row
	collections map[string]map[string]*model.LogicalCollection // databaseID -> name -> row
	nextID      int

	failCreateDatabase    error
	failCreateCollection  error
	failRenameCollection  error
	failUpdateFields      error
	createDatabaseCalls   int
	accessCountIncrements int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		databases:   make(map[string]*model.LogicalDatabase),
		collections: make(map[string]map[string]*model.LogicalCollection),
	}
}

func (f *fakeCatalog) genID() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeCatalog) CreateDatabase(ctx context.Context, tenantID string, db *model.LogicalDatabase, collections []*model.LogicalCollection) error {
	f.createDatabaseCalls++
	if f.failCreateDatabase != nil {
		return f.failCreateDatabase
	}
	for _, existing := range f.databases {
		if existing.TenantID == tenantID && existing.DisplayName == db.DisplayName {
			return errors.NewConflictError("database already exists")
		}
	}
	db.ID = f.genID()
	db.TenantID = tenantID
	f.databases[db.ID] = db
	f.collections[db.ID] = make(map[string]*model.LogicalCollection)
	for _, col := range collections {
		col.ID = f.genID()
		col.DatabaseID = db.ID
		f.collections[db.ID][col.Name] = col
	}
	return nil
}

func (f *fakeCatalog) FindDatabase(ctx context.Context, tenantID, databaseID string) (*model.LogicalDatabase, error) {
	db, ok := f.databases[databaseID]
	if !ok || db.TenantID != tenantID {
		return nil, errors.NewNotFoundError("database")
	}
	return db, nil
}

func (f *fakeCatalog) FindDatabaseByName(ctx context.Context, tenantID, displayName string) (*model.LogicalDatabase, error) {
	for _, db := range f.databases {
		if db.TenantID == tenantID && db.DisplayName == displayName {
			return db, nil
		}
	}
	return nil, errors.NewNotFoundError("database")
}

func (f *fakeCatalog) ListDatabases(ctx context.Context, tenantID string, page, pageSize int, nameFilter string) (*model.DatabasePage, error) {
	items := make([]*model.LogicalDatabase, 0)
	for _, db := range f.databases {
		if db.TenantID == tenantID {
			items = append(items, db)
		}
	}
	return &model.DatabasePage{
		Items: items,
		Pagination: model.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    int64(len(items)),
		},
	}, nil
}

func (f *fakeCatalog) DeleteDatabase(ctx context.Context, tenantID, databaseID string) error {
	if _, err := f.FindDatabase(ctx, tenantID, databaseID); err != nil {
		return err
	}
	delete(f.databases, databaseID)
	delete(f.collections, databaseID)
	return nil
}

func (f *fakeCatalog) CreateCollection(ctx context.Context, tenantID, databaseID string, collection *model.LogicalCollection) error {
	if f.failCreateCollection != nil {
		return f.failCreateCollection
	}
	if _, err := f.FindDatabase(ctx, tenantID, databaseID); err != nil {
		return err
	}
	if _, exists := f.collections[databaseID][collection.Name]; exists {
		return errors.NewConflictError("collection already exists")
	}
	collection.ID = f.genID()
	collection.DatabaseID = databaseID
	f.collections[databaseID][collection.Name] = collection
	return nil
}

func (f *fakeCatalog) FindCollection(ctx context.Context, tenantID, databaseID, name string) (*model.LogicalCollection, error) {
	if _, err := f.FindDatabase(ctx, tenantID, databaseID); err != nil {
		return nil, err
	}
	col, ok := f.collections[databaseID][name]
	if !ok {
		return nil, errors.NewNotFoundError("collection")
	}
	return col, nil
}

func (f *fakeCatalog) ListCollections(ctx context.Context, tenantID, databaseID string) ([]*model.LogicalCollection, error) {
	if _, err := f.FindDatabase(ctx, tenantID, databaseID); err != nil {
		return nil, err
	}
	out := make([]*model.LogicalCollection, 0, len(f.collections[databaseID]))
	for _, col := range f.collections[databaseID] {
		out = append(out, col)
	}
	return out, nil
}

func (f *fakeCatalog) DeleteCollection(ctx context.Context, tenantID, databaseID, name string) error {
	if _, err := f.FindCollection(ctx, tenantID, databaseID, name); err != nil {
		return err
	}
	delete(f.collections[databaseID], name)
	return nil
}

func (f *fakeCatalog) UpdateCollectionFields(ctx context.Context, tenantID, databaseID, name string, fields []string) error {
	if f.failUpdateFields != nil {
		return f.failUpdateFields
	}
	col, err := f.FindCollection(ctx, tenantID, databaseID, name)
	if err != nil {
		return err
	}
	col.DeclaredFields = fields
	return nil
}

func (f *fakeCatalog) RenameCollection(ctx context.Context, tenantID, databaseID, oldName, newName string) error {
	if f.failRenameCollection != nil {
		return f.failRenameCollection
	}
	col, err := f.FindCollection(ctx, tenantID, databaseID, oldName)
	if err != nil {
		return err
	}
	if _, exists := f.collections[databaseID][newName]; exists {
		return errors.NewConflictError("collection already exists")
	}
	delete(f.collections[databaseID], oldName)
	col.Name = newName
	f.collections[databaseID][newName] = col
	return nil
}

func (f *fakeCatalog) IncrementAccessCount(ctx context.Context, tenantID, databaseID string) error {
	f.accessCountIncrements++
	if db, ok := f.databases[databaseID]; ok {
		db.AccessCount++
	}
	return nil
}

// fakePhysical is an in-memory stand-in for the document store.
type fakePhysical struct {
	data   map[string]map[string][]model.Document // physicalDB -> collection -> docs
	nextID int

	failCreateCollection map[string]error // collection name -> error
	failRename           error
	indexes              []string // "db/collection/field"
	droppedCollections   []string
}

func newFakePhysical() *fakePhysical {
	return &fakePhysical{
		data:                 make(map[string]map[string][]model.Document),
		failCreateCollection: make(map[string]error),
	}
}

func (f *fakePhysical) EnsureDatabaseExists(ctx context.Context, physicalDB string) error {
	if _, ok := f.data[physicalDB]; !ok {
		f.data[physicalDB] = make(map[string][]model.Document)
	}
	return nil
}

func (f *fakePhysical) DropDatabase(ctx context.Context, physicalDB string) error {
	delete(f.data, physicalDB)
	return nil
}

func (f *fakePhysical) CreateCollection(ctx context.Context, physicalDB, name string) error {
	if err := f.failCreateCollection[name]; err != nil {
		return err
	}
	if _, ok := f.data[physicalDB]; !ok {
		f.data[physicalDB] = make(map[string][]model.Document)
	}
	if _, exists := f.data[physicalDB][name]; exists {
		return errors.NewConflictError("physical collection already exists")
	}
	f.data[physicalDB][name] = []model.Document{}
	return nil
}

func (f *fakePhysical) DropCollection(ctx context.Context, physicalDB, name string) error {
	delete(f.data[physicalDB], name)
	f.droppedCollections = append(f.droppedCollections, physicalDB+"/"+name)
	return nil
}

func (f *fakePhysical) RenameCollection(ctx context.Context, physicalDB, oldName, newName string) error {
	if f.failRename != nil {
		return f.failRename
	}
	docs, ok := f.data[physicalDB][oldName]
	if !ok {
		return errors.NewNotFoundError("collection")
	}
	delete(f.data[physicalDB], oldName)
	f.data[physicalDB][newName] = docs
	return nil
}

func (f *fakePhysical) ListCollectionNames(ctx context.Context, physicalDB string) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	for name := range f.data[physicalDB] {
		set[name] = struct{}{}
	}
	return set, nil
}

func (f *fakePhysical) matches(doc model.Document, filter model.Filter) bool {
	for k, v := range filter {
		if doc[k] != v {
			return false
		}
	}
	return true
}

func (f *fakePhysical) CountDocuments(ctx context.Context, physicalDB, collection string, filter model.Filter) (int64, error) {
	var n int64
	for _, doc := range f.data[physicalDB][collection] {
		if f.matches(doc, filter) {
			n++
		}
	}
	return n, nil
}

func (f *fakePhysical) Find(ctx context.Context, physicalDB, collection string, filter model.Filter, skip, limit int64) ([]model.Document, error) {
	out := make([]model.Document, 0)
	var matched int64
	for _, doc := range f.data[physicalDB][collection] {
		if !f.matches(doc, filter) {
			continue
		}
		matched++
		if matched <= skip {
			continue
		}
		if int64(len(out)) >= limit {
			break
		}
		out = append(out, doc.Clone())
	}
	return out, nil
}

func (f *fakePhysical) InsertOne(ctx context.Context, physicalDB, collection string, doc model.Document) (string, error) {
	ids, err := f.InsertMany(ctx, physicalDB, collection, []model.Document{doc})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

func (f *fakePhysical) InsertMany(ctx context.Context, physicalDB, collection string, docs []model.Document) ([]string, error) {
	ids := make([]string, len(docs))
	for i, doc := range docs {
		f.nextID++
		id := fmt.Sprintf("doc-%d", f.nextID)
		stored := doc.Clone()
		stored[model.DocumentIDField] = id
		f.data[physicalDB][collection] = append(f.data[physicalDB][collection], stored)
		ids[i] = id
	}
	return ids, nil
}

func (f *fakePhysical) UpdateOne(ctx context.Context, physicalDB, collection, documentID string, patch model.Document) error {
	for _, doc := range f.data[physicalDB][collection] {
		if id, _ := doc.ID(); id == documentID {
			for k, v := range patch {
				if k == model.DocumentIDField {
					continue
				}
				doc[k] = v
			}
			return nil
		}
	}
	return errors.NewNotFoundError("document")
}

func (f *fakePhysical) DeleteOne(ctx context.Context, physicalDB, collection, documentID string) error {
	docs := f.data[physicalDB][collection]
	for i, doc := range docs {
		if id, _ := doc.ID(); id == documentID {
			f.data[physicalDB][collection] = append(docs[:i], docs[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFoundError("document")
}

func (f *fakePhysical) BulkFieldSet(ctx context.Context, physicalDB, collection string, fields []string) (int64, error) {
	var modified int64
	for _, field := range fields {
		for _, doc := range f.data[physicalDB][collection] {
			if _, exists := doc[field]; !exists {
				doc[field] = nil
				modified++
			}
		}
	}
	return modified, nil
}

func (f *fakePhysical) BulkFieldUnset(ctx context.Context, physicalDB, collection string, fields []string) (int64, error) {
	var modified int64
	for _, field := range fields {
		for _, doc := range f.data[physicalDB][collection] {
			if _, exists := doc[field]; exists {
				delete(doc, field)
				modified++
			}
		}
	}
	return modified, nil
}

func (f *fakePhysical) EnsureIndex(ctx context.Context, physicalDB, collection, field string) error {
	f.indexes = append(f.indexes, physicalDB+"/"+collection+"/"+field)
	return nil
}

// fakeUsageStore collects accounting entries in memory.
type fakeUsageStore struct {
	entries    []*model.OperationLogEntry
	failAppend error
}

func (f *fakeUsageStore) Append(ctx context.Context, entry *model.OperationLogEntry) error {
	if f.failAppend != nil {
		return f.failAppend
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeUsageStore) Aggregate(ctx context.Context, tenantID string, op model.OperationType, resource model.ResourceType, start, end time.Time) (int64, error) {
	var total int64
	for _, e := range f.entries {
		if e.TenantID != tenantID || e.OperationType != op {
			continue
		}
		if resource != model.ResourceAny && e.ResourceType != resource {
			continue
		}
		// Half-open window: include start, exclude end.
		if e.CreatedAt.Before(start) || !e.CreatedAt.Before(end) {
			continue
		}
		total += e.Count
	}
	return total, nil
}

func (f *fakeUsageStore) sumByType(op model.OperationType, resource model.ResourceType) int64 {
	var total int64
	for _, e := range f.entries {
		if e.OperationType == op && e.ResourceType == resource {
			total += e.Count
		}
	}
	return total
}

// fakeRollupCache records rollup cache traffic.
type fakeRollupCache struct {
	store map[string]*model.UsageRollup
	sets  int
	hits  int
}

func newFakeRollupCache() *fakeRollupCache {
	return &fakeRollupCache{store: make(map[string]*model.UsageRollup)}
}

func (f *fakeRollupCache) GetRollup(ctx context.Context, key string) (*model.UsageRollup, bool, error) {
	r, ok := f.store[key]
	if ok {
		f.hits++
	}
	return r, ok, nil
}

func (f *fakeRollupCache) SetRollup(ctx context.Context, key string, rollup *model.UsageRollup, ttl time.Duration) error {
	f.sets++
	f.store[key] = rollup
	return nil
}

var (
	_ repository.Catalog       = (*fakeCatalog)(nil)
	_ repository.PhysicalStore = (*fakePhysical)(nil)
	_ repository.UsageStore    = (*fakeUsageStore)(nil)
	_ repository.RollupCache   = (*fakeRollupCache)(nil)
)
