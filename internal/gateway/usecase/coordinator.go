package usecase

import (
	"context"
	"fmt"
	"time"

	"docbase/internal/gateway/config"
	"docbase/internal/gateway/domain/model"
	"docbase/internal/gateway/domain/repository"
	"docbase/internal/gateway/metrics"
	"docbase/internal/shared/errors"
	"docbase/internal/shared/logger"
)

// GatewayUsecase coordinates every multi-step operation across the metadata
// catalog and the physical store. The two stores cannot be mutated in one
// transaction, so each operation follows catalog-intent, physical-effect,
// catalog-commit: an orphaned physical collection with no catalog row is
// harmless, while a catalog row pointing at missing physical state would
// actively mislead reads. That asymmetry fixes the step order of every
// operation below.
type GatewayUsecase struct {
	catalog   repository.Catalog
	physical  repository.PhysicalStore
	evolution *EvolutionEngine
	usage     *UsageLogger
	limits    config.LimitsConfig
	logger    logger.Logger
	metrics   *metrics.Metrics
}

// NewGatewayUsecase wires the coordinator. metrics may be nil in tests.
func NewGatewayUsecase(
	catalog repository.Catalog,
	physical repository.PhysicalStore,
	evolution *EvolutionEngine,
	usage *UsageLogger,
	limits config.LimitsConfig,
	log logger.Logger,
	m *metrics.Metrics,
) *GatewayUsecase {
	return &GatewayUsecase{
		catalog:   catalog,
		physical:  physical,
		evolution: evolution,
		usage:     usage,
		limits:    limits,
		logger:    log.WithComponent("coordinator"),
		metrics:   m,
	}
}

// CreateDatabase provisions a logical database plus its initial collections.
// Steps: catalog uniqueness check, physical collections (rollback-by-deletion
// on partial failure), then catalog rows in one transaction.
func (uc *GatewayUsecase) CreateDatabase(ctx context.Context, tenantID string, req CreateDatabaseRequest) (db *model.LogicalDatabase, err error) {
	defer uc.observe("create_database", string(model.ResourceDatabase), time.Now())(&err)

	name, err := model.ResolvePhysicalName(tenantID, req.DisplayName)
	if err != nil {
		return nil, err
	}
	collections, err := normalizeCollectionNames(req.Collections)
	if err != nil {
		return nil, err
	}

	// Step 1: no catalog row may exist for this logical name.
	if _, findErr := uc.catalog.FindDatabaseByName(ctx, tenantID, req.DisplayName); findErr == nil {
		return nil, errors.NewConflictError(
			fmt.Sprintf("database %q already exists", req.DisplayName))
	} else if !errors.IsNotFound(findErr) {
		return nil, findErr
	}

	// Step 2: physical collections first. A leftover physical database with
	// no catalog row is unreachable by clients and therefore harmless.
	if err := uc.physical.EnsureDatabaseExists(ctx, name.Physical()); err != nil {
		return nil, err
	}

	existing, err := uc.physical.ListCollectionNames(ctx, name.Physical())
	if err != nil {
		return nil, err
	}

	created := make([]string, 0, len(collections))
	for _, colName := range collections {
		if _, ok := existing[colName]; ok {
			// Left over from an earlier failed attempt; reuse it so retries
			// converge.
			continue
		}
		if createErr := uc.physical.CreateCollection(ctx, name.Physical(), colName); createErr != nil {
			uc.rollbackCollections(ctx, name.Physical(), created)
			return nil, createErr
		}
		created = append(created, colName)
	}

	// Step 3: catalog rows last, in one catalog transaction.
	db = &model.LogicalDatabase{
		TenantID:     tenantID,
		PhysicalName: name.Physical(),
		DisplayName:  req.DisplayName,
		Description:  req.Description,
		CreatedAt:    time.Now().UTC(),
	}
	collectionRows := make([]*model.LogicalCollection, len(collections))
	for i, colName := range collections {
		collectionRows[i] = &model.LogicalCollection{Name: colName, DeclaredFields: []string{}}
	}

	if err := uc.catalog.CreateDatabase(ctx, tenantID, db, collectionRows); err != nil {
		// The physical collections become inert orphans; a retry or a
		// concurrent winner will pick them up or reconciliation will sweep
		// them.
		return nil, err
	}

	uc.usage.Log(ctx, tenantID, model.OperationWrite, model.ResourceDatabase, db.ID, 1)
	uc.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"tenant_id":   tenantID,
		"database_id": db.ID,
		"collections": len(collections),
	}).Info("Logical database created")
	return db, nil
}

// ListDatabases pages through a tenant's logical databases.
func (uc *GatewayUsecase) ListDatabases(ctx context.Context, tenantID string, req ListDatabasesRequest) (page *model.DatabasePage, err error) {
	defer uc.observe("list_databases", string(model.ResourceDatabase), time.Now())(&err)

	pageNum, pageSize := uc.normalizePage(req.Page, req.PageSize)
	page, err = uc.catalog.ListDatabases(ctx, tenantID, pageNum, pageSize, req.NameFilter)
	if err != nil {
		return nil, err
	}

	uc.usage.Log(ctx, tenantID, model.OperationRead, model.ResourceDatabase, "", 1)
	return page, nil
}

// GetDatabase returns a database with its collections and live document
// counts.
func (uc *GatewayUsecase) GetDatabase(ctx context.Context, tenantID, databaseID string) (detail *DatabaseDetail, err error) {
	defer uc.observe("get_database", string(model.ResourceDatabase), time.Now())(&err)

	db, err := uc.catalog.FindDatabase(ctx, tenantID, databaseID)
	if err != nil {
		return nil, err
	}

	collections, err := uc.catalog.ListCollections(ctx, tenantID, databaseID)
	if err != nil {
		return nil, err
	}

	infos := make([]*model.CollectionInfo, len(collections))
	for i, col := range collections {
		count, countErr := uc.physical.CountDocuments(ctx, db.PhysicalName, col.Name, nil)
		if countErr != nil {
			return nil, countErr
		}
		infos[i] = &model.CollectionInfo{
			Name:           col.Name,
			DeclaredFields: col.DeclaredFields,
			NumDocuments:   count,
		}
	}

	uc.touchAccessCount(ctx, tenantID, databaseID)
	uc.usage.Log(ctx, tenantID, model.OperationRead, model.ResourceDatabase, databaseID, 1)
	return &DatabaseDetail{Database: db, Collections: infos}, nil
}

// DropDatabase removes a logical database. The catalog rows go first so
// clients immediately lose the mapping; the physical drop is best-effort and
// a leftover physical database is an inert orphan.
func (uc *GatewayUsecase) DropDatabase(ctx context.Context, tenantID, databaseID string) (err error) {
	defer uc.observe("drop_database", string(model.ResourceDatabase), time.Now())(&err)

	db, err := uc.catalog.FindDatabase(ctx, tenantID, databaseID)
	if err != nil {
		return err
	}

	if err := uc.catalog.DeleteDatabase(ctx, tenantID, databaseID); err != nil {
		return err
	}

	if dropErr := uc.physical.DropDatabase(ctx, db.PhysicalName); dropErr != nil {
		uc.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"tenant_id":   tenantID,
			"database_id": databaseID,
			"physical_db": db.PhysicalName,
			"error":       dropErr.Error(),
		}).Warn("Physical database left orphaned after catalog delete")
	}

	uc.usage.Log(ctx, tenantID, model.OperationDelete, model.ResourceDatabase, databaseID, 1)
	return nil
}

// CreateCollection adds one collection to an existing database. Both stores
// are checked for the name before any mutation, guarding against drift from
// external changes.
func (uc *GatewayUsecase) CreateCollection(ctx context.Context, tenantID, databaseID string, req CreateCollectionRequest) (col *model.LogicalCollection, err error) {
	defer uc.observe("create_collection", string(model.ResourceCollection), time.Now())(&err)

	if err := model.ValidateName(req.Name); err != nil {
		return nil, err
	}
	fields, err := normalizeFieldNames(req.Fields)
	if err != nil {
		return nil, err
	}

	db, err := uc.catalog.FindDatabase(ctx, tenantID, databaseID)
	if err != nil {
		return nil, err
	}

	if _, findErr := uc.catalog.FindCollection(ctx, tenantID, databaseID, req.Name); findErr == nil {
		return nil, errors.NewConflictError(fmt.Sprintf("collection %q already exists", req.Name))
	} else if !errors.IsNotFound(findErr) {
		return nil, findErr
	}

	physicalNames, err := uc.physical.ListCollectionNames(ctx, db.PhysicalName)
	if err != nil {
		return nil, err
	}
	if _, exists := physicalNames[req.Name]; exists {
		return nil, errors.NewConflictError(
			fmt.Sprintf("collection %q already exists in the physical store", req.Name))
	}

	if err := uc.physical.CreateCollection(ctx, db.PhysicalName, req.Name); err != nil {
		return nil, err
	}

	col = &model.LogicalCollection{Name: req.Name, DeclaredFields: fields}
	if catErr := uc.catalog.CreateCollection(ctx, tenantID, databaseID, col); catErr != nil {
		if errors.IsConflict(catErr) {
			// A concurrent create committed first; the physical collection
			// now belongs to the winner.
			return nil, catErr
		}
		// Undo the physical create so a retry starts clean.
		if dropErr := uc.physical.DropCollection(ctx, db.PhysicalName, req.Name); dropErr != nil {
			uc.logger.WithContext(ctx).WithFields(map[string]interface{}{
				"tenant_id":  tenantID,
				"collection": req.Name,
				"error":      dropErr.Error(),
			}).Warn("Compensating drop failed; physical collection left orphaned")
		}
		return nil, errors.NewUpstreamStoreError("catalog write failed; operation is safe to retry").
			WithCause(catErr)
	}

	uc.ensureDeclaredFieldIndexes(ctx, db.PhysicalName, req.Name, fields)
	uc.usage.Log(ctx, tenantID, model.OperationWrite, model.ResourceCollection, col.ID, 1)
	return col, nil
}

// RenameCollection renames a collection, physical store first. A completed
// physical rename has no general undo, so a catalog failure afterwards is a
// fatal inconsistency surfaced for operator reconciliation; no automatic
// reverse rename is attempted.
func (uc *GatewayUsecase) RenameCollection(ctx context.Context, tenantID, databaseID string, req RenameCollectionRequest) (err error) {
	defer uc.observe("rename_collection", string(model.ResourceCollection), time.Now())(&err)

	if err := model.ValidateName(req.NewName); err != nil {
		return err
	}
	if req.OldName == req.NewName {
		return errors.NewValidationError("new collection name must differ from the old name")
	}

	db, err := uc.catalog.FindDatabase(ctx, tenantID, databaseID)
	if err != nil {
		return err
	}
	if _, err := uc.catalog.FindCollection(ctx, tenantID, databaseID, req.OldName); err != nil {
		return err
	}
	if _, findErr := uc.catalog.FindCollection(ctx, tenantID, databaseID, req.NewName); findErr == nil {
		return errors.NewConflictError(fmt.Sprintf("collection %q already exists", req.NewName))
	} else if !errors.IsNotFound(findErr) {
		return findErr
	}

	physicalNames, err := uc.physical.ListCollectionNames(ctx, db.PhysicalName)
	if err != nil {
		return err
	}
	if _, exists := physicalNames[req.OldName]; !exists {
		return uc.reportInconsistency(ctx, tenantID, fmt.Sprintf(
			"collection %q exists in the catalog but not in the physical store", req.OldName))
	}
	if _, exists := physicalNames[req.NewName]; exists {
		return errors.NewConflictError(
			fmt.Sprintf("collection %q already exists in the physical store", req.NewName))
	}

	if err := uc.physical.RenameCollection(ctx, db.PhysicalName, req.OldName, req.NewName); err != nil {
		return err
	}

	if catErr := uc.catalog.RenameCollection(ctx, tenantID, databaseID, req.OldName, req.NewName); catErr != nil {
		return uc.reportInconsistency(ctx, tenantID, fmt.Sprintf(
			"physical collection renamed %q -> %q but the catalog update failed: %v",
			req.OldName, req.NewName, catErr))
	}

	uc.usage.Log(ctx, tenantID, model.OperationWrite, model.ResourceCollection, req.NewName, 1)
	return nil
}

// AlterCollectionFields adds and removes declared fields, propagating the
// delta to every existing document before the catalog is touched. The
// declared list is advisory metadata, so it is written last: documents stay
// valid if it fails, whereas the reverse order would declare a field no
// document has.
func (uc *GatewayUsecase) AlterCollectionFields(ctx context.Context, tenantID, databaseID string, req AlterFieldsRequest) (col *model.LogicalCollection, err error) {
	defer uc.observe("alter_fields", string(model.ResourceCollection), time.Now())(&err)

	addFields, err := normalizeFieldNames(req.AddFields)
	if err != nil {
		return nil, err
	}
	removeFields, err := normalizeFieldNames(req.RemoveFields)
	if err != nil {
		return nil, err
	}
	if len(addFields) == 0 && len(removeFields) == 0 {
		return nil, errors.NewValidationError("at least one field to add or remove is required")
	}

	db, err := uc.catalog.FindDatabase(ctx, tenantID, databaseID)
	if err != nil {
		return nil, err
	}
	col, err = uc.catalog.FindCollection(ctx, tenantID, databaseID, req.CollectionName)
	if err != nil {
		return nil, err
	}

	if err := uc.evolution.ApplyFieldDelta(ctx, db.PhysicalName, col.Name, addFields, removeFields); err != nil {
		// Documents may be mid-delta; the catalog is deliberately not
		// updated so the same request can be retried.
		return nil, err
	}

	col.DeclaredFields = mergeDeclaredFields(col.DeclaredFields, addFields, removeFields)
	if err := uc.catalog.UpdateCollectionFields(ctx, tenantID, databaseID, col.Name, col.DeclaredFields); err != nil {
		return nil, err
	}

	uc.usage.Log(ctx, tenantID, model.OperationWrite, model.ResourceCollection, col.ID, 1)
	return col, nil
}

// DropCollection removes a collection. Catalog first: once the row is gone
// the mapping is unreachable, and a leftover physical collection is inert.
func (uc *GatewayUsecase) DropCollection(ctx context.Context, tenantID, databaseID, collectionName string) (err error) {
	defer uc.observe("drop_collection", string(model.ResourceCollection), time.Now())(&err)

	db, err := uc.catalog.FindDatabase(ctx, tenantID, databaseID)
	if err != nil {
		return err
	}
	col, err := uc.catalog.FindCollection(ctx, tenantID, databaseID, collectionName)
	if err != nil {
		return err
	}

	if err := uc.catalog.DeleteCollection(ctx, tenantID, databaseID, collectionName); err != nil {
		return err
	}

	if dropErr := uc.physical.DropCollection(ctx, db.PhysicalName, collectionName); dropErr != nil {
		uc.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"tenant_id":  tenantID,
			"collection": collectionName,
			"error":      dropErr.Error(),
		}).Warn("Physical collection left orphaned after catalog delete")
	}

	uc.usage.Log(ctx, tenantID, model.OperationDelete, model.ResourceCollection, col.ID, 1)
	return nil
}

// Usage returns the reporting rollup for the requested window.
func (uc *GatewayUsecase) Usage(ctx context.Context, tenantID string, req UsageRequest) (*model.UsageRollup, error) {
	at := req.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return uc.usage.Rollup(ctx, tenantID, req.Window, at)
}

// reportInconsistency logs at highest severity, bumps the counter and returns
// the error. Inconsistencies are never auto-retried.
func (uc *GatewayUsecase) reportInconsistency(ctx context.Context, tenantID, message string) error {
	if uc.metrics != nil {
		uc.metrics.InconsistencyTotal.Inc()
	}
	uc.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"tenant_id": tenantID,
	}).Error("INCONSISTENCY requiring operator reconciliation: " + message)
	return errors.NewInconsistencyError(message).WithComponent("coordinator")
}

func (uc *GatewayUsecase) rollbackCollections(ctx context.Context, physicalDB string, created []string) {
	for _, name := range created {
		if err := uc.physical.DropCollection(ctx, physicalDB, name); err != nil {
			uc.logger.WithFields(map[string]interface{}{
				"physical_db": physicalDB,
				"collection":  name,
				"error":       err.Error(),
			}).Warn("Rollback drop failed; physical collection left orphaned")
		}
	}
}

func (uc *GatewayUsecase) ensureDeclaredFieldIndexes(ctx context.Context, physicalDB, collection string, fields []string) {
	for _, field := range fields {
		if err := uc.physical.EnsureIndex(ctx, physicalDB, collection, field); err != nil {
			uc.logger.WithFields(map[string]interface{}{
				"collection": collection,
				"field":      field,
				"error":      err.Error(),
			}).Warn("Failed to create index for declared field")
		}
	}
}

func (uc *GatewayUsecase) touchAccessCount(ctx context.Context, tenantID, databaseID string) {
	if err := uc.catalog.IncrementAccessCount(ctx, tenantID, databaseID); err != nil {
		uc.logger.WithFields(map[string]interface{}{
			"tenant_id":   tenantID,
			"database_id": databaseID,
			"error":       err.Error(),
		}).Warn("Failed to increment access count")
	}
}

func (uc *GatewayUsecase) normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = uc.limits.DefaultPageSize
	}
	if pageSize > uc.limits.MaxPageSize {
		pageSize = uc.limits.MaxPageSize
	}
	return page, pageSize
}

func (uc *GatewayUsecase) observe(operation, resource string, start time.Time) func(*error) {
	return func(errp *error) {
		if uc.metrics == nil {
			return
		}
		var err error
		if errp != nil {
			err = *errp
		}
		uc.metrics.ObserveOperation(operation, resource, err, time.Since(start).Seconds())
	}
}

func normalizeCollectionNames(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if err := model.ValidateName(name); err != nil {
			return nil, err
		}
		if _, dup := seen[name]; dup {
			return nil, errors.NewValidationError(
				fmt.Sprintf("duplicate collection name %q", name))
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

func normalizeFieldNames(fields []string) ([]string, error) {
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if err := model.ValidateName(field); err != nil {
			return nil, err
		}
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		out = append(out, field)
	}
	return out, nil
}

// mergeDeclaredFields computes (declared ∪ adds) \ removes, preserving the
// declared order and appending new adds in request order.
func mergeDeclaredFields(declared, adds, removes []string) []string {
	removed := make(map[string]struct{}, len(removes))
	for _, f := range removes {
		removed[f] = struct{}{}
	}

	out := make([]string, 0, len(declared)+len(adds))
	present := make(map[string]struct{}, len(declared)+len(adds))
	for _, f := range declared {
		if _, gone := removed[f]; gone {
			continue
		}
		out = append(out, f)
		present[f] = struct{}{}
	}
	for _, f := range adds {
		if _, gone := removed[f]; gone {
			continue
		}
		if _, dup := present[f]; dup {
			continue
		}
		out = append(out, f)
		present[f] = struct{}{}
	}
	return out
}

var _ Gateway = (*GatewayUsecase)(nil)
