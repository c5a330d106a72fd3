package usecase

import (
	"context"
	"time"

	"docbase/internal/gateway/domain/model"
	"docbase/internal/shared/errors"
)

// QueryDocuments pages through a collection. The total is computed at request
// time, never cached, since other tenants mutate the store concurrently. One
// aggregate usage entry is logged per page rather than per document.
func (uc *GatewayUsecase) QueryDocuments(ctx context.Context, tenantID, databaseID, collectionName string, req QueryRequest) (page *model.DocumentPage, err error) {
	defer uc.observe("query_documents", string(model.ResourceDocument), time.Now())(&err)

	filter, err := model.ParseFilter(req.FilterJSON)
	if err != nil {
		return nil, err
	}

	db, col, err := uc.resolveCollection(ctx, tenantID, databaseID, collectionName)
	if err != nil {
		return nil, err
	}

	pageNum, pageSize := uc.normalizePage(req.Page, req.PageSize)
	skip := int64(pageNum-1) * int64(pageSize)

	total, err := uc.physical.CountDocuments(ctx, db.PhysicalName, col.Name, filter)
	if err != nil {
		return nil, err
	}
	docs, err := uc.physical.Find(ctx, db.PhysicalName, col.Name, filter, skip, int64(pageSize))
	if err != nil {
		return nil, err
	}

	uc.touchAccessCount(ctx, tenantID, databaseID)
	uc.usage.Log(ctx, tenantID, model.OperationRead, model.ResourceDocument, col.ID, int64(len(docs)))

	return &model.DocumentPage{
		Data: docs,
		Pagination: model.Pagination{
			Page:     pageNum,
			PageSize: pageSize,
			Total:    total,
		},
	}, nil
}

// InsertDocuments stores one or more documents. A batch of N logs a single
// accounting entry with count N.
func (uc *GatewayUsecase) InsertDocuments(ctx context.Context, tenantID, databaseID, collectionName string, docs []model.Document) (ids []string, err error) {
	defer uc.observe("insert_documents", string(model.ResourceDocument), time.Now())(&err)

	if len(docs) == 0 {
		return nil, errors.NewValidationError("at least one document is required")
	}

	db, col, err := uc.resolveCollection(ctx, tenantID, databaseID, collectionName)
	if err != nil {
		return nil, err
	}

	ids, err = uc.physical.InsertMany(ctx, db.PhysicalName, col.Name, docs)
	if err != nil {
		return nil, err
	}

	uc.usage.Log(ctx, tenantID, model.OperationWrite, model.ResourceDocument, col.ID, int64(len(ids)))
	return ids, nil
}

// UpdateDocument applies a field patch to one document.
func (uc *GatewayUsecase) UpdateDocument(ctx context.Context, tenantID, databaseID, collectionName, documentID string, patch model.Document) (err error) {
	defer uc.observe("update_document", string(model.ResourceDocument), time.Now())(&err)

	db, _, err := uc.resolveCollection(ctx, tenantID, databaseID, collectionName)
	if err != nil {
		return err
	}

	if err := uc.physical.UpdateOne(ctx, db.PhysicalName, collectionName, documentID, patch); err != nil {
		return err
	}

	uc.usage.Log(ctx, tenantID, model.OperationWrite, model.ResourceDocument, documentID, 1)
	return nil
}

// DeleteDocument removes one document.
func (uc *GatewayUsecase) DeleteDocument(ctx context.Context, tenantID, databaseID, collectionName, documentID string) (err error) {
	defer uc.observe("delete_document", string(model.ResourceDocument), time.Now())(&err)

	db, _, err := uc.resolveCollection(ctx, tenantID, databaseID, collectionName)
	if err != nil {
		return err
	}

	if err := uc.physical.DeleteOne(ctx, db.PhysicalName, collectionName, documentID); err != nil {
		return err
	}

	uc.usage.Log(ctx, tenantID, model.OperationDelete, model.ResourceDocument, documentID, 1)
	return nil
}

// resolveCollection performs the tenant-ownership check against the catalog
// and resolves the logical collection. Ownership is never inferred from the
// physical store.
func (uc *GatewayUsecase) resolveCollection(ctx context.Context, tenantID, databaseID, collectionName string) (*model.LogicalDatabase, *model.LogicalCollection, error) {
	db, err := uc.catalog.FindDatabase(ctx, tenantID, databaseID)
	if err != nil {
		return nil, nil, err
	}
	col, err := uc.catalog.FindCollection(ctx, tenantID, databaseID, collectionName)
	if err != nil {
		return nil, nil, err
	}
	return db, col, nil
}
