package mongodb

import (
	"context"

	"docbase/internal/gateway/domain/model"
	"docbase/internal/shared/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CountDocuments counts documents matching the equality filter. Computed at
// request time on every call, since other tenants mutate the store
// concurrently.
func (g *StoreGateway) CountDocuments(ctx context.Context, physicalDB, collection string, filter model.Filter) (int64, error) {
	col := g.client.Database(physicalDB).Collection(collection)
	count, err := col.CountDocuments(ctx, filterToBson(filter))
	if err != nil {
		return 0, storeErr("failed to count documents", err)
	}
	return count, nil
}

// Find returns a window of documents matching the equality filter, ordered by
// primary key for stable pagination.
func (g *StoreGateway) Find(ctx context.Context, physicalDB, collection string, filter model.Filter, skip, limit int64) ([]model.Document, error) {
	col := g.client.Database(physicalDB).Collection(collection)

	opts := options.Find().
		SetSkip(skip).
		SetLimit(limit).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cur, err := col.Find(ctx, filterToBson(filter), opts)
	if err != nil {
		return nil, storeErr("failed to query documents", err)
	}
	defer cur.Close(ctx)

	docs := make([]model.Document, 0)
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, storeErr("failed to decode document", err)
		}
		docs = append(docs, fromBson(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, storeErr("failed to iterate documents", err)
	}
	return docs, nil
}

// InsertOne stores one document and returns the store-assigned primary key.
func (g *StoreGateway) InsertOne(ctx context.Context, physicalDB, collection string, doc model.Document) (string, error) {
	col := g.client.Database(physicalDB).Collection(collection)

	body := toBson(doc)
	id := primitive.NewObjectID()
	body["_id"] = id

	if _, err := col.InsertOne(ctx, body); err != nil {
		return "", storeErr("failed to insert document", err)
	}
	return id.Hex(), nil
}

// InsertMany stores a batch of documents and returns their primary keys in
// input order.
func (g *StoreGateway) InsertMany(ctx context.Context, physicalDB, collection string, docs []model.Document) ([]string, error) {
	if len(docs) == 0 {
		return []string{}, nil
	}
	col := g.client.Database(physicalDB).Collection(collection)

	bodies := make([]interface{}, len(docs))
	ids := make([]string, len(docs))
	for i, doc := range docs {
		body := toBson(doc)
		id := primitive.NewObjectID()
		body["_id"] = id
		bodies[i] = body
		ids[i] = id.Hex()
	}

	if _, err := col.InsertMany(ctx, bodies); err != nil {
		return nil, storeErr("failed to insert documents", err)
	}
	return ids, nil
}

// UpdateOne applies a field patch to one document by primary key.
func (g *StoreGateway) UpdateOne(ctx context.Context, physicalDB, collection, documentID string, patch model.Document) error {
	oid, err := parseDocumentID(documentID)
	if err != nil {
		return err
	}

	set := toBson(patch)
	delete(set, "_id")
	if len(set) == 0 {
		return errors.NewValidationError("patch must contain at least one field")
	}

	col := g.client.Database(physicalDB).Collection(collection)
	result, err := col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return storeErr("failed to update document", err)
	}
	if result.MatchedCount == 0 {
		return errors.NewNotFoundError("document")
	}
	return nil
}

// DeleteOne removes one document by primary key.
func (g *StoreGateway) DeleteOne(ctx context.Context, physicalDB, collection, documentID string) error {
	oid, err := parseDocumentID(documentID)
	if err != nil {
		return err
	}

	col := g.client.Database(physicalDB).Collection(collection)
	result, err := col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return storeErr("failed to delete document", err)
	}
	if result.DeletedCount == 0 {
		return errors.NewNotFoundError("document")
	}
	return nil
}

// BulkFieldSet sets each field to null on every document where it is absent.
// The $exists guard makes re-running the same delta a document-level no-op.
func (g *StoreGateway) BulkFieldSet(ctx context.Context, physicalDB, collection string, fields []string) (int64, error) {
	col := g.client.Database(physicalDB).Collection(collection)

	var modified int64
	for _, field := range fields {
		result, err := col.UpdateMany(ctx,
			bson.M{field: bson.M{"$exists": false}},
			bson.M{"$set": bson.M{field: nil}},
		)
		if err != nil {
			return modified, storeErr("failed to propagate field addition", err)
		}
		modified += result.ModifiedCount
	}
	return modified, nil
}

// BulkFieldUnset removes each field from every document that carries it.
func (g *StoreGateway) BulkFieldUnset(ctx context.Context, physicalDB, collection string, fields []string) (int64, error) {
	col := g.client.Database(physicalDB).Collection(collection)

	var modified int64
	for _, field := range fields {
		result, err := col.UpdateMany(ctx,
			bson.M{field: bson.M{"$exists": true}},
			bson.M{"$unset": bson.M{field: ""}},
		)
		if err != nil {
			return modified, storeErr("failed to propagate field removal", err)
		}
		modified += result.ModifiedCount
	}
	return modified, nil
}

func parseDocumentID(documentID string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(documentID)
	if err != nil {
		return primitive.NilObjectID,
			errors.NewValidationError("invalid document ID").WithCause(err)
	}
	return oid, nil
}

func toBson(doc model.Document) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func fromBson(raw bson.M) model.Document {
	doc := make(model.Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			if oid, ok := v.(primitive.ObjectID); ok {
				doc[k] = oid.Hex()
				continue
			}
		}
		doc[k] = v
	}
	return doc
}

func filterToBson(filter model.Filter) bson.M {
	out := bson.M{}
	for k, v := range filter {
		out[k] = v
	}
	return out
}
