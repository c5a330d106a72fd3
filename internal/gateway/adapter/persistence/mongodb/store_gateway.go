package mongodb

import (
	"context"
	"fmt"
	"time"

	"docbase/internal/gateway/domain/repository"
	"docbase/internal/shared/errors"
	"docbase/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// metadataCollection marks a physical database as existing. MongoDB only
// materializes a database once it holds a collection.
const metadataCollection = "_metadata"

// namespaceExistsCode is MongoDB's command error for creating an existing
// collection.
const namespaceExistsCode = 48

// StoreGateway implements repository.PhysicalStore against MongoDB. Each call
// borrows a connection from the driver pool for its own duration only.
type StoreGateway struct {
	client *mongo.Client
	logger logger.Logger
}

// NewStoreGateway creates a gateway around an established client.
func NewStoreGateway(client *mongo.Client, log logger.Logger) *StoreGateway {
	return &StoreGateway{
		client: client,
		logger: log.WithComponent("physical-store"),
	}
}

// Connect establishes and pings a MongoDB client.
func Connect(ctx context.Context, uri string, maxPoolSize, minPoolSize uint64, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(maxPoolSize).
		SetMinPoolSize(minPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping document store: %w", err)
	}
	return client, nil
}

// EnsureDatabaseExists materializes the physical database by upserting a
// marker document. Idempotent, so create retries are safe.
func (g *StoreGateway) EnsureDatabaseExists(ctx context.Context, physicalDB string) error {
	col := g.client.Database(physicalDB).Collection(metadataCollection)

	_, err := col.UpdateOne(ctx,
		bson.M{"_id": "meta"},
		bson.M{"$setOnInsert": bson.M{"created_at": time.Now().UTC(), "version": "1.0"}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return storeErr("failed to initialize physical database", err)
	}
	return nil
}

// DropDatabase drops the physical database and everything in it.
func (g *StoreGateway) DropDatabase(ctx context.Context, physicalDB string) error {
	if err := g.client.Database(physicalDB).Drop(ctx); err != nil {
		return storeErr("failed to drop physical database", err)
	}
	g.logger.WithFields(map[string]interface{}{"physical_db": physicalDB}).
		Info("Dropped physical database")
	return nil
}

// CreateCollection creates a physical collection. Creating a collection that
// already exists is a conflict; the coordinator relies on this to detect
// drift.
func (g *StoreGateway) CreateCollection(ctx context.Context, physicalDB, name string) error {
	err := g.client.Database(physicalDB).CreateCollection(ctx, name)
	if err != nil {
		if cmdErr, ok := err.(mongo.CommandError); ok && cmdErr.Code == namespaceExistsCode {
			return errors.NewConflictError(
				fmt.Sprintf("physical collection %q already exists", name)).WithCause(err)
		}
		return storeErr("failed to create physical collection", err)
	}
	return nil
}

// DropCollection drops a physical collection. Dropping a missing collection
// is a no-op.
func (g *StoreGateway) DropCollection(ctx context.Context, physicalDB, name string) error {
	if err := g.client.Database(physicalDB).Collection(name).Drop(ctx); err != nil {
		return storeErr("failed to drop physical collection", err)
	}
	return nil
}

// RenameCollection renames a collection in place via the admin command. There
// is no undo for a completed rename.
func (g *StoreGateway) RenameCollection(ctx context.Context, physicalDB, oldName, newName string) error {
	cmd := bson.D{
		{Key: "renameCollection", Value: physicalDB + "." + oldName},
		{Key: "to", Value: physicalDB + "." + newName},
	}
	if err := g.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return storeErr("failed to rename physical collection", err)
	}
	return nil
}

// ListCollectionNames returns the user-visible collection names as a set. The
// internal metadata marker is excluded.
func (g *StoreGateway) ListCollectionNames(ctx context.Context, physicalDB string) (map[string]struct{}, error) {
	names, err := g.client.Database(physicalDB).ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, storeErr("failed to list physical collections", err)
	}

	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == metadataCollection {
			continue
		}
		set[name] = struct{}{}
	}
	return set, nil
}

// EnsureIndex creates an ascending single-field index. CreateOne is
// idempotent for identical index specs.
func (g *StoreGateway) EnsureIndex(ctx context.Context, physicalDB, collection, field string) error {
	col := g.client.Database(physicalDB).Collection(collection)
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: field, Value: 1}},
	})
	if err != nil {
		return storeErr("failed to ensure index", err)
	}
	return nil
}

func storeErr(message string, cause error) *errors.AppError {
	return errors.NewUpstreamStoreError(message).WithCause(cause).WithComponent("physical-store")
}

var _ repository.PhysicalStore = (*StoreGateway)(nil)
