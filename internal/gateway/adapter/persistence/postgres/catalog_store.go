package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"docbase/internal/gateway/domain/model"
	"docbase/internal/gateway/domain/repository"
	"docbase/internal/shared/errors"
	"docbase/internal/shared/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolationCode = "23505"

// CatalogStore implements repository.Catalog on PostgreSQL.
type CatalogStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewCatalogStore creates a catalog store backed by the given pool.
func NewCatalogStore(pool *pgxpool.Pool, log logger.Logger) *CatalogStore {
	return &CatalogStore{
		pool:   pool,
		logger: log.WithComponent("catalog"),
	}
}

// NewPool builds a pgx connection pool and verifies connectivity.
func NewPool(ctx context.Context, host string, port int, database, user, password string, maxConns, minConns int) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s pool_max_conns=%d pool_min_conns=%d",
		host, port, database, user, password, maxConns, minConns,
	)

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping catalog database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the catalog tables if they do not exist.
func (s *CatalogStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS logical_databases (
			id            UUID PRIMARY KEY,
			tenant_id     TEXT NOT NULL,
			physical_name TEXT NOT NULL UNIQUE,
			display_name  TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			access_count  BIGINT NOT NULL DEFAULT 0,
			UNIQUE (tenant_id, display_name)
		)`,
		`CREATE TABLE IF NOT EXISTS logical_collections (
			id              UUID PRIMARY KEY,
			database_id     UUID NOT NULL REFERENCES logical_databases(id) ON DELETE CASCADE,
			name            TEXT NOT NULL,
			declared_fields TEXT[] NOT NULL DEFAULT '{}',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (database_id, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_logical_databases_tenant
			ON logical_databases (tenant_id, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure catalog schema: %w", err)
		}
	}
	return nil
}

// CreateDatabase inserts the database row and all collection rows in one
// transaction. The coordinator calls this only after the physical collections
// exist, so the catalog never references missing physical state.
func (s *CatalogStore) CreateDatabase(ctx context.Context, tenantID string, db *model.LogicalDatabase, collections []*model.LogicalCollection) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return upstream("failed to begin catalog transaction", err)
	}
	defer tx.Rollback(ctx)

	if db.ID == "" {
		db.ID = uuid.NewString()
	}
	db.TenantID = tenantID
	if db.CreatedAt.IsZero() {
		db.CreatedAt = time.Now().UTC()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO logical_databases (id, tenant_id, physical_name, display_name, description, created_at, access_count)
		VALUES ($1, $2, $3, $4, $5, $6, 0)
	`, db.ID, tenantID, db.PhysicalName, db.DisplayName, db.Description, db.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewConflictError(
				fmt.Sprintf("database %q already exists", db.DisplayName)).WithCause(err)
		}
		return upstream("failed to insert database row", err)
	}

	for _, col := range collections {
		if col.ID == "" {
			col.ID = uuid.NewString()
		}
		col.DatabaseID = db.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO logical_collections (id, database_id, name, declared_fields)
			VALUES ($1, $2, $3, $4)
		`, col.ID, db.ID, col.Name, fieldsOrEmpty(col.DeclaredFields))
		if err != nil {
			if isUniqueViolation(err) {
				return errors.NewConflictError(
					fmt.Sprintf("collection %q already exists", col.Name)).WithCause(err)
			}
			return upstream("failed to insert collection row", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return upstream("failed to commit catalog transaction", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"tenant_id":   tenantID,
		"database_id": db.ID,
		"collections": len(collections),
	}).Info("Catalog rows created for logical database")
	return nil
}

// FindDatabase resolves a database by ID, scoped to the owning tenant.
func (s *CatalogStore) FindDatabase(ctx context.Context, tenantID, databaseID string) (*model.LogicalDatabase, error) {
	return s.findDatabase(ctx, `
		SELECT id, tenant_id, physical_name, display_name, description, created_at, access_count
		FROM logical_databases
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, databaseID)
}

// FindDatabaseByName resolves a database by its logical display name.
func (s *CatalogStore) FindDatabaseByName(ctx context.Context, tenantID, displayName string) (*model.LogicalDatabase, error) {
	return s.findDatabase(ctx, `
		SELECT id, tenant_id, physical_name, display_name, description, created_at, access_count
		FROM logical_databases
		WHERE tenant_id = $1 AND display_name = $2
	`, tenantID, displayName)
}

func (s *CatalogStore) findDatabase(ctx context.Context, query string, args ...interface{}) (*model.LogicalDatabase, error) {
	var db model.LogicalDatabase
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&db.ID, &db.TenantID, &db.PhysicalName, &db.DisplayName,
		&db.Description, &db.CreatedAt, &db.AccessCount,
	)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NewNotFoundError("database")
		}
		return nil, upstream("failed to query database row", err)
	}
	return &db, nil
}

// ListDatabases returns a page of databases ordered by creation time
// descending. The name filter matches case-insensitively against the logical
// display name only; the physical prefix never participates.
func (s *CatalogStore) ListDatabases(ctx context.Context, tenantID string, page, pageSize int, nameFilter string) (*model.DatabasePage, error) {
	pattern := "%" + nameFilter + "%"

	var total int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM logical_databases
		WHERE tenant_id = $1 AND display_name ILIKE $2
	`, tenantID, pattern).Scan(&total)
	if err != nil {
		return nil, upstream("failed to count databases", err)
	}

	offset := (page - 1) * pageSize
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, physical_name, display_name, description, created_at, access_count
		FROM logical_databases
		WHERE tenant_id = $1 AND display_name ILIKE $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, tenantID, pattern, pageSize, offset)
	if err != nil {
		return nil, upstream("failed to list databases", err)
	}
	defer rows.Close()

	items := make([]*model.LogicalDatabase, 0, pageSize)
	for rows.Next() {
		var db model.LogicalDatabase
		if err := rows.Scan(&db.ID, &db.TenantID, &db.PhysicalName, &db.DisplayName,
			&db.Description, &db.CreatedAt, &db.AccessCount); err != nil {
			return nil, upstream("failed to scan database row", err)
		}
		items = append(items, &db)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("failed to iterate database rows", err)
	}

	return &model.DatabasePage{
		Items: items,
		Pagination: model.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}, nil
}

// DeleteDatabase removes the database row; collection rows cascade.
func (s *CatalogStore) DeleteDatabase(ctx context.Context, tenantID, databaseID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM logical_databases WHERE tenant_id = $1 AND id = $2
	`, tenantID, databaseID)
	if err != nil {
		return upstream("failed to delete database row", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError("database")
	}
	return nil
}

// CreateCollection inserts one collection row for an existing database.
func (s *CatalogStore) CreateCollection(ctx context.Context, tenantID, databaseID string, collection *model.LogicalCollection) error {
	if _, err := s.FindDatabase(ctx, tenantID, databaseID); err != nil {
		return err
	}

	if collection.ID == "" {
		collection.ID = uuid.NewString()
	}
	collection.DatabaseID = databaseID

	_, err := s.pool.Exec(ctx, `
		INSERT INTO logical_collections (id, database_id, name, declared_fields)
		VALUES ($1, $2, $3, $4)
	`, collection.ID, databaseID, collection.Name, fieldsOrEmpty(collection.DeclaredFields))
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewConflictError(
				fmt.Sprintf("collection %q already exists", collection.Name)).WithCause(err)
		}
		return upstream("failed to insert collection row", err)
	}
	return nil
}

// FindCollection resolves a collection by name within a tenant's database.
func (s *CatalogStore) FindCollection(ctx context.Context, tenantID, databaseID, name string) (*model.LogicalCollection, error) {
	var col model.LogicalCollection
	err := s.pool.QueryRow(ctx, `
		SELECT c.id, c.database_id, c.name, c.declared_fields, c.created_at, c.updated_at
		FROM logical_collections c
		JOIN logical_databases d ON d.id = c.database_id
		WHERE d.tenant_id = $1 AND c.database_id = $2 AND c.name = $3
	`, tenantID, databaseID, name).Scan(
		&col.ID, &col.DatabaseID, &col.Name, &col.DeclaredFields,
		&col.CreatedAt, &col.UpdatedAt,
	)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NewNotFoundError("collection")
		}
		return nil, upstream("failed to query collection row", err)
	}
	return &col, nil
}

// ListCollections returns every collection of a tenant's database.
func (s *CatalogStore) ListCollections(ctx context.Context, tenantID, databaseID string) ([]*model.LogicalCollection, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.database_id, c.name, c.declared_fields, c.created_at, c.updated_at
		FROM logical_collections c
		JOIN logical_databases d ON d.id = c.database_id
		WHERE d.tenant_id = $1 AND c.database_id = $2
		ORDER BY c.name
	`, tenantID, databaseID)
	if err != nil {
		return nil, upstream("failed to list collections", err)
	}
	defer rows.Close()

	collections := make([]*model.LogicalCollection, 0)
	for rows.Next() {
		var col model.LogicalCollection
		if err := rows.Scan(&col.ID, &col.DatabaseID, &col.Name, &col.DeclaredFields,
			&col.CreatedAt, &col.UpdatedAt); err != nil {
			return nil, upstream("failed to scan collection row", err)
		}
		collections = append(collections, &col)
	}
	return collections, rows.Err()
}

// DeleteCollection removes one collection row.
func (s *CatalogStore) DeleteCollection(ctx context.Context, tenantID, databaseID, name string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM logical_collections c
		USING logical_databases d
		WHERE d.id = c.database_id AND d.tenant_id = $1 AND c.database_id = $2 AND c.name = $3
	`, tenantID, databaseID, name)
	if err != nil {
		return upstream("failed to delete collection row", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError("collection")
	}
	return nil
}

// UpdateCollectionFields replaces the declared field set.
func (s *CatalogStore) UpdateCollectionFields(ctx context.Context, tenantID, databaseID, name string, fields []string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE logical_collections c
		SET declared_fields = $4, updated_at = NOW()
		FROM logical_databases d
		WHERE d.id = c.database_id AND d.tenant_id = $1 AND c.database_id = $2 AND c.name = $3
	`, tenantID, databaseID, name, fieldsOrEmpty(fields))
	if err != nil {
		return upstream("failed to update declared fields", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError("collection")
	}
	return nil
}

// RenameCollection updates the catalog name of a collection.
func (s *CatalogStore) RenameCollection(ctx context.Context, tenantID, databaseID, oldName, newName string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE logical_collections c
		SET name = $4, updated_at = NOW()
		FROM logical_databases d
		WHERE d.id = c.database_id AND d.tenant_id = $1 AND c.database_id = $2 AND c.name = $3
	`, tenantID, databaseID, oldName, newName)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewConflictError(
				fmt.Sprintf("collection %q already exists", newName)).WithCause(err)
		}
		return upstream("failed to rename collection row", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError("collection")
	}
	return nil
}

// IncrementAccessCount bumps the database access counter.
func (s *CatalogStore) IncrementAccessCount(ctx context.Context, tenantID, databaseID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE logical_databases SET access_count = access_count + 1
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, databaseID)
	if err != nil {
		return upstream("failed to increment access count", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func fieldsOrEmpty(fields []string) []string {
	if fields == nil {
		return []string{}
	}
	return fields
}

func upstream(message string, cause error) *errors.AppError {
	return errors.NewUpstreamStoreError(message).WithCause(cause).WithComponent("catalog")
}

var _ repository.Catalog = (*CatalogStore)(nil)
