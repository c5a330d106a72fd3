package postgres

import (
	"context"
	"fmt"
	"time"

	"docbase/internal/gateway/domain/model"
	"docbase/internal/gateway/domain/repository"
	"docbase/internal/shared/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageStore persists operation accounting entries in the catalog database.
// Entries are append-only and aggregated with half-open time windows.
type UsageStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewUsageStore creates a usage store backed by the given pool.
func NewUsageStore(pool *pgxpool.Pool, log logger.Logger) *UsageStore {
	return &UsageStore{
		pool:   pool,
		logger: log.WithComponent("usage-store"),
	}
}

// EnsureSchema creates the operation log table if it does not exist.
func (s *UsageStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS operation_log (
			id             UUID PRIMARY KEY,
			tenant_id      TEXT NOT NULL,
			operation_type TEXT NOT NULL,
			resource_type  TEXT NOT NULL,
			resource_id    TEXT NOT NULL,
			count          BIGINT NOT NULL CHECK (count >= 1),
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operation_log_window
			ON operation_log (tenant_id, operation_type, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure operation log schema: %w", err)
		}
	}
	return nil
}

// Append stores one accounting entry.
func (s *UsageStore) Append(ctx context.Context, entry *model.OperationLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO operation_log (id, tenant_id, operation_type, resource_type, resource_id, count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.TenantID, string(entry.OperationType), string(entry.ResourceType),
		entry.ResourceID, entry.Count, entry.CreatedAt)
	if err != nil {
		return upstream("failed to append operation log entry", err)
	}
	return nil
}

// Aggregate sums counts over the half-open window [start, end). The
// `created_at < end` bound is what keeps adjacent windows from double-counting
// an entry logged exactly at a boundary.
func (s *UsageStore) Aggregate(ctx context.Context, tenantID string, op model.OperationType, resource model.ResourceType, start, end time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(count), 0) FROM operation_log
		WHERE tenant_id = $1 AND operation_type = $2
		  AND created_at >= $3 AND created_at < $4
	`
	args := []interface{}{tenantID, string(op), start, end}

	if resource != model.ResourceAny {
		query += ` AND resource_type = $5`
		args = append(args, string(resource))
	}

	var total int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, upstream("failed to aggregate operation log", err)
	}
	return total, nil
}

var _ repository.UsageStore = (*UsageStore)(nil)
