package repository

import (
	"context"
	"time"

	"docbase/internal/gateway/domain/model"
)

// UsageStore persists append-only operation accounting records.
type UsageStore interface {
	// Append stores one entry. Entries are never mutated afterwards.
	Append(ctx context.Context, entry *model.OperationLogEntry) error

	// Aggregate sums entry counts over the half-open window [start, end) for
	// the tenant and operation type. resourceType narrows the sum when set to
	// a concrete type; model.ResourceAny matches every resource type.
	Aggregate(ctx context.Context, tenantID string, op model.OperationType, resource model.ResourceType, start, end time.Time) (int64, error)
}

// RollupCache caches computed usage rollups. Rollups are reporting data, not
// correctness data, so short TTLs and cache misses are both acceptable.
type RollupCache interface {
	GetRollup(ctx context.Context, key string) (*model.UsageRollup, bool, error)
	SetRollup(ctx context.Context, key string, rollup *model.UsageRollup, ttl time.Duration) error
}
