package usecase

import (
	"context"
	"fmt"
	"time"

	"docbase/internal/gateway/domain/model"
	"docbase/internal/gateway/domain/repository"
	"docbase/internal/gateway/metrics"
	"docbase/internal/shared/errors"
	"docbase/internal/shared/logger"
)

// UsageLogger records one accounting entry per logical operation and serves
// aggregation queries for reporting. Logging happens before the caller's
// response is acknowledged, but a failing usage store never fails the
// triggering operation: accounting is best-effort relative to data
// correctness.
type UsageLogger struct {
	store   repository.UsageStore
	cache   repository.RollupCache
	ttl     time.Duration
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewUsageLogger creates a usage logger. cache may be nil, in which case every
// rollup is computed from the operation log.
func NewUsageLogger(store repository.UsageStore, cache repository.RollupCache, ttl time.Duration, log logger.Logger, m *metrics.Metrics) *UsageLogger {
	return &UsageLogger{
		store:   store,
		cache:   cache,
		ttl:     ttl,
		logger:  log.WithComponent("usage-logger"),
		metrics: m,
	}
}

// Log appends one accounting entry. Errors are logged and dropped.
func (u *UsageLogger) Log(ctx context.Context, tenantID string, op model.OperationType, resource model.ResourceType, resourceID string, count int64) {
	if count < 1 {
		return
	}

	entry := &model.OperationLogEntry{
		TenantID:      tenantID,
		OperationType: op,
		ResourceType:  resource,
		ResourceID:    resourceID,
		Count:         count,
		CreatedAt:     time.Now().UTC(),
	}

	if err := u.store.Append(ctx, entry); err != nil {
		if u.metrics != nil {
			u.metrics.UsageLogDropped.Inc()
		}
		u.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"tenant_id":     tenantID,
			"operation":     string(op),
			"resource_type": string(resource),
			"count":         count,
			"error":         err.Error(),
		}).Error("Dropped usage accounting entry")
	}
}

// Aggregate sums entry counts over the half-open window [start, end).
func (u *UsageLogger) Aggregate(ctx context.Context, tenantID string, op model.OperationType, resource model.ResourceType, start, end time.Time) (int64, error) {
	if !model.ValidOperationType(op) {
		return 0, errors.NewValidationError(fmt.Sprintf("unknown operation type %q", op))
	}
	if !end.After(start) {
		return 0, errors.NewValidationError("aggregation window end must be after start")
	}
	return u.store.Aggregate(ctx, tenantID, op, resource, start, end)
}

// Rollup computes the document-traffic summary for the window containing the
// reference time. Results are cached; a cache failure only costs a
// recomputation.
func (u *UsageLogger) Rollup(ctx context.Context, tenantID string, window model.RollupWindow, at time.Time) (*model.UsageRollup, error) {
	start, end, err := WindowRange(window, at)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s:%s:%s", tenantID, window, start.Format(time.RFC3339))
	if u.cache != nil {
		if cached, ok, cacheErr := u.cache.GetRollup(ctx, key); cacheErr == nil && ok {
			return cached, nil
		} else if cacheErr != nil {
			u.logger.WithFields(map[string]interface{}{"key": key, "error": cacheErr.Error()}).
				Warn("Rollup cache read failed, recomputing")
		}
	}

	added, err := u.store.Aggregate(ctx, tenantID, model.OperationWrite, model.ResourceDocument, start, end)
	if err != nil {
		return nil, err
	}
	removed, err := u.store.Aggregate(ctx, tenantID, model.OperationDelete, model.ResourceDocument, start, end)
	if err != nil {
		return nil, err
	}
	read, err := u.store.Aggregate(ctx, tenantID, model.OperationRead, model.ResourceDocument, start, end)
	if err != nil {
		return nil, err
	}

	rollup := &model.UsageRollup{
		TenantID:       tenantID,
		Window:         string(window),
		Start:          start,
		End:            end,
		RecordsAdded:   added,
		RecordsRemoved: removed,
		RecordsRead:    read,
	}

	if u.cache != nil {
		if cacheErr := u.cache.SetRollup(ctx, key, rollup, u.ttl); cacheErr != nil {
			u.logger.WithFields(map[string]interface{}{"key": key, "error": cacheErr.Error()}).
				Warn("Rollup cache write failed")
		}
	}
	return rollup, nil
}

// WindowRange returns the half-open interval [start, end) of the rollup
// window containing the reference time, in UTC. Weekly windows start on
// Monday.
func WindowRange(window model.RollupWindow, at time.Time) (time.Time, time.Time, error) {
	at = at.UTC()
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)

	switch window {
	case model.RollupDaily:
		return day, day.AddDate(0, 0, 1), nil
	case model.RollupWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	case model.RollupMonthly:
		start := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0), nil
	}
	return time.Time{}, time.Time{},
		errors.NewValidationError(fmt.Sprintf("unknown rollup window %q", window))
}
