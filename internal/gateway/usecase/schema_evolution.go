package usecase

import (
	"context"

	"docbase/internal/gateway/domain/repository"
	"docbase/internal/shared/logger"
)

// EvolutionEngine propagates declared-field changes to every existing
// document in a physical collection.
type EvolutionEngine struct {
	physical repository.PhysicalStore
	logger   logger.Logger
}

// NewEvolutionEngine creates a schema evolution engine.
func NewEvolutionEngine(physical repository.PhysicalStore, log logger.Logger) *EvolutionEngine {
	return &EvolutionEngine{
		physical: physical,
		logger:   log.WithComponent("schema-evolution"),
	}
}

// ApplyFieldDelta propagates a field delta across all existing documents.
// Adds run before removes: a field named in both lists ends up added then
// removed, never removed and re-added empty. Both directions are idempotent
// at the document level, so a failed run can simply be retried with the same
// delta; nothing is rolled back here and the caller must not update the
// catalog after a failure.
//
// The bulk updates hold no exclusive lock on the collection. Documents
// written concurrently may or may not see the new field; last write wins at
// the document level.
func (e *EvolutionEngine) ApplyFieldDelta(ctx context.Context, physicalDB, collection string, addFields, removeFields []string) error {
	if len(addFields) > 0 {
		modified, err := e.physical.BulkFieldSet(ctx, physicalDB, collection, addFields)
		if err != nil {
			e.logger.WithContext(ctx).WithFields(map[string]interface{}{
				"collection": collection,
				"fields":     addFields,
				"modified":   modified,
				"error":      err.Error(),
			}).Error("Field addition stopped mid-propagation; retry with the same delta")
			return err
		}
		e.logger.WithFields(map[string]interface{}{
			"collection": collection,
			"fields":     addFields,
			"modified":   modified,
		}).Info("Propagated field additions")
	}

	if len(removeFields) > 0 {
		modified, err := e.physical.BulkFieldUnset(ctx, physicalDB, collection, removeFields)
		if err != nil {
			e.logger.WithContext(ctx).WithFields(map[string]interface{}{
				"collection": collection,
				"fields":     removeFields,
				"modified":   modified,
				"error":      err.Error(),
			}).Error("Field removal stopped mid-propagation; retry with the same delta")
			return err
		}
		e.logger.WithFields(map[string]interface{}{
			"collection": collection,
			"fields":     removeFields,
			"modified":   modified,
		}).Info("Propagated field removals")
	}

	return nil
}
