package model

import "time"

// OperationType classifies an accounted operation.
type OperationType string

const (
	OperationRead   OperationType = "READ"
	OperationWrite  OperationType = "WRITE"
	OperationDelete OperationType = "DELETE"
)

// ResourceType classifies the resource an operation acted on.
type ResourceType string

const (
	ResourceDatabase   ResourceType = "DATABASE"
	ResourceCollection ResourceType = "COLLECTION"
	ResourceDocument   ResourceType = "DOCUMENT"

	// ResourceAny widens an aggregation to every resource type.
	ResourceAny ResourceType = ""
)

// OperationLogEntry is one append-only accounting record. A single entry may
// represent a batch: a bulk insert of N documents logs Count=N, not N entries.
type OperationLogEntry struct {
	ID            string        `json:"id"`
	TenantID      string        `json:"tenantId"`
	OperationType OperationType `json:"operationType"`
	ResourceType  ResourceType  `json:"resourceType"`
	ResourceID    string        `json:"resourceId"`
	Count         int64         `json:"count"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// RollupWindow selects the reporting granularity of a usage rollup.
type RollupWindow string

const (
	RollupDaily   RollupWindow = "daily"
	RollupWeekly  RollupWindow = "weekly"
	RollupMonthly RollupWindow = "monthly"
)

// UsageRollup summarizes a tenant's document traffic over a half-open time
// window [Start, End).
type UsageRollup struct {
	TenantID       string    `json:"tenantId"`
	Window         string    `json:"window"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	RecordsAdded   int64     `json:"recordsAdded"`
	RecordsRemoved int64     `json:"recordsRemoved"`
	RecordsRead    int64     `json:"recordsRead"`
}

// ValidOperationType reports whether t is a known operation type.
func ValidOperationType(t OperationType) bool {
	switch t {
	case OperationRead, OperationWrite, OperationDelete:
		return true
	}
	return false
}

// ValidResourceType reports whether t is a known resource type.
func ValidResourceType(t ResourceType) bool {
	switch t {
	case ResourceDatabase, ResourceCollection, ResourceDocument:
		return true
	}
	return false
}
