package model

import "time"

// LogicalDatabase is a tenant-owned logical database. The physical name is
// derived once at creation time and immutable afterwards; the catalog row is
// the only record of the mapping.
type LogicalDatabase struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId"`
	PhysicalName string    `json:"-"`
	DisplayName  string    `json:"displayName"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	AccessCount  int64     `json:"accessCount"`
}

// LogicalCollection is a named collection inside a logical database. Declared
// fields are advisory: they describe the shape a collection is expected to
// have, and are never enforced on write.
type LogicalCollection struct {
	ID             string    `json:"id"`
	DatabaseID     string    `json:"databaseId"`
	Name           string    `json:"name"`
	DeclaredFields []string  `json:"fields"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CollectionInfo pairs a collection with its live document count, computed at
// read time against the physical store.
type CollectionInfo struct {
	Name           string   `json:"name"`
	DeclaredFields []string `json:"fields"`
	NumDocuments   int64    `json:"numDocuments"`
}

// Pagination describes a page of results; Total is the full result-set size
// so clients can compute the page count.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

// DatabasePage is a page of logical databases ordered by creation time
// descending.
type DatabasePage struct {
	Items      []*LogicalDatabase `json:"items"`
	Pagination Pagination         `json:"pagination"`
}

// HasDeclaredField reports whether the collection declares the given field.
func (c *LogicalCollection) HasDeclaredField(field string) bool {
	for _, f := range c.DeclaredFields {
		if f == field {
			return true
		}
	}
	return false
}
