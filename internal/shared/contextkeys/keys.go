package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "docbase context key " + string(c)
}

// TenantIDKey is the key for the resolved tenant ID in context.Context.
const TenantIDKey = contextKey("tenantID")

// DatabaseIDKey is the key for the logical database ID in context.Context.
const DatabaseIDKey = contextKey("databaseID")

// RequestIDKey is the key for the request ID in context.Context.
const RequestIDKey = contextKey("requestID")

// ComponentKey is the key for the component name in context.Context.
const ComponentKey = contextKey("component")

// OperationKey is the key for the logical operation name in context.Context.
const OperationKey = contextKey("operation")
