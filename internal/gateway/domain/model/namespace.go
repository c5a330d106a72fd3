package model

import (
	"fmt"
	"strings"

	"docbase/internal/shared/errors"
)

// MaxNameLength bounds logical database, collection and field names.
const MaxNameLength = 120

// TenantScopedName is the physical namespace for a logical resource. It can
// only be constructed through ResolvePhysicalName, so no code path can build
// a physical name ad hoc.
type TenantScopedName struct {
	tenantID    string
	logicalName string
	physical    string
}

// ResolvePhysicalName derives the physical store name for a tenant's logical
// name. The mapping is a deterministic pure function of its inputs and is
// injective across tenants: the tenant ID prefix guarantees two tenants never
// collide on a physical name.
func ResolvePhysicalName(tenantID, logicalName string) (TenantScopedName, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return TenantScopedName{}, err
	}
	if err := ValidateName(logicalName); err != nil {
		return TenantScopedName{}, err
	}
	return TenantScopedName{
		tenantID:    tenantID,
		logicalName: logicalName,
		physical:    tenantID + "_" + strings.ToLower(logicalName),
	}, nil
}

// TenantID returns the owning tenant.
func (n TenantScopedName) TenantID() string { return n.tenantID }

// LogicalName returns the tenant-facing name.
func (n TenantScopedName) LogicalName() string { return n.logicalName }

// Physical returns the derived physical store name.
func (n TenantScopedName) Physical() string { return n.physical }

// IsZero reports whether the name was never resolved.
func (n TenantScopedName) IsZero() bool { return n.physical == "" }

// ValidateName checks a logical database, collection or field name against the
// physical store's naming rules: 1-120 characters from [A-Za-z0-9_-], no
// leading '.' and no '$' anywhere ('.' and '$' are path/operator separators in
// the physical store).
func ValidateName(name string) error {
	if name == "" {
		return errors.NewValidationError("name must not be empty")
	}
	if len(name) > MaxNameLength {
		return errors.NewValidationError(
			fmt.Sprintf("name exceeds maximum length of %d characters", MaxNameLength))
	}
	for _, r := range name {
		if !isNameRune(r) {
			return errors.NewValidationError(
				fmt.Sprintf("name contains forbidden character %q", r)).
				WithDetail("name", name)
		}
	}
	return nil
}

// ValidateTenantID checks a tenant identifier. Tenant IDs come from the
// upstream auth layer. Underscores are rejected: '_' is the physical-name
// separator, and keeping it out of the tenant prefix is what makes the
// tenantID + "_" + name derivation injective across tenants.
func ValidateTenantID(tenantID string) error {
	if tenantID == "" {
		return errors.NewValidationError("tenant ID must not be empty")
	}
	if len(tenantID) > MaxNameLength {
		return errors.NewValidationError(
			fmt.Sprintf("tenant ID exceeds maximum length of %d characters", MaxNameLength))
	}
	for _, r := range tenantID {
		if isNameRune(r) && r != '_' {
			continue
		}
		return errors.NewValidationError(
			fmt.Sprintf("tenant ID contains forbidden character %q", r))
	}
	return nil
}

func isNameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '_' || r == '-'
}
