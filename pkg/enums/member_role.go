package enums

import (
	"fmt"
	"strings"
)

// MemberRole identifies what an authenticated user is allowed to do.
type MemberRole string

const (
	MemberRoleCustomer MemberRole = "customer"
	MemberRoleVendor   MemberRole = "vendor"
	MemberRoleAdmin    MemberRole = "admin"
)

// IsValid reports whether the role is one of the known values.
func (r MemberRole) IsValid() bool {
	switch r {
	case MemberRoleCustomer, MemberRoleVendor, MemberRoleAdmin:
		return true
	default:
		return false
	}
}

// ParseMemberRole normalizes and validates a raw role string.
func ParseMemberRole(raw string) (MemberRole, error) {
	role := MemberRole(strings.ToLower(strings.TrimSpace(raw)))
	if !role.IsValid() {
		return "", fmt.Errorf("unknown member role %q", raw)
	}
	return role, nil
}
