package authz

import "github.com/spec-kit/support-desk/internal/domain"

// HasPermission reports whether the role's static capability set contains the
// permission. Pure lookup; no state, no I/O.
func HasPermission(role domain.Role, permission Permission) bool {
	for _, grant := range roleGrants[role] {
		if grant == permission {
			return true
		}
	}
	return false
}

// HasAll reports whether the role holds every listed permission.
func HasAll(role domain.Role, permissions ...Permission) bool {
	for _, permission := range permissions {
		if !HasPermission(role, permission) {
			return false
		}
	}
	return true
}

// HasAny reports whether the role holds at least one listed permission.
func HasAny(role domain.Role, permissions ...Permission) bool {
	for _, permission := range permissions {
		if HasPermission(role, permission) {
			return true
		}
	}
	return false
}

// Grants returns a copy of the role's capability set.
func Grants(role domain.Role) []Permission {
	grants := roleGrants[role]
	out := make([]Permission, len(grants))
	copy(out, grants)
	return out
}
