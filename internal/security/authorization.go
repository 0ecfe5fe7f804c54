package security

import (
	"fmt"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
)

// roleRank defines the single total order over roles. Every route
// declares a minimum role against this order instead of hand-enumerating
// acceptable sets, so the policy cannot drift between routes.
var roleRank = map[domain.Role]int{
	domain.RoleUser:       0,
	domain.RoleEditor:     1,
	domain.RoleManager:    2,
	domain.RoleAdmin:      3,
	domain.RoleSuperAdmin: 4,
}

// HasAtLeast reports whether role meets or exceeds min in the role
// hierarchy. Unknown roles never qualify.
func HasAtLeast(role, min domain.Role) bool {
	r, ok := roleRank[role]
	if !ok {
		return false
	}
	m, ok := roleRank[min]
	if !ok {
		return false
	}
	return r >= m
}

// HasAnyRole reports whether role is a member of the allowed set. No
// role implies another here; membership is exact.
func HasAnyRole(role domain.Role, allowed ...domain.Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// Authorize denies unless the user's role meets the minimum. The
// returned error translates to 403.
func Authorize(user *domain.User, min domain.Role) error {
	if user == nil || !HasAtLeast(user.Role, min) {
		return apperror.Forbidden("You do not have permission to perform this action")
	}
	return nil
}

// ValidateTenantAccess checks that the acting user belongs to the
// resolved tenant. Super-admins operate across tenants.
func ValidateTenantAccess(user *domain.User, tenantID string) error {
	if user == nil {
		return apperror.Unauthorized("not logged in")
	}
	if user.Role == domain.RoleSuperAdmin || tenantID == "" {
		return nil
	}
	for _, t := range user.Tenants {
		if t == tenantID {
			return nil
		}
	}
	return apperror.Forbidden(fmt.Sprintf("You do not have access to tenant %s", tenantID))
}
