package authz

import "fmt"

// Role identifies an actor's authority class. The set is closed; permissions
// are looked up per role and per action, never by comparing ranks.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleSailor  Role = "sailor"
	RoleSupport Role = "support"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleSailor, RoleSupport}
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSailor, RoleSupport:
		return true
	}
	return false
}

// ParseRole converts a stored role name into a Role.
func ParseRole(name string) (Role, error) {
	role := Role(name)
	if !role.Valid() {
		return "", fmt.Errorf("authz: unknown role %q", name)
	}
	return role, nil
}

func (r Role) String() string {
	return string(r)
}
