package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is the closed set of capability tiers. The zero value is not a valid role.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleStudent
	RoleInstructor
	RoleDepartmentHead
	RoleAdmin
	RoleSuperAdmin
)

// AllRoles lists every valid role in rank order.
var AllRoles = []Role{RoleStudent, RoleInstructor, RoleDepartmentHead, RoleAdmin, RoleSuperAdmin}

// ParseRole converts the stored/claimed tag into a Role.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "student":
		return RoleStudent, nil
	case "instructor":
		return RoleInstructor, nil
	case "department_head":
		return RoleDepartmentHead, nil
	case "admin":
		return RoleAdmin, nil
	case "super_admin":
		return RoleSuperAdmin, nil
	default:
		return RoleUnknown, fmt.Errorf("unknown role %q", raw)
	}
}

// String returns the wire tag of the role.
func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleInstructor:
		return "instructor"
	case RoleDepartmentHead:
		return "department_head"
	case RoleAdmin:
		return "admin"
	case RoleSuperAdmin:
		return "super_admin"
	case RoleUnknown:
		return "unknown"
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// Valid reports whether r is one of the five roles.
func (r Role) Valid() bool {
	return r >= RoleStudent && r <= RoleSuperAdmin
}

// Rank is the display order of the role (student=1 … super_admin=5). It is not
// consulted by any authorization decision.
func (r Role) Rank() int {
	if !r.Valid() {
		return 0
	}
	return int(r)
}

// IsStaff is true for every role except student.
func (r Role) IsStaff() bool {
	return r.Valid() && r != RoleStudent
}

// In reports whether r is one of roles.
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}

// MarshalText encodes the role as its tag for JSON and JWT claims.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role tag.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Scan implements sql.Scanner for the users.role column.
func (r *Role) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	case nil:
		return fmt.Errorf("role is null")
	default:
		return fmt.Errorf("unsupported role type %T", src)
	}
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot store invalid role %d", uint8(r))
	}
	return r.String(), nil
}
