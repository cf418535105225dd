package domain

// Role identifies one credential envelope slot on the device.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// Valid reports whether r is a known envelope role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleManager
}

// Scope narrows which envelopes a caller is willing to accept a token from.
type Scope string

const (
	ScopeAdminOnly   Scope = "admin-only"
	ScopeManagerOnly Scope = "manager-only"
	ScopeAny         Scope = "any"
)

// Roles returns the envelopes to examine for the scope, in precedence order.
// Manager precedes admin for ScopeAny.
func (s Scope) Roles() []Role {
	switch s {
	case ScopeAdminOnly:
		return []Role{RoleAdmin}
	case ScopeManagerOnly:
		return []Role{RoleManager}
	case ScopeAny:
		return []Role{RoleManager, RoleAdmin}
	default:
		return nil
	}
}

// RoleTag classifies a roster candidate.
type RoleTag string

const (
	RoleTagEmployee RoleTag = "employee"
	RoleTagManager  RoleTag = "manager"
	RoleTagAdmin    RoleTag = "admin"
)

// Valid reports whether t is a known roster tag.
func (t RoleTag) Valid() bool {
	switch t {
	case RoleTagEmployee, RoleTagManager, RoleTagAdmin:
		return true
	default:
		return false
	}
}

// EnvelopeRole maps a roster tag to the envelope a face login would populate.
// Employees have no envelope.
func (t RoleTag) EnvelopeRole() (Role, bool) {
	switch t {
	case RoleTagAdmin:
		return RoleAdmin, true
	case RoleTagManager:
		return RoleManager, true
	default:
		return "", false
	}
}
