// Package roles defines the closed set of user roles and the permission
// table that governs which roles an actor may create or assign.
//
// Role hierarchy (strict, non-transitive beyond one hop):
//   - super_admin: manages every role, across all organizations
//   - admin_manager: manages managers and canvassers within their organization
//   - manager: manages only canvassers assigned to them
//   - canvasser: manages nobody but themselves
package roles

import "strings"

// Role is a closed enum of user roles. Always construct via Parse or the
// exported constants; arbitrary strings are not valid roles.
type Role string

const (
	SuperAdmin   Role = "super_admin"
	AdminManager Role = "admin_manager"
	Manager      Role = "manager"
	Canvasser    Role = "canvasser"
)

// All lists every valid role, highest tier first.
var All = []Role{SuperAdmin, AdminManager, Manager, Canvasser}

// assignable maps an actor role to the set of roles it may create or assign.
// This is the single source of truth; handlers must not compare role strings
// directly.
var assignable = map[Role][]Role{
	SuperAdmin:   {SuperAdmin, AdminManager, Manager, Canvasser},
	AdminManager: {Manager, Canvasser},
	Manager:      {},
	Canvasser:    {},
}

// creatable maps an actor role to the set of roles it may create as new
// users. Managers can create canvassers (auto-assigned to themselves) even
// though they can never change an existing user's role.
var creatable = map[Role][]Role{
	SuperAdmin:   {SuperAdmin, AdminManager, Manager, Canvasser},
	AdminManager: {Manager, Canvasser},
	Manager:      {Canvasser},
	Canvasser:    {},
}

// tiers orders roles for comparisons; higher is more privileged.
var tiers = map[Role]int{
	SuperAdmin:   4,
	AdminManager: 3,
	Manager:      2,
	Canvasser:    1,
}

// Parse normalizes and validates a role string.
func Parse(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	_, ok := tiers[r]
	return r, ok
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := tiers[r]
	return ok
}

// Tier returns the privilege tier of r (0 for unknown roles).
func (r Role) Tier() int {
	return tiers[r]
}

// AdminTier reports whether r is super_admin or admin_manager. Admin-tier
// creators produce leads that are already approved.
func (r Role) AdminTier() bool {
	return r == SuperAdmin || r == AdminManager
}

// CanApproveLeads reports whether r may approve, reject, or star leads.
func (r Role) CanApproveLeads() bool {
	return r == SuperAdmin || r == AdminManager || r == Manager
}

// CanAssign reports whether an actor may change an existing user's role to
// target. Managers and canvassers may never change any role field,
// including their own.
func CanAssign(actor, target Role) bool {
	for _, t := range assignable[actor] {
		if t == target {
			return true
		}
	}
	return false
}

// CanCreate reports whether an actor may create a new user with the target
// role.
func CanCreate(actor, target Role) bool {
	for _, t := range creatable[actor] {
		if t == target {
			return true
		}
	}
	return false
}

// AssignableBy returns the roles the actor may assign, for error messages
// and participant pickers.
func AssignableBy(actor Role) []Role {
	out := make([]Role, len(assignable[actor]))
	copy(out, assignable[actor])
	return out
}

// CreatableBy returns the roles the actor may create new users with.
func CreatableBy(actor Role) []Role {
	out := make([]Role, len(creatable[actor]))
	copy(out, creatable[actor])
	return out
}
