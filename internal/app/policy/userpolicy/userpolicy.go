// Package userpolicy holds the authorization rules for user management.
//
// Authorization rules:
//   - super_admin: view and manage every user in every organization
//   - admin_manager: view and manage users within their own organization
//   - manager: view themselves and the canvassers assigned to them
//   - canvasser: view and edit only themselves
//
// Role changes follow a separate table (roles.CanAssign): actors assign
// strictly below their own tier, super_admin excepted; managers and
// canvassers never change roles.
package userpolicy

import (
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

// ListScope describes which users the actor may list.
type ListScope struct {
	CanList bool
	// AllOrgs is true for super_admin only.
	AllOrgs bool
	// OrgID restricts listing to one organization.
	OrgID string
	// ManagerOnly restricts listing to the actor plus canvassers whose
	// manager_id equals the actor's username.
	ManagerOnly bool
}

// ListUsers determines the listing scope for the actor.
func ListUsers(actor *auth.Identity) ListScope {
	switch actor.Role {
	case roles.SuperAdmin:
		return ListScope{CanList: true, AllOrgs: true}
	case roles.AdminManager:
		if actor.OrganizationID == "" {
			return ListScope{}
		}
		return ListScope{CanList: true, OrgID: actor.OrganizationID}
	case roles.Manager:
		return ListScope{CanList: true, OrgID: actor.OrganizationID, ManagerOnly: true}
	default:
		return ListScope{}
	}
}

// CanView reports whether the actor may view the target user.
func CanView(actor *auth.Identity, target *models.User) bool {
	if actor.Username == target.Username {
		return true
	}
	switch actor.Role {
	case roles.SuperAdmin:
		return true
	case roles.AdminManager:
		return actor.OrganizationID != "" && actor.OrganizationID == target.OrganizationID
	case roles.Manager:
		return target.Role == roles.Canvasser &&
			target.ManagerID == actor.Username &&
			actor.OrganizationID == target.OrganizationID
	default:
		return false
	}
}

// CanManage reports whether the actor may modify the target user
// (profile edits, deactivate, reset password). Self-service password and
// profile changes are always allowed; role and org changes are gated
// separately.
func CanManage(actor *auth.Identity, target *models.User) bool {
	if actor.Username == target.Username {
		return true
	}
	switch actor.Role {
	case roles.SuperAdmin:
		return true
	case roles.AdminManager:
		return actor.OrganizationID != "" &&
			actor.OrganizationID == target.OrganizationID &&
			target.Role != roles.SuperAdmin
	case roles.Manager:
		return target.Role == roles.Canvasser &&
			target.ManagerID == actor.Username &&
			actor.OrganizationID == target.OrganizationID
	default:
		return false
	}
}

// CanCreate reports whether the actor may create a user with the given
// role in the given organization.
func CanCreate(actor *auth.Identity, newRole roles.Role, orgID string) bool {
	if !roles.CanCreate(actor.Role, newRole) {
		return false
	}
	if actor.Role == roles.SuperAdmin {
		return true
	}
	// Everyone below super_admin creates only inside their own org.
	return actor.OrganizationID != "" && actor.OrganizationID == orgID
}

// CanChangeRole reports whether the actor may set the target user's role
// to newRole.
func CanChangeRole(actor *auth.Identity, target *models.User, newRole roles.Role) bool {
	if !roles.CanAssign(actor.Role, newRole) {
		return false
	}
	// The target must also be within reach: an admin_manager cannot
	// retarget a super_admin or a user from another org.
	if actor.Role == roles.SuperAdmin {
		return true
	}
	return roles.CanAssign(actor.Role, target.Role) &&
		actor.OrganizationID != "" &&
		actor.OrganizationID == target.OrganizationID
}

// CanEditPoints reports whether the actor may manually adjust the target
// user's point balance.
func CanEditPoints(actor *auth.Identity, target *models.User) bool {
	switch actor.Role {
	case roles.SuperAdmin:
		return true
	case roles.AdminManager:
		return actor.OrganizationID != "" && actor.OrganizationID == target.OrganizationID
	default:
		return false
	}
}

// CanHardDelete reports whether the actor may permanently remove the
// target user. Hard deletes anonymize the user's leads rather than
// cascading.
func CanHardDelete(actor *auth.Identity, target *models.User) bool {
	if actor.Username == target.Username {
		return false
	}
	switch actor.Role {
	case roles.SuperAdmin:
		return true
	case roles.AdminManager:
		return actor.OrganizationID != "" &&
			actor.OrganizationID == target.OrganizationID &&
			target.Role != roles.SuperAdmin
	default:
		return false
	}
}
