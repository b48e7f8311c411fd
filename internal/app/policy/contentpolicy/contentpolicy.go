// Package contentpolicy holds the authorization rules for the shared
// content surfaces: news posts, portfolio projects, and rewards.
//
// Authorization rules:
//   - news: create/update/delete by super_admin, admin_manager, manager;
//     pin/unpin by admin tier only; read by anyone in the org
//   - projects: create/update/delete by admin tier; read org-wide
//   - rewards: catalog management by admin tier; redemption by any active
//     user in the org; redemption status updates by admin tier
package contentpolicy

import (
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

// CanManageNews reports whether the actor may create, update, or delete
// news posts in the given organization.
func CanManageNews(actor *auth.Identity, orgID string) bool {
	switch actor.Role {
	case roles.SuperAdmin:
		return true
	case roles.AdminManager, roles.Manager:
		return actor.OrganizationID != "" && actor.OrganizationID == orgID
	default:
		return false
	}
}

// CanPinNews reports whether the actor may pin or unpin a post. Managers
// may post but not pin.
func CanPinNews(actor *auth.Identity, orgID string) bool {
	switch actor.Role {
	case roles.SuperAdmin:
		return true
	case roles.AdminManager:
		return actor.OrganizationID != "" && actor.OrganizationID == orgID
	default:
		return false
	}
}

// CanManageProjects reports whether the actor may modify the portfolio.
func CanManageProjects(actor *auth.Identity, orgID string) bool {
	switch actor.Role {
	case roles.SuperAdmin:
		return true
	case roles.AdminManager:
		return actor.OrganizationID != "" && actor.OrganizationID == orgID
	default:
		return false
	}
}

// CanManageRewards reports whether the actor may edit the reward catalog
// or update redemption statuses.
func CanManageRewards(actor *auth.Identity, orgID string) bool {
	return CanManageProjects(actor, orgID)
}

// CanViewOrgContent reports whether the actor may read org-scoped content
// (news, projects, rewards) for the given organization.
func CanViewOrgContent(actor *auth.Identity, orgID string) bool {
	if actor.Role == roles.SuperAdmin {
		return true
	}
	return actor.OrganizationID != "" && actor.OrganizationID == orgID
}
