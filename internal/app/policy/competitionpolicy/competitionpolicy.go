// Package competitionpolicy holds the authorization rules for
// competitions.
//
// Authorization rules:
//   - create/update/cancel: super_admin, admin_manager, manager
//   - view/leaderboard: anyone in the competition's organization
//     (super_admin exempt from the org check)
//
// Cross-tenant probes get NotFound from the handlers, never
// PermissionDenied, so competition existence does not leak.
package competitionpolicy

import (
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

// CanManage reports whether the actor may create, update, or cancel
// competitions in the given organization.
func CanManage(actor *auth.Identity, orgID string) bool {
	switch actor.Role {
	case roles.SuperAdmin:
		return true
	case roles.AdminManager, roles.Manager:
		return actor.OrganizationID != "" && actor.OrganizationID == orgID
	default:
		return false
	}
}

// CanView reports whether the actor may see the competition at all.
func CanView(actor *auth.Identity, c *models.Competition) bool {
	if actor.Role == roles.SuperAdmin {
		return true
	}
	return actor.OrganizationID != "" && actor.OrganizationID == c.OrganizationID
}
