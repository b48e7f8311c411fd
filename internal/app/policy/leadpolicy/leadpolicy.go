// Package leadpolicy holds the authorization rules for lead access.
//
// Authorization rules:
//   - super_admin: every lead in every organization
//   - admin_manager: leads within their own organization
//   - manager: leads in their org created by canvassers assigned to them
//     (the creator's manager_id is looked up fresh on every check, so a
//     reassigned canvasser's leads move with them)
//   - canvasser: only leads they created
package leadpolicy

import (
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

// ListScope describes which leads the actor may list.
type ListScope struct {
	CanList bool
	AllOrgs bool
	OrgID   string
	// CreatorOnly restricts to leads created by the actor.
	CreatorOnly bool
	// TeamOf restricts to leads whose creator reports to this manager
	// username. The handler expands it to a creator list at query time.
	TeamOf string
}

// ListLeads determines the listing scope for the actor.
func ListLeads(actor *auth.Identity) ListScope {
	switch actor.Role {
	case roles.SuperAdmin:
		return ListScope{CanList: true, AllOrgs: true}
	case roles.AdminManager:
		if actor.OrganizationID == "" {
			return ListScope{}
		}
		return ListScope{CanList: true, OrgID: actor.OrganizationID}
	case roles.Manager:
		return ListScope{CanList: true, OrgID: actor.OrganizationID, TeamOf: actor.Username}
	case roles.Canvasser:
		return ListScope{CanList: true, OrgID: actor.OrganizationID, CreatorOnly: true}
	default:
		return ListScope{}
	}
}

// CanAccess reports whether the actor may view or act on the lead.
// creatorManagerID is the lead creator's current manager_id, fetched by
// the caller at check time; it is ignored for non-manager actors. The
// lead's own assigned_manager snapshot is deliberately not consulted.
func CanAccess(actor *auth.Identity, lead *models.Lead, creatorManagerID string) bool {
	switch actor.Role {
	case roles.SuperAdmin:
		return true
	case roles.AdminManager:
		return actor.OrganizationID != "" && actor.OrganizationID == lead.OrganizationID
	case roles.Manager:
		if actor.OrganizationID != lead.OrganizationID {
			return false
		}
		if lead.CreatedBy == actor.Username {
			return true
		}
		return creatorManagerID == actor.Username
	case roles.Canvasser:
		return lead.CreatedBy == actor.Username
	default:
		return false
	}
}

// CanApprove reports whether the actor may approve or reject the lead.
// Canvassers never approve, not even their own leads.
func CanApprove(actor *auth.Identity, lead *models.Lead, creatorManagerID string) bool {
	if !actor.Role.CanApproveLeads() {
		return false
	}
	return CanAccess(actor, lead, creatorManagerID)
}

// CanMarkSuperstar reports whether the actor may flag the lead as a
// superstar. Same tier as approval.
func CanMarkSuperstar(actor *auth.Identity, lead *models.Lead, creatorManagerID string) bool {
	return CanApprove(actor, lead, creatorManagerID)
}
