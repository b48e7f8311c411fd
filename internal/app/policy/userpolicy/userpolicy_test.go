package userpolicy_test

import (
	"testing"

	"github.com/canvashub/canvashub/internal/app/policy/userpolicy"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

func ident(username string, role roles.Role, org string) *auth.Identity {
	return &auth.Identity{Username: username, Role: role, OrganizationID: org}
}

func user(username string, role roles.Role, org, manager string) *models.User {
	return &models.User{Username: username, Role: role, OrganizationID: org, ManagerID: manager, IsActive: true}
}

func TestListUsers(t *testing.T) {
	if s := userpolicy.ListUsers(ident("root", roles.SuperAdmin, "")); !s.CanList || !s.AllOrgs {
		t.Errorf("super_admin scope: %+v", s)
	}
	if s := userpolicy.ListUsers(ident("admin1", roles.AdminManager, "ORG_0001")); !s.CanList || s.AllOrgs || s.OrgID != "ORG_0001" {
		t.Errorf("admin_manager scope: %+v", s)
	}
	if s := userpolicy.ListUsers(ident("msmith", roles.Manager, "ORG_0001")); !s.CanList || !s.ManagerOnly {
		t.Errorf("manager scope: %+v", s)
	}
	if s := userpolicy.ListUsers(ident("jdoe", roles.Canvasser, "ORG_0001")); s.CanList {
		t.Errorf("canvasser scope: %+v", s)
	}
}

func TestCanView(t *testing.T) {
	jdoe := user("jdoe", roles.Canvasser, "ORG_0001", "msmith")
	other := user("other", roles.Canvasser, "ORG_0001", "someone")
	foreign := user("far", roles.Canvasser, "ORG_0002", "x")

	tests := []struct {
		name   string
		actor  *auth.Identity
		target *models.User
		want   bool
	}{
		{"self always", ident("jdoe", roles.Canvasser, "ORG_0001"), jdoe, true},
		{"canvasser cannot view peer", ident("jdoe", roles.Canvasser, "ORG_0001"), other, false},
		{"manager views own canvasser", ident("msmith", roles.Manager, "ORG_0001"), jdoe, true},
		{"manager cannot view unassigned canvasser", ident("msmith", roles.Manager, "ORG_0001"), other, false},
		{"admin_manager views own org", ident("admin1", roles.AdminManager, "ORG_0001"), other, true},
		{"admin_manager cannot cross orgs", ident("admin1", roles.AdminManager, "ORG_0001"), foreign, false},
		{"super_admin views anyone", ident("root", roles.SuperAdmin, ""), foreign, true},
	}
	for _, tc := range tests {
		if got := userpolicy.CanView(tc.actor, tc.target); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCanManage(t *testing.T) {
	superUser := user("root2", roles.SuperAdmin, "", "")
	if userpolicy.CanManage(ident("admin1", roles.AdminManager, "ORG_0001"), superUser) {
		t.Error("admin_manager must not manage a super_admin")
	}
	if !userpolicy.CanManage(ident("msmith", roles.Manager, "ORG_0001"), user("jdoe", roles.Canvasser, "ORG_0001", "msmith")) {
		t.Error("manager should manage own canvasser")
	}
	if userpolicy.CanManage(ident("msmith", roles.Manager, "ORG_0001"), user("peer", roles.Manager, "ORG_0001", "")) {
		t.Error("manager must not manage another manager")
	}
}

func TestCanCreate(t *testing.T) {
	tests := []struct {
		name    string
		actor   *auth.Identity
		newRole roles.Role
		org     string
		want    bool
	}{
		{"super_admin any org any role", ident("root", roles.SuperAdmin, ""), roles.AdminManager, "ORG_0002", true},
		{"admin_manager manager own org", ident("admin1", roles.AdminManager, "ORG_0001"), roles.Manager, "ORG_0001", true},
		{"admin_manager cannot create admin_manager", ident("admin1", roles.AdminManager, "ORG_0001"), roles.AdminManager, "ORG_0001", false},
		{"admin_manager cannot cross orgs", ident("admin1", roles.AdminManager, "ORG_0001"), roles.Canvasser, "ORG_0002", false},
		{"manager creates canvasser", ident("msmith", roles.Manager, "ORG_0001"), roles.Canvasser, "ORG_0001", true},
		{"manager cannot create manager", ident("msmith", roles.Manager, "ORG_0001"), roles.Manager, "ORG_0001", false},
		{"canvasser creates nobody", ident("jdoe", roles.Canvasser, "ORG_0001"), roles.Canvasser, "ORG_0001", false},
	}
	for _, tc := range tests {
		if got := userpolicy.CanCreate(tc.actor, tc.newRole, tc.org); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCanChangeRole(t *testing.T) {
	target := user("jdoe", roles.Canvasser, "ORG_0001", "msmith")

	if !userpolicy.CanChangeRole(ident("admin1", roles.AdminManager, "ORG_0001"), target, roles.Manager) {
		t.Error("admin_manager should promote canvasser to manager in own org")
	}
	if userpolicy.CanChangeRole(ident("admin1", roles.AdminManager, "ORG_0001"), target, roles.AdminManager) {
		t.Error("admin_manager must not assign admin_manager")
	}
	if userpolicy.CanChangeRole(ident("admin1", roles.AdminManager, "ORG_0002"), target, roles.Manager) {
		t.Error("admin_manager must not change roles across orgs")
	}
	if userpolicy.CanChangeRole(ident("msmith", roles.Manager, "ORG_0001"), target, roles.Canvasser) {
		t.Error("manager must never change roles")
	}
	if !userpolicy.CanChangeRole(ident("root", roles.SuperAdmin, ""), user("a", roles.AdminManager, "ORG_0002", ""), roles.SuperAdmin) {
		t.Error("super_admin may assign any role anywhere")
	}
}

func TestCanEditPoints(t *testing.T) {
	target := user("jdoe", roles.Canvasser, "ORG_0001", "msmith")
	if !userpolicy.CanEditPoints(ident("admin1", roles.AdminManager, "ORG_0001"), target) {
		t.Error("admin_manager edits points in own org")
	}
	if userpolicy.CanEditPoints(ident("msmith", roles.Manager, "ORG_0001"), target) {
		t.Error("manager must not edit points")
	}
}

func TestCanHardDelete(t *testing.T) {
	if userpolicy.CanHardDelete(ident("root", roles.SuperAdmin, ""), user("root", roles.SuperAdmin, "", "")) {
		t.Error("nobody hard-deletes themselves")
	}
	if !userpolicy.CanHardDelete(ident("root", roles.SuperAdmin, ""), user("jdoe", roles.Canvasser, "ORG_0001", "m")) {
		t.Error("super_admin hard-deletes any other user")
	}
	if userpolicy.CanHardDelete(ident("admin1", roles.AdminManager, "ORG_0001"), user("root", roles.SuperAdmin, "", "")) {
		t.Error("admin_manager must not hard-delete a super_admin")
	}
}
