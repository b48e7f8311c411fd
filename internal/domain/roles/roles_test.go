package roles_test

import (
	"testing"

	"github.com/canvashub/canvashub/internal/domain/roles"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in    string
		want  roles.Role
		valid bool
	}{
		{"super_admin", roles.SuperAdmin, true},
		{"ADMIN_MANAGER", roles.AdminManager, true},
		{"  manager ", roles.Manager, true},
		{"canvasser", roles.Canvasser, true},
		{"supervisor", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := roles.Parse(tc.in)
		if ok != tc.valid {
			t.Errorf("Parse(%q) valid: got %v, want %v", tc.in, ok, tc.valid)
		}
		if ok && got != tc.want {
			t.Errorf("Parse(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanAssign(t *testing.T) {
	tests := []struct {
		actor  roles.Role
		target roles.Role
		want   bool
	}{
		// super_admin may assign any tier, including its own
		{roles.SuperAdmin, roles.SuperAdmin, true},
		{roles.SuperAdmin, roles.AdminManager, true},
		{roles.SuperAdmin, roles.Manager, true},
		{roles.SuperAdmin, roles.Canvasser, true},

		// admin_manager may only assign strictly below its tier
		{roles.AdminManager, roles.SuperAdmin, false},
		{roles.AdminManager, roles.AdminManager, false},
		{roles.AdminManager, roles.Manager, true},
		{roles.AdminManager, roles.Canvasser, true},

		// managers and canvassers may never change roles
		{roles.Manager, roles.Canvasser, false},
		{roles.Manager, roles.Manager, false},
		{roles.Canvasser, roles.Canvasser, false},
	}
	for _, tc := range tests {
		if got := roles.CanAssign(tc.actor, tc.target); got != tc.want {
			t.Errorf("CanAssign(%s, %s): got %v, want %v", tc.actor, tc.target, got, tc.want)
		}
	}
}

func TestCanCreate_ManagerCreatesCanvasserOnly(t *testing.T) {
	if !roles.CanCreate(roles.Manager, roles.Canvasser) {
		t.Error("manager should be able to create canvassers")
	}
	if roles.CanCreate(roles.Manager, roles.Manager) {
		t.Error("manager must not create other managers")
	}
	if roles.CanCreate(roles.Canvasser, roles.Canvasser) {
		t.Error("canvasser must not create users")
	}
}

func TestTierOrdering(t *testing.T) {
	order := []roles.Role{roles.Canvasser, roles.Manager, roles.AdminManager, roles.SuperAdmin}
	for i := 1; i < len(order); i++ {
		if order[i].Tier() <= order[i-1].Tier() {
			t.Errorf("tier of %s should exceed tier of %s", order[i], order[i-1])
		}
	}
	if roles.Role("intruder").Tier() != 0 {
		t.Error("unknown role should have tier 0")
	}
}
