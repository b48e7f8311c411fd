package competitionpolicy_test

import (
	"testing"

	"github.com/canvashub/canvashub/internal/app/policy/competitionpolicy"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

func TestCanManage(t *testing.T) {
	tests := []struct {
		name  string
		actor auth.Identity
		org   string
		want  bool
	}{
		{"super_admin anywhere", auth.Identity{Role: roles.SuperAdmin}, "ORG_0002", true},
		{"admin_manager own org", auth.Identity{Role: roles.AdminManager, OrganizationID: "ORG_0001"}, "ORG_0001", true},
		{"admin_manager other org", auth.Identity{Role: roles.AdminManager, OrganizationID: "ORG_0001"}, "ORG_0002", false},
		{"manager own org", auth.Identity{Role: roles.Manager, OrganizationID: "ORG_0001"}, "ORG_0001", true},
		{"canvasser never", auth.Identity{Role: roles.Canvasser, OrganizationID: "ORG_0001"}, "ORG_0001", false},
	}
	for _, tc := range tests {
		if got := competitionpolicy.CanManage(&tc.actor, tc.org); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCanView(t *testing.T) {
	c := &models.Competition{OrganizationID: "ORG_0001"}
	if !competitionpolicy.CanView(&auth.Identity{Role: roles.Canvasser, OrganizationID: "ORG_0001"}, c) {
		t.Error("org member should view")
	}
	if competitionpolicy.CanView(&auth.Identity{Role: roles.Canvasser, OrganizationID: "ORG_0002"}, c) {
		t.Error("other org must not view")
	}
	if !competitionpolicy.CanView(&auth.Identity{Role: roles.SuperAdmin}, c) {
		t.Error("super_admin views everything")
	}
}
