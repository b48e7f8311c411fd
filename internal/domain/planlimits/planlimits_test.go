package planlimits_test

import (
	"testing"

	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/planlimits"
)

func TestForPlan(t *testing.T) {
	basic := planlimits.ForPlan(models.PlanBasic)
	if basic.MaxUsers != 10 {
		t.Errorf("basic max_users: got %d, want 10", basic.MaxUsers)
	}
	ent := planlimits.ForPlan(models.PlanEnterprise)
	if ent.MaxUsers != planlimits.Unlimited {
		t.Errorf("enterprise max_users: got %d, want unlimited", ent.MaxUsers)
	}
	if got := planlimits.ForPlan("bogus"); got.MaxUsers != basic.MaxUsers {
		t.Error("unknown plan should fall back to basic limits")
	}
}

func TestAllows(t *testing.T) {
	tests := []struct {
		limit, current int
		want           bool
	}{
		{10, 9, true},
		{10, 10, false},
		{10, 11, false},
		{planlimits.Unlimited, 100000, true},
		{0, 0, false},
	}
	for _, tc := range tests {
		if got := planlimits.Allows(tc.limit, tc.current); got != tc.want {
			t.Errorf("Allows(%d, %d): got %v, want %v", tc.limit, tc.current, got, tc.want)
		}
	}
}

func TestHasFeature(t *testing.T) {
	if planlimits.ForPlan(models.PlanBasic).HasFeature("competitions") {
		t.Error("basic plan should not include competitions")
	}
	if !planlimits.ForPlan(models.PlanProfessional).HasFeature("competitions") {
		t.Error("professional plan should include competitions")
	}
	if !planlimits.ForPlan(models.PlanEnterprise).HasFeature("live_tracking") {
		t.Error("enterprise plan should include live_tracking")
	}
}
