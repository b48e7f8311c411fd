// Package planlimits maps organization plans to their resource ceilings.
// Limits are checked at creation time only; existing resources are never
// reaped when a plan shrinks.
package planlimits

import "github.com/canvashub/canvashub/internal/domain/models"

// Unlimited marks a limit with no ceiling.
const Unlimited = -1

// Limits is the ceiling set for one plan tier.
type Limits struct {
	MaxUsers         int      `json:"max_users"`
	MaxProjects      int      `json:"max_projects"`
	MaxProjectImages int      `json:"max_project_images"`
	MaxNewsImages    int      `json:"max_news_images"`
	Features         []string `json:"features"`
}

var plans = map[models.OrganizationPlan]Limits{
	models.PlanBasic: {
		MaxUsers:         10,
		MaxProjects:      20,
		MaxProjectImages: 5,
		MaxNewsImages:    3,
		Features:         []string{"leads", "time_tracking", "news"},
	},
	models.PlanProfessional: {
		MaxUsers:         50,
		MaxProjects:      100,
		MaxProjectImages: 10,
		MaxNewsImages:    5,
		Features:         []string{"leads", "time_tracking", "news", "competitions", "rewards", "projects"},
	},
	models.PlanEnterprise: {
		MaxUsers:         Unlimited,
		MaxProjects:      Unlimited,
		MaxProjectImages: 20,
		MaxNewsImages:    10,
		Features:         []string{"leads", "time_tracking", "news", "competitions", "rewards", "projects", "live_tracking", "analytics"},
	},
}

// ForPlan returns the limits for a plan, defaulting unknown plans to
// basic.
func ForPlan(p models.OrganizationPlan) Limits {
	if l, ok := plans[p]; ok {
		return l
	}
	return plans[models.PlanBasic]
}

// Allows reports whether a count-based limit permits one more item given
// the current count.
func Allows(limit, current int) bool {
	return limit == Unlimited || current < limit
}

// HasFeature reports whether the plan includes the named feature.
func (l Limits) HasFeature(name string) bool {
	for _, f := range l.Features {
		if f == name {
			return true
		}
	}
	return false
}
