package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrganizationPlan selects the limit tier an organization is billed under.
type OrganizationPlan string

const (
	PlanBasic        OrganizationPlan = "basic"
	PlanProfessional OrganizationPlan = "professional"
	PlanEnterprise   OrganizationPlan = "enterprise"
)

// ParseOrganizationPlan validates a plan string.
func ParseOrganizationPlan(s string) (OrganizationPlan, bool) {
	switch OrganizationPlan(s) {
	case PlanBasic, PlanProfessional, PlanEnterprise:
		return OrganizationPlan(s), true
	}
	return "", false
}

// Organization is one tenant. OrgID is the stable display identifier
// (ORG_0001) used in every cross-reference; the Mongo _id never leaves the
// store layer.
type Organization struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID    string             `bson:"org_id" json:"org_id"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Industry string             `bson:"industry,omitempty" json:"industry,omitempty"`
	Address  string             `bson:"address,omitempty" json:"address,omitempty"`
	Phone    string             `bson:"phone,omitempty" json:"phone,omitempty"`

	Plan     OrganizationPlan `bson:"plan" json:"plan"`
	MaxUsers int              `bson:"max_users" json:"max_users"`

	IsActive  bool      `bson:"is_active" json:"is_active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	CreatedBy string    `bson:"created_by,omitempty" json:"created_by,omitempty"`

	DeactivatedAt *time.Time `bson:"deactivated_at,omitempty" json:"deactivated_at,omitempty"`
	DeactivatedBy string     `bson:"deactivated_by,omitempty" json:"deactivated_by,omitempty"`
}
