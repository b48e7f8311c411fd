package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/canvashub/canvashub/internal/domain/roles"
)

// User represents every account tier: super admins, admin managers,
// managers, and canvassers.
//
// NOTE:
//   - ManagerID is set only for canvassers and must reference a user with
//     role=manager in the same organization.
//   - Points mutations always pair an atomic $inc with exactly one
//     PointsEntry appended to PointsHistory.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username       string             `bson:"username" json:"username"`
	Password       string             `bson:"password" json:"-"` // bcrypt hash
	Email          string             `bson:"email" json:"email"`
	Role           roles.Role         `bson:"role" json:"role"`
	OrganizationID string             `bson:"organization_id,omitempty" json:"organization_id,omitempty"`
	ManagerID      string             `bson:"manager_id,omitempty" json:"manager_id,omitempty"`
	FirstName      string             `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName       string             `bson:"last_name,omitempty" json:"last_name,omitempty"`
	Phone          string             `bson:"phone,omitempty" json:"phone,omitempty"`
	IsActive       bool               `bson:"is_active" json:"is_active"`
	TermsAccepted  bool               `bson:"terms_accepted" json:"terms_accepted"`

	Points        int           `bson:"points" json:"points"`
	PointsHistory []PointsEntry `bson:"points_history,omitempty" json:"points_history,omitempty"`

	LastActivity *time.Time `bson:"last_activity,omitempty" json:"last_activity,omitempty"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
	CreatedBy    string     `bson:"created_by,omitempty" json:"created_by,omitempty"`

	DeactivatedAt      *time.Time `bson:"deactivated_at,omitempty" json:"deactivated_at,omitempty"`
	DeactivatedBy      string     `bson:"deactivated_by,omitempty" json:"deactivated_by,omitempty"`
	DeactivationReason string     `bson:"deactivation_reason,omitempty" json:"deactivation_reason,omitempty"`
}

// FullName returns the display name, falling back to the username when no
// first/last name is recorded.
func (u User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

// PointsEntry is one line in a user's append-only points ledger.
type PointsEntry struct {
	Action    string    `bson:"action" json:"action"` // add | deduct | refund | update
	Points    int       `bson:"points" json:"points"` // signed delta
	OldValue  int       `bson:"old_value" json:"old_value"`
	NewValue  int       `bson:"new_value" json:"new_value"`
	Reason    string    `bson:"reason" json:"reason"`
	Actor     string    `bson:"actor,omitempty" json:"actor,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}
