package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reward statuses.
const (
	RewardActive   = "active"
	RewardInactive = "inactive"
)

// Redemption statuses.
const (
	RedemptionPending   = "pending"
	RedemptionApproved  = "approved"
	RedemptionShipped   = "shipped"
	RedemptionDelivered = "delivered"
	RedemptionCancelled = "cancelled"
)

// Reward is one item in an organization's point store. A nil StockQuantity
// means unlimited stock.
type Reward struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RewardID       string             `bson:"reward_id" json:"reward_id"`
	OrganizationID string             `bson:"organization_id" json:"organization_id"`

	Name           string   `bson:"name" json:"name"`
	Description    string   `bson:"description,omitempty" json:"description,omitempty"`
	Category       string   `bson:"category,omitempty" json:"category,omitempty"`
	PointsRequired int      `bson:"points_required" json:"points_required"`
	StockQuantity  *int     `bson:"stock_quantity,omitempty" json:"stock_quantity,omitempty"`
	ImageIDs       []string `bson:"image_ids,omitempty" json:"image_ids,omitempty"`
	Status         string   `bson:"status" json:"status"`
	IsFeatured     bool     `bson:"is_featured" json:"is_featured"`

	CreatedBy string    `bson:"created_by" json:"created_by"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// InStock reports whether at least one unit can be redeemed.
func (r Reward) InStock() bool {
	return r.StockQuantity == nil || *r.StockQuantity > 0
}

// Redemption is a user's claim on a reward. Points are deducted when the
// redemption is created and refunded if it is later cancelled.
type Redemption struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RedemptionID   string             `bson:"redemption_id" json:"redemption_id"`
	OrganizationID string             `bson:"organization_id" json:"organization_id"`

	RewardID    string `bson:"reward_id" json:"reward_id"`
	RewardName  string `bson:"reward_name" json:"reward_name"`
	Username    string `bson:"username" json:"username"`
	PointsSpent int    `bson:"points_spent" json:"points_spent"`
	Status      string `bson:"status" json:"status"`
	Notes       string `bson:"notes,omitempty" json:"notes,omitempty"`

	StatusUpdatedBy string     `bson:"status_updated_by,omitempty" json:"status_updated_by,omitempty"`
	StatusUpdatedAt *time.Time `bson:"status_updated_at,omitempty" json:"status_updated_at,omitempty"`
	CreatedAt       time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at" json:"updated_at"`
}
