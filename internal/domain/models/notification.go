package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types emitted by the dispatcher.
const (
	NotifLeadApproved    = "lead_approved"
	NotifLeadRejected    = "lead_rejected"
	NotifLeadSold        = "lead_sold"
	NotifLeadSuperstar   = "lead_superstar"
	NotifCompetitionWon  = "competition_won"
	NotifNewsPosted      = "news_posted"
	NotifRewardRedeemed  = "reward_redeemed"
	NotifRedemptionState = "redemption_status"
)

// Notification is a per-recipient-group message. Delivery is
// fire-and-forget: insert failures are logged and never block the
// triggering operation.
type Notification struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	NotificationID string             `bson:"notification_id" json:"notification_id"`
	OrganizationID string             `bson:"organization_id,omitempty" json:"organization_id,omitempty"`

	Title      string            `bson:"title" json:"title"`
	Message    string            `bson:"message" json:"message"`
	Type       string            `bson:"type" json:"type"`
	Priority   string            `bson:"priority,omitempty" json:"priority,omitempty"`
	Recipients []string          `bson:"recipient_usernames" json:"recipient_usernames"`
	Data       map[string]string `bson:"data,omitempty" json:"data,omitempty"`

	// ReadBy maps username to read time; absence means unread.
	ReadBy map[string]time.Time `bson:"read_by,omitempty" json:"read_by,omitempty"`

	ExpiresAt *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
}

// ReadByUser reports whether the named user has marked the notification
// read.
func (n Notification) ReadByUser(username string) bool {
	_, ok := n.ReadBy[username]
	return ok
}
