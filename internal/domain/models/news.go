package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// News priority values, highest first in listings.
const (
	NewsPriorityUrgent = "urgent"
	NewsPriorityHigh   = "high"
	NewsPriorityNormal = "normal"
	NewsPriorityLow    = "low"
)

// News is an org-scoped broadcast post. Content is sanitized before
// storage; posts expire after a fixed window (24/48/72 hours) and pinned
// posts sort first until they expire.
type News struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	NewsID         string             `bson:"news_id" json:"news_id"`
	OrganizationID string             `bson:"organization_id" json:"organization_id"`

	Title       string   `bson:"title" json:"title"`
	Content     string   `bson:"content" json:"content"`
	Priority    string   `bson:"priority" json:"priority"`
	TargetRoles []string `bson:"target_roles,omitempty" json:"target_roles,omitempty"`
	ImageIDs    []string `bson:"image_ids,omitempty" json:"image_ids,omitempty"`

	IsPinned  bool      `bson:"is_pinned" json:"is_pinned"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`

	CreatedBy string    `bson:"created_by" json:"created_by"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Expired reports whether the post is past its expiration at the given
// instant.
func (n News) Expired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}

// NewsRead records that a user has read a post. One document per
// (news_id, username).
type NewsRead struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	NewsID   string             `bson:"news_id" json:"news_id"`
	Username string             `bson:"username" json:"username"`
	ReadAt   time.Time          `bson:"read_at" json:"read_at"`
}
