package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project is a completed-work portfolio entry shown to prospects in the
// field. Image payloads live in the blobs collection; the project carries
// only their ids so listings stay small.
type Project struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID      string             `bson:"project_id" json:"project_id"`
	OrganizationID string             `bson:"organization_id" json:"organization_id"`

	Title          string     `bson:"title" json:"title"`
	Category       string     `bson:"category,omitempty" json:"category,omitempty"`
	Description    string     `bson:"description,omitempty" json:"description,omitempty"`
	ImageIDs       []string   `bson:"image_ids,omitempty" json:"image_ids,omitempty"`
	CompletionDate *time.Time `bson:"completion_date,omitempty" json:"completion_date,omitempty"`
	Location       string     `bson:"location,omitempty" json:"location,omitempty"`
	IsFeatured     bool       `bson:"is_featured" json:"is_featured"`

	IsActive  bool      `bson:"is_active" json:"is_active"`
	CreatedBy string    `bson:"created_by" json:"created_by"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
