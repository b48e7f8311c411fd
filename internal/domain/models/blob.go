package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Blob kinds, one per owning feature.
const (
	BlobLeadPhoto    = "lead_photo"
	BlobProjectImage = "project_image"
	BlobNewsImage    = "news_image"
	BlobRewardImage  = "reward_image"
)

// Blob stores one base64 image payload out of line from its owning
// document. BlobID is a UUID handed back to clients.
type Blob struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BlobID         string             `bson:"blob_id" json:"blob_id"`
	OrganizationID string             `bson:"organization_id" json:"organization_id"`
	Kind           string             `bson:"kind" json:"kind"`
	OwnerID        string             `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	ContentType    string             `bson:"content_type,omitempty" json:"content_type,omitempty"`
	Data           string             `bson:"data" json:"data"` // base64 payload
	UploadedBy     string             `bson:"uploaded_by" json:"uploaded_by"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
