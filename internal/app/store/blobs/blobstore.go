package blobstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/canvashub/canvashub/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("blobs")}
}

// Put stores a base64 image payload and returns its generated blob id.
func (s *Store) Put(ctx context.Context, orgID, kind, ownerID, contentType, data, uploadedBy string) (string, error) {
	b := models.Blob{
		ID:             primitive.NewObjectID(),
		BlobID:         uuid.NewString(),
		OrganizationID: orgID,
		Kind:           kind,
		OwnerID:        ownerID,
		ContentType:    contentType,
		Data:           data,
		UploadedBy:     uploadedBy,
		CreatedAt:      time.Now(),
	}
	if _, err := s.c.InsertOne(ctx, b); err != nil {
		return "", err
	}
	return b.BlobID, nil
}

// Get loads a blob by id.
func (s *Store) Get(ctx context.Context, blobID string) (*models.Blob, error) {
	var b models.Blob
	if err := s.c.FindOne(ctx, bson.M{"blob_id": blobID}).Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// CountByOwnerKind counts blobs of one kind for an owner, for plan image
// caps.
func (s *Store) CountByOwnerKind(ctx context.Context, kind, ownerID string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"kind": kind, "owner_id": ownerID})
}

// DeleteByOwner removes all blobs attached to an owner.
func (s *Store) DeleteByOwner(ctx context.Context, kind, ownerID string) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"kind": kind, "owner_id": ownerID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
