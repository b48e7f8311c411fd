package trackstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/canvashub/canvashub/internal/domain/geo"
	"github.com/canvashub/canvashub/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("live_tracking")}
}

// ActiveForSession returns the tracking document for a work session,
// creating it on first fix.
func (s *Store) ActiveForSession(ctx context.Context, username, orgID, sessionID string, at time.Time) (*models.LiveTracking, error) {
	var t models.LiveTracking
	err := s.c.FindOne(ctx, bson.M{"username": username, "session_id": sessionID}).Decode(&t)
	if err == nil {
		return &t, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}
	t = models.LiveTracking{
		ID:              primitive.NewObjectID(),
		Username:        username,
		OrganizationID:  orgID,
		SessionID:       sessionID,
		CurrentActivity: models.ActivityUnknown,
		IsActive:        true,
		StartedAt:       at,
		UpdatedAt:       at,
	}
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return nil, err
	}
	return &t, nil
}

// AppendPoint adds a GPS fix, deriving the segment from the previous fix
// and reclassifying the current activity. Returns the updated document.
func (s *Store) AppendPoint(ctx context.Context, t *models.LiveTracking, p models.PathPoint) (*models.LiveTracking, error) {
	update := bson.M{
		"$push": bson.M{"path": p},
		"$set":  bson.M{"updated_at": p.Timestamp},
	}

	if n := len(t.Path); n > 0 {
		seg := geo.Segment(t.Path[n-1], p)
		update["$push"] = bson.M{"path": p, "segments": seg}
		update["$inc"] = bson.M{"total_distance_meters": seg.DistanceMeters}

		activity := seg.Activity
		if geo.IsStationary(append(t.Path[max(0, n-2):n:n], p)) {
			activity = models.ActivityStationary
		}
		update["$set"] = bson.M{"updated_at": p.Timestamp, "current_activity": activity}
	}

	var after models.LiveTracking
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": t.ID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&after)
	if err != nil {
		return nil, err
	}
	return &after, nil
}

// Close marks a tracking document finished when its work session ends.
func (s *Store) Close(ctx context.Context, username, sessionID string, at time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"username": username, "session_id": sessionID, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": at}},
	)
	return err
}

// ActiveByOrg lists the live paths of everyone currently tracked in an
// organization.
func (s *Store) ActiveByOrg(ctx context.Context, orgID string) ([]models.LiveTracking, error) {
	cur, err := s.c.Find(ctx, bson.M{"organization_id": orgID, "is_active": true})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.LiveTracking
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ForUser returns a user's tracking documents within a window, newest
// first.
func (s *Store) ForUser(ctx context.Context, username string, from, to time.Time) ([]models.LiveTracking, error) {
	filter := bson.M{
		"username":   username,
		"started_at": bson.M{"$gte": from, "$lte": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.LiveTracking
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
