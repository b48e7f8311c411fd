package rewardstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/canvashub/canvashub/internal/domain/models"
)

// CreateRedemption records a claim. Points must already be deducted by
// the caller; RedemptionID comes from the counter.
func (s *Store) CreateRedemption(ctx context.Context, r models.Redemption) (models.Redemption, error) {
	now := time.Now()
	r.ID = primitive.NewObjectID()
	r.Status = models.RedemptionPending
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.redemptions.InsertOne(ctx, r); err != nil {
		return models.Redemption{}, err
	}
	return r, nil
}

// GetRedemption loads a redemption by its display identifier.
func (s *Store) GetRedemption(ctx context.Context, redemptionID string) (*models.Redemption, error) {
	var r models.Redemption
	if err := s.redemptions.FindOne(ctx, bson.M{"redemption_id": redemptionID}).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRedemptions returns redemptions, newest first. Username and orgID
// are optional filters.
func (s *Store) ListRedemptions(ctx context.Context, orgID, username string) ([]models.Redemption, error) {
	filter := bson.M{}
	if orgID != "" {
		filter["organization_id"] = orgID
	}
	if username != "" {
		filter["username"] = username
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.redemptions.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Redemption
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetRedemptionStatus moves a redemption along its fulfillment states.
// The caller handles point refunds and stock returns on cancellation.
func (s *Store) SetRedemptionStatus(ctx context.Context, redemptionID, status, by, notes string) error {
	now := time.Now()
	set := bson.M{
		"status":            status,
		"status_updated_by": by,
		"status_updated_at": now,
		"updated_at":        now,
	}
	if notes != "" {
		set["notes"] = notes
	}
	res, err := s.redemptions.UpdateOne(ctx,
		bson.M{"redemption_id": redemptionID, "status": bson.M{"$ne": models.RedemptionCancelled}},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// RedemptionStats aggregates redemption counts and point spend for an
// org's point-store analytics.
type RedemptionStats struct {
	Total       int64 `bson:"total"`
	Pending     int64 `bson:"pending"`
	Cancelled   int64 `bson:"cancelled"`
	PointsSpent int64 `bson:"points_spent"`
}

func (s *Store) StatsByOrg(ctx context.Context, orgID string) (RedemptionStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"organization_id": orgID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": 1},
			"pending": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", models.RedemptionPending}}, 1, 0,
			}}},
			"cancelled": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", models.RedemptionCancelled}}, 1, 0,
			}}},
			"points_spent": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$ne": bson.A{"$status", models.RedemptionCancelled}}, "$points_spent", 0,
			}}},
		}}},
	}
	cur, err := s.redemptions.Aggregate(ctx, pipeline)
	if err != nil {
		return RedemptionStats{}, err
	}
	defer cur.Close(ctx)

	var stats RedemptionStats
	if cur.Next(ctx) {
		if err := cur.Decode(&stats); err != nil {
			return RedemptionStats{}, err
		}
	}
	return stats, cur.Err()
}
