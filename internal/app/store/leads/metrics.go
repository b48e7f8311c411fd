package leadstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/canvashub/canvashub/internal/domain/models"
)

// UserMetrics aggregates one user's lead production over a window. It is
// the raw material for competition scoring and the leaderboards.
type UserMetrics struct {
	Username   string
	TotalLeads int64
	Approved   int64
	Sold       int64
	SalesValue float64
}

// Score returns the metric value for a competition type.
func (m UserMetrics) Score(t models.CompetitionType) float64 {
	switch t {
	case models.CompMostApproved:
		return float64(m.Approved)
	case models.CompMostSold:
		return float64(m.Sold)
	case models.CompHighestValue:
		return m.SalesValue
	default:
		return float64(m.TotalLeads)
	}
}

// MetricsByCreator aggregates per-creator metrics for leads created in
// [from, to] within an organization. A nil creators slice means all
// creators in the org.
func (s *Store) MetricsByCreator(ctx context.Context, orgID string, creators []string, from, to time.Time) (map[string]UserMetrics, error) {
	match := bson.M{
		"organization_id": orgID,
		"is_active":       true,
		"created_at":      bson.M{"$gte": from, "$lte": to},
	}
	if creators != nil {
		match["created_by"] = bson.M{"$in": creators}
	}

	// Approved counts every lead that passed review, including those
	// later sold or starred. Sold counts by the sale fields, not the
	// status string, so superstar overlays do not hide sales.
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$created_by",
			"total": bson.M{"$sum": 1},
			"approved": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{"$lead_status", bson.A{
					string(models.LeadApproved), string(models.LeadSold), string(models.LeadSuperstar),
				}}}, 1, 0,
			}}},
			"sold": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{"$sale_amount", nil}}, 1, 0,
			}}},
			"sales_value": bson.M{"$sum": bson.M{"$ifNull": bson.A{"$sale_amount", 0}}},
		}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]UserMetrics{}
	for cur.Next(ctx) {
		var row struct {
			ID         string  `bson:"_id"`
			Total      int64   `bson:"total"`
			Approved   int64   `bson:"approved"`
			Sold       int64   `bson:"sold"`
			SalesValue float64 `bson:"sales_value"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = UserMetrics{
			Username:   row.ID,
			TotalLeads: row.Total,
			Approved:   row.Approved,
			Sold:       row.Sold,
			SalesValue: row.SalesValue,
		}
	}
	return out, cur.Err()
}
