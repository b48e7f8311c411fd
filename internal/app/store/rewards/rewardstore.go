package rewardstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/canvashub/canvashub/internal/domain/models"
)

type Store struct {
	c           *mongo.Collection
	redemptions *mongo.Collection
}

// ErrOutOfStock is returned when a redemption races the last unit away.
var ErrOutOfStock = errors.New("reward is out of stock")

func New(db *mongo.Database) *Store {
	return &Store{
		c:           db.Collection("rewards"),
		redemptions: db.Collection("redemptions"),
	}
}

// Create inserts a reward. RewardID comes from the counter.
func (s *Store) Create(ctx context.Context, r models.Reward) (models.Reward, error) {
	now := time.Now()
	r.ID = primitive.NewObjectID()
	if r.Status == "" {
		r.Status = models.RewardActive
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Reward{}, err
	}
	return r, nil
}

// GetByRewardID loads a reward by its display identifier.
func (s *Store) GetByRewardID(ctx context.Context, rewardID string) (*models.Reward, error) {
	var r models.Reward
	if err := s.c.FindOne(ctx, bson.M{"reward_id": rewardID}).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListByOrg returns an org's rewards; activeOnly hides retired items.
func (s *Store) ListByOrg(ctx context.Context, orgID string, activeOnly bool) ([]models.Reward, error) {
	filter := bson.M{"organization_id": orgID}
	if activeOnly {
		filter["status"] = models.RewardActive
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "is_featured", Value: -1},
		{Key: "points_required", Value: 1},
	})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Reward
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update edits a reward's catalog fields.
type Update struct {
	Name           string
	Description    string
	Category       string
	PointsRequired int
	StockQuantity  *int
	Status         string
	IsFeatured     bool
}

func (s *Store) Update(ctx context.Context, rewardID string, upd Update) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"reward_id": rewardID},
		bson.M{"$set": bson.M{
			"name":            upd.Name,
			"description":     upd.Description,
			"category":        upd.Category,
			"points_required": upd.PointsRequired,
			"stock_quantity":  upd.StockQuantity,
			"status":          upd.Status,
			"is_featured":     upd.IsFeatured,
			"updated_at":      time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a reward from the catalog. Redemption records are kept.
func (s *Store) Delete(ctx context.Context, rewardID string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"reward_id": rewardID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// TakeStock decrements the stock of a limited reward, first-come
// first-served. Unlimited rewards (no stock_quantity) pass through.
func (s *Store) TakeStock(ctx context.Context, rewardID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"reward_id": rewardID,
			"$or": bson.A{
				bson.M{"stock_quantity": bson.M{"$exists": false}},
				bson.M{"stock_quantity": nil},
				bson.M{"stock_quantity": bson.M{"$gt": 0}},
			},
		},
		// $inc on a missing/nil field would corrupt unlimited rewards,
		// so the decrement only runs when a numeric stock survives the
		// filter.
		bson.A{bson.M{"$set": bson.M{
			"stock_quantity": bson.M{"$cond": bson.A{
				bson.M{"$isNumber": "$stock_quantity"},
				bson.M{"$subtract": bson.A{"$stock_quantity", 1}},
				"$stock_quantity",
			}},
			"updated_at": "$$NOW",
		}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrOutOfStock
	}
	return nil
}

// ReturnStock restores one unit after a cancelled redemption of a limited
// reward.
func (s *Store) ReturnStock(ctx context.Context, rewardID string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"reward_id": rewardID, "stock_quantity": bson.M{"$type": "number"}},
		bson.M{"$inc": bson.M{"stock_quantity": 1}},
	)
	return err
}
