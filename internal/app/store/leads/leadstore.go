package leadstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/canvashub/canvashub/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

// ErrDuplicateLeadID signals a counter misuse; lead ids are unique per
// organization.
var ErrDuplicateLeadID = errors.New("lead id already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("leads")}
}

// Create inserts a lead. LeadID and lifecycle fields must already be set
// (counters assign the id, leadflow.Create fills the lifecycle).
func (s *Store) Create(ctx context.Context, lead models.Lead) (models.Lead, error) {
	lead.ID = primitive.NewObjectID()
	if _, err := s.c.InsertOne(ctx, lead); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Lead{}, ErrDuplicateLeadID
		}
		return models.Lead{}, err
	}
	return lead, nil
}

// GetByLeadID loads a lead by its display identifier.
func (s *Store) GetByLeadID(ctx context.Context, leadID string) (*models.Lead, error) {
	var l models.Lead
	if err := s.c.FindOne(ctx, bson.M{"lead_id": leadID}).Decode(&l); err != nil {
		return nil, err
	}
	return &l, nil
}

// ErrStatusChanged signals that a lifecycle write lost a race: the lead
// moved on between the caller's read and its save.
var ErrStatusChanged = errors.New("lead changed since it was read")

// SaveTransition persists a status transition, conditional on the status
// the caller read. Two reviewers racing on the same lead both pass the
// in-memory check; the filter makes sure only one write lands.
func (s *Store) SaveTransition(ctx context.Context, lead *models.Lead, prev models.LeadStatus) error {
	return s.guardedSave(ctx, lead, bson.M{"_id": lead.ID, "lead_status": prev})
}

// SaveSale persists the first sale on a lead. On top of the status guard
// it requires that no sale has been recorded yet, which covers leads
// whose status does not change when sold (superstar stays superstar).
func (s *Store) SaveSale(ctx context.Context, lead *models.Lead, prev models.LeadStatus) error {
	return s.guardedSave(ctx, lead, bson.M{
		"_id":         lead.ID,
		"lead_status": prev,
		"sale_amount": bson.M{"$exists": false},
	})
}

func (s *Store) guardedSave(ctx context.Context, lead *models.Lead, filter bson.M) error {
	res, err := s.c.ReplaceOne(ctx, filter, lead)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStatusChanged
	}
	return nil
}

// ListFilter selects leads for List and StatusSummary. A nil Creators
// slice means no creator restriction; an empty non-nil slice matches
// nothing.
type ListFilter struct {
	OrgID    string
	Creators []string
	Status   models.LeadStatus
	Query    string
	Since    *time.Time
	Until    *time.Time
}

func (f ListFilter) build() bson.M {
	filter := bson.M{"is_active": true}
	if f.OrgID != "" {
		filter["organization_id"] = f.OrgID
	}
	if f.Creators != nil {
		filter["created_by"] = bson.M{"$in": f.Creators}
	}
	if f.Status != "" {
		filter["lead_status"] = f.Status
	}
	if f.Query != "" {
		q := primitive.Regex{Pattern: regexQuote(f.Query), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"client_name": q},
			bson.M{"phone": q},
			bson.M{"email": q},
			bson.M{"address": q},
			bson.M{"lead_id": q},
		}
	}
	if f.Since != nil || f.Until != nil {
		rng := bson.M{}
		if f.Since != nil {
			rng["$gte"] = *f.Since
		}
		if f.Until != nil {
			rng["$lte"] = *f.Until
		}
		filter["created_at"] = rng
	}
	return filter
}

// List returns leads matching the filter, newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Lead, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, f.build(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Lead
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StatusSummary counts leads by status within the filter.
func (s *Store) StatusSummary(ctx context.Context, f ListFilter) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: f.build()}},
		{{Key: "$group", Value: bson.M{"_id": "$lead_status", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
			N  int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}

// PendingOlderThan returns pending leads created before the cutoff, for
// the urgency flag on the approvals queue.
func (s *Store) Pending(ctx context.Context, f ListFilter) ([]models.Lead, error) {
	f.Status = models.LeadPending
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.c.Find(ctx, f.build(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Lead
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AnonymizeCreator rewrites created_by on all of a deleted user's leads so
// hard deletes never cascade into lead data.
func (s *Store) AnonymizeCreator(ctx context.Context, username string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"created_by": username},
		bson.M{"$set": bson.M{"created_by": "deleted_user", "updated_at": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func regexQuote(s string) string {
	const meta = `\.+*?()|[]{}^$`
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(meta); j++ {
			if s[i] == meta[j] {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, s[i])
	}
	return string(out)
}
