package organizationstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/canvashub/canvashub/internal/app/system/normalize"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/planlimits"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateOrganization = errors.New("an organization with this name already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organizations")}
}

// Create inserts a new organization. OrgID must already be assigned from
// the counter; plan-derived limits are filled in here.
func (s *Store) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	now := time.Now().UTC()
	org.ID = primitive.NewObjectID()
	org.Name = normalize.Name(org.Name)
	org.Email = normalize.Email(org.Email)
	if org.Plan == "" {
		org.Plan = models.PlanBasic
	}
	org.MaxUsers = planlimits.ForPlan(org.Plan).MaxUsers
	org.IsActive = true
	org.CreatedAt = now
	org.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, org); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Organization{}, ErrDuplicateOrganization
		}
		return models.Organization{}, err
	}
	return org, nil
}

// GetByOrgID loads an organization by its display identifier (ORG_0001).
func (s *Store) GetByOrgID(ctx context.Context, orgID string) (*models.Organization, error) {
	var org models.Organization
	if err := s.c.FindOne(ctx, bson.M{"org_id": orgID}).Decode(&org); err != nil {
		return nil, err
	}
	return &org, nil
}

// List returns organizations, optionally restricted to active ones,
// sorted by org_id.
func (s *Store) List(ctx context.Context, activeOnly bool) ([]models.Organization, error) {
	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "org_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Organization
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies profile edits to an organization.
type Update struct {
	Name     string
	Email    string
	Industry string
	Address  string
	Phone    string
}

func (s *Store) Update(ctx context.Context, orgID string, upd Update) error {
	set := bson.M{
		"name":       normalize.Name(upd.Name),
		"email":      normalize.Email(upd.Email),
		"industry":   upd.Industry,
		"address":    upd.Address,
		"phone":      normalize.Phone(upd.Phone),
		"updated_at": time.Now().UTC(),
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"org_id": orgID}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateOrganization
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetPlan upgrades or downgrades the plan and refreshes the derived user
// ceiling. Existing resources above a lowered ceiling are kept.
func (s *Store) SetPlan(ctx context.Context, orgID string, plan models.OrganizationPlan) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"org_id": orgID},
		bson.M{"$set": bson.M{
			"plan":       plan,
			"max_users":  planlimits.ForPlan(plan).MaxUsers,
			"updated_at": time.Now().UTC(),
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

// Deactivate soft-deletes an organization.
func (s *Store) Deactivate(ctx context.Context, orgID, by string) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"org_id": orgID, "is_active": true},
		bson.M{"$set": bson.M{
			"is_active":      false,
			"deactivated_at": now,
			"deactivated_by": by,
			"updated_at":     now,
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

// Reactivate reverses a soft delete.
func (s *Store) Reactivate(ctx context.Context, orgID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"org_id": orgID, "is_active": false},
		bson.M{
			"$set":   bson.M{"is_active": true, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"deactivated_at": "", "deactivated_by": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete permanently removes an organization document. Dependent data
// cleanup is the caller's concern.
func (s *Store) Delete(ctx context.Context, orgID string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"org_id": orgID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
