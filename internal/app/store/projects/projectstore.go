package projectstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/canvashub/canvashub/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

// Create inserts a portfolio project. ProjectID comes from the counter.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	now := time.Now()
	p.ID = primitive.NewObjectID()
	p.IsActive = true
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// GetByProjectID loads a project by its display identifier.
func (s *Store) GetByProjectID(ctx context.Context, projectID string) (*models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"project_id": projectID, "is_active": true}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByOrg returns an org's live projects, featured first, then newest.
func (s *Store) ListByOrg(ctx context.Context, orgID, category string) ([]models.Project, error) {
	filter := bson.M{"organization_id": orgID, "is_active": true}
	if category != "" {
		filter["category"] = category
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "is_featured", Value: -1},
		{Key: "created_at", Value: -1},
	})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Project
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByOrg counts an org's live projects, for plan limit checks.
func (s *Store) CountByOrg(ctx context.Context, orgID string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"organization_id": orgID, "is_active": true})
}

// Update edits a project's descriptive fields.
type Update struct {
	Title          string
	Category       string
	Description    string
	Location       string
	CompletionDate *time.Time
	IsFeatured     bool
	ImageIDs       []string
}

func (s *Store) Update(ctx context.Context, projectID string, upd Update) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"project_id": projectID, "is_active": true},
		bson.M{"$set": bson.M{
			"title":           upd.Title,
			"category":        upd.Category,
			"description":     upd.Description,
			"location":        upd.Location,
			"completion_date": upd.CompletionDate,
			"is_featured":     upd.IsFeatured,
			"image_ids":       upd.ImageIDs,
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

// Delete soft-deletes a project.
func (s *Store) Delete(ctx context.Context, projectID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"project_id": projectID, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
