package competitionstore

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
	return &Store{c: db.Collection("competitions")}
}

// Create inserts a competition. CompetitionID comes from the counter.
func (s *Store) Create(ctx context.Context, c models.Competition) (models.Competition, error) {
	now := time.Now()
	c.ID = primitive.NewObjectID()
	c.Status = models.CompStatusActive
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Competition{}, err
	}
	return c, nil
}

// GetByCompetitionID loads a competition by its display identifier.
func (s *Store) GetByCompetitionID(ctx context.Context, competitionID string) (*models.Competition, error) {
	var c models.Competition
	if err := s.c.FindOne(ctx, bson.M{"competition_id": competitionID}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByOrg returns an organization's competitions, newest start first.
func (s *Store) ListByOrg(ctx context.Context, orgID string) ([]models.Competition, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"organization_id": orgID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Competition
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update holds the editable fields of a non-terminal competition.
type Update struct {
	Title                string
	Description          string
	PrizeDescription     string
	PrizePoints          int
	EndDate              time.Time
	TargetRoles          []string
	MinParticipants      int
	SelectedParticipants []string
}

// Apply edits a competition that has not reached a terminal state.
func (s *Store) Apply(ctx context.Context, competitionID string, upd Update) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"competition_id": competitionID,
			"status":         bson.M{"$nin": bson.A{models.CompStatusCompleted, models.CompStatusCancelled}},
		},
		bson.M{"$set": bson.M{
			"title":                 upd.Title,
			"description":           upd.Description,
			"prize_description":     upd.PrizeDescription,
			"prize_points":          upd.PrizePoints,
			"end_date":              upd.EndDate,
			"target_roles":          upd.TargetRoles,
			"min_participants":      upd.MinParticipants,
			"selected_participants": upd.SelectedParticipants,
			"updated_at":            time.Now(),
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

// SetParticipants replaces the specific-mode participant list.
func (s *Store) SetParticipants(ctx context.Context, competitionID string, participants []string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"competition_id": competitionID,
			"status":         bson.M{"$nin": bson.A{models.CompStatusCompleted, models.CompStatusCancelled}},
		},
		bson.M{"$set": bson.M{"selected_participants": participants, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Cancel marks a competition cancelled. Completed competitions stay
// completed.
func (s *Store) Cancel(ctx context.Context, competitionID, by string) error {
	now := time.Now()
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"competition_id": competitionID,
			"status":         bson.M{"$nin": bson.A{models.CompStatusCompleted, models.CompStatusCancelled}},
		},
		bson.M{"$set": bson.M{
			"status":       models.CompStatusCancelled,
			"cancelled_at": now,
			"cancelled_by": by,
			"updated_at":   now,
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

// CompleteIfActive transitions a competition to completed, recording the
// winner and final leaderboard. The status guard in the filter makes the
// transition first-writer-wins: concurrent readers past the end date race
// to this update, exactly one matches, and only that caller may award the
// prize. Returns true when this call won the transition.
func (s *Store) CompleteIfActive(ctx context.Context, competitionID, winner string, final []models.LeaderboardEntry) (bool, error) {
	now := time.Now()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"competition_id": competitionID, "status": models.CompStatusActive},
		bson.M{"$set": bson.M{
			"status":            models.CompStatusCompleted,
			"winner":            winner,
			"final_leaderboard": final,
			"completed_at":      now,
			"updated_at":        now,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
