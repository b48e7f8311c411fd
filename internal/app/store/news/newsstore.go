package newsstore

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
	c     *mongo.Collection
	reads *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:     db.Collection("news"),
		reads: db.Collection("news_reads"),
	}
}

// Create inserts a news post. Content must already be sanitized and
// ExpiresAt computed from the expiry window.
func (s *Store) Create(ctx context.Context, n models.News) (models.News, error) {
	now := time.Now()
	n.ID = primitive.NewObjectID()
	n.CreatedAt = now
	n.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return models.News{}, err
	}
	return n, nil
}

// GetByNewsID loads a post by its display identifier.
func (s *Store) GetByNewsID(ctx context.Context, newsID string) (*models.News, error) {
	var n models.News
	if err := s.c.FindOne(ctx, bson.M{"news_id": newsID}).Decode(&n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListUnexpired returns an org's live posts for the given role: pinned
// first, then priority order, then newest.
func (s *Store) ListUnexpired(ctx context.Context, orgID, role string, now time.Time) ([]models.News, error) {
	filter := bson.M{
		"organization_id": orgID,
		"expires_at":      bson.M{"$gt": now},
		"$or": bson.A{
			bson.M{"target_roles": bson.M{"$size": 0}},
			bson.M{"target_roles": bson.M{"$exists": false}},
			bson.M{"target_roles": role},
		},
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "is_pinned", Value: -1},
		{Key: "created_at", Value: -1},
	})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.News
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update edits a post's content fields.
type Update struct {
	Title       string
	Content     string
	Priority    string
	TargetRoles []string
}

func (s *Store) Update(ctx context.Context, newsID string, upd Update) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"news_id": newsID},
		bson.M{"$set": bson.M{
			"title":        upd.Title,
			"content":      upd.Content,
			"priority":     upd.Priority,
			"target_roles": upd.TargetRoles,
			"updated_at":   time.Now(),
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

// SetPinned pins or unpins a post.
func (s *Store) SetPinned(ctx context.Context, newsID string, pinned bool) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"news_id": newsID},
		bson.M{"$set": bson.M{"is_pinned": pinned, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a post and its read receipts.
func (s *Store) Delete(ctx context.Context, newsID string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"news_id": newsID})
	if err != nil {
		return 0, err
	}
	if res.DeletedCount > 0 {
		_, _ = s.reads.DeleteMany(ctx, bson.M{"news_id": newsID})
	}
	return res.DeletedCount, nil
}

// DeleteExpired removes posts whose expiration passed before the cutoff,
// along with their read receipts.
func (s *Store) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	cur, err := s.c.Find(ctx, bson.M{"expires_at": bson.M{"$lt": cutoff}},
		options.Find().SetProjection(bson.M{"news_id": 1}))
	if err != nil {
		return 0, err
	}
	var rows []struct {
		NewsID string `bson:"news_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.NewsID
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"news_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	_, _ = s.reads.DeleteMany(ctx, bson.M{"news_id": bson.M{"$in": ids}})
	return res.DeletedCount, nil
}

// MarkRead records a read receipt, once per (post, user).
func (s *Store) MarkRead(ctx context.Context, newsID, username string, at time.Time) error {
	_, err := s.reads.UpdateOne(ctx,
		bson.M{"news_id": newsID, "username": username},
		bson.M{"$setOnInsert": bson.M{"read_at": at}},
		options.Update().SetUpsert(true),
	)
	return err
}

// ReadSet returns the news ids the user has read, for annotating lists.
func (s *Store) ReadSet(ctx context.Context, username string) (map[string]bool, error) {
	cur, err := s.reads.Find(ctx, bson.M{"username": username},
		options.Find().SetProjection(bson.M{"news_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]bool{}
	for cur.Next(ctx) {
		var row struct {
			NewsID string `bson:"news_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.NewsID] = true
	}
	return out, cur.Err()
}
