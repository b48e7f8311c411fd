package notificationstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/canvashub/canvashub/internal/app/store/counters"
	"github.com/canvashub/canvashub/internal/domain/models"
)

type Store struct {
	c        *mongo.Collection
	counters *counterstore.Store
}

func New(db *mongo.Database, counters *counterstore.Store) *Store {
	return &Store{c: db.Collection("notifications"), counters: counters}
}

// Create inserts a notification, assigning its id from the counter.
func (s *Store) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	id, err := s.counters.NextScopedID(ctx, counterstore.KindNotification, n.OrganizationID)
	if err != nil {
		return models.Notification{}, err
	}
	n.ID = primitive.NewObjectID()
	n.NotificationID = id
	n.CreatedAt = time.Now()
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

// ListForUser returns unexpired notifications addressed to the user,
// newest first.
func (s *Store) ListForUser(ctx context.Context, username string, now time.Time) ([]models.Notification, error) {
	filter := bson.M{
		"recipient_usernames": username,
		"$or": bson.A{
			bson.M{"expires_at": nil},
			bson.M{"expires_at": bson.M{"$gt": now}},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(100)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead records the user's read time on a notification addressed to
// them.
func (s *Store) MarkRead(ctx context.Context, notificationID, username string, at time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"notification_id": notificationID, "recipient_usernames": username},
		bson.M{"$set": bson.M{"read_by." + username: at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// UnreadCount counts unexpired notifications the user has not read.
func (s *Store) UnreadCount(ctx context.Context, username string, now time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"recipient_usernames": username,
		"read_by." + username: bson.M{"$exists": false},
		"$or": bson.A{
			bson.M{"expires_at": nil},
			bson.M{"expires_at": bson.M{"$gt": now}},
		},
	})
}

// Dispatcher sends notifications fire-and-forget: failures are logged and
// never propagate to the operation that triggered them.
type Dispatcher struct {
	store *Store
	log   *zap.Logger
}

func NewDispatcher(store *Store, log *zap.Logger) *Dispatcher {
	return &Dispatcher{store: store, log: log}
}

// Send inserts the notification, swallowing errors. Safe to call inline
// from any handler.
func (d *Dispatcher) Send(ctx context.Context, n models.Notification) {
	if len(n.Recipients) == 0 {
		return
	}
	if _, err := d.store.Create(ctx, n); err != nil {
		d.log.Warn("notification dispatch failed",
			zap.String("type", n.Type),
			zap.Int("recipients", len(n.Recipients)),
			zap.Error(err))
	}
}
