package userstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/canvashub/canvashub/internal/app/system/normalize"
	"github.com/canvashub/canvashub/internal/domain/models"
)

// ErrInsufficientPoints is returned when a deduction would take a balance
// negative.
var ErrInsufficientPoints = errors.New("insufficient points")

// Ledger actions.
const (
	ActionAdd    = "add"
	ActionDeduct = "deduct"
	ActionRefund = "refund"
	ActionUpdate = "update"
)

// adjust applies a signed delta with an extra filter guard, then appends
// the matching ledger entry. The balance change is a single atomic $inc;
// the history push rides a second write keyed off the pre-image, so the
// old/new values in the entry always agree with the $inc that produced
// them.
func (s *Store) adjust(ctx context.Context, username string, delta int, guard bson.M, action, reason, actor string) (int, error) {
	filter := bson.M{"username": normalize.Username(username)}
	for k, v := range guard {
		filter[k] = v
	}

	var before models.User
	err := s.c.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$inc": bson.M{"points": delta}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		return 0, err
	}

	newValue := before.Points + delta
	entry := models.PointsEntry{
		Action:    action,
		Points:    delta,
		OldValue:  before.Points,
		NewValue:  newValue,
		Reason:    reason,
		Actor:     actor,
		Timestamp: time.Now(),
	}
	_, err = s.c.UpdateOne(ctx,
		bson.M{"username": before.Username},
		bson.M{"$push": bson.M{"points_history": entry}},
	)
	return newValue, err
}

// AwardPoints credits points with a ledger entry. Returns the new balance.
func (s *Store) AwardPoints(ctx context.Context, username string, points int, reason, actor string) (int, error) {
	return s.adjust(ctx, username, points, nil, ActionAdd, reason, actor)
}

// DeductPoints debits points, refusing to take the balance negative.
func (s *Store) DeductPoints(ctx context.Context, username string, points int, reason, actor string) (int, error) {
	n, err := s.adjust(ctx, username, -points, bson.M{"points": bson.M{"$gte": points}}, ActionDeduct, reason, actor)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Either the user is missing or the guard failed; disambiguate.
		if _, lookupErr := s.GetByUsername(ctx, username); lookupErr == nil {
			return 0, ErrInsufficientPoints
		}
		return 0, err
	}
	return n, err
}

// RefundPoints credits points back with a refund-action ledger entry, used
// when a redemption is cancelled.
func (s *Store) RefundPoints(ctx context.Context, username string, points int, reason, actor string) (int, error) {
	return s.adjust(ctx, username, points, nil, ActionRefund, reason, actor)
}

// SetPoints replaces the balance outright (manual admin edit). The ledger
// entry records the signed difference.
func (s *Store) SetPoints(ctx context.Context, username string, points int, reason, actor string) (int, error) {
	var before models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"username": normalize.Username(username)},
		bson.M{"$set": bson.M{"points": points}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		return 0, err
	}
	entry := models.PointsEntry{
		Action:    ActionUpdate,
		Points:    points - before.Points,
		OldValue:  before.Points,
		NewValue:  points,
		Reason:    reason,
		Actor:     actor,
		Timestamp: time.Now(),
	}
	_, err = s.c.UpdateOne(ctx,
		bson.M{"username": before.Username},
		bson.M{"$push": bson.M{"points_history": entry}},
	)
	return points, err
}
