package timestore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/canvashub/canvashub/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

var (
	// ErrAlreadyClockedIn is returned when a user with an open session
	// clocks in again.
	ErrAlreadyClockedIn = errors.New("user already has an active session")
	// ErrNotClockedIn is returned for break/clock-out operations without
	// an open session.
	ErrNotClockedIn = errors.New("user has no active session")
	// ErrBreakActive is returned when starting a break while one is open.
	ErrBreakActive = errors.New("a break is already active")
	// ErrNoActiveBreak is returned when ending a break that is not open.
	ErrNoActiveBreak = errors.New("no active break")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("time_tracking")}
}

// Active returns the user's open session, if any.
func (s *Store) Active(ctx context.Context, username string) (*models.TimeSession, error) {
	var sess models.TimeSession
	err := s.c.FindOne(ctx, bson.M{"username": username, "clock_out": nil}).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// ClockIn opens a session for the user. One active session per user.
func (s *Store) ClockIn(ctx context.Context, username, orgID, notes string, at time.Time) (*models.TimeSession, error) {
	active, err := s.Active(ctx, username)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrAlreadyClockedIn
	}
	sess := models.TimeSession{
		ID:             primitive.NewObjectID(),
		Username:       username,
		OrganizationID: orgID,
		ClockIn:        at,
		Notes:          notes,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	if _, err := s.c.InsertOne(ctx, sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// finish computes derived hours and closes the session in place.
func finish(sess *models.TimeSession, at time.Time, auto bool) {
	for i := range sess.Breaks {
		if sess.Breaks[i].Status == models.BreakActive {
			endBreak(&sess.Breaks[i], at, "")
		}
	}
	sess.ClockOut = &at
	sess.OnBreak = false
	sess.AutoClockedOut = auto
	sess.TotalBreakMinutes = 0
	for _, b := range sess.Breaks {
		if b.Status == models.BreakCompleted {
			sess.TotalBreakMinutes += b.DurationMinutes
		}
	}
	sess.TotalHours = at.Sub(sess.ClockIn).Hours()
	sess.WorkHours = sess.TotalHours - sess.TotalBreakMinutes/60
	if sess.WorkHours < 0 {
		sess.WorkHours = 0
	}
	sess.UpdatedAt = at
}

func endBreak(b *models.Break, at time.Time, by string) {
	b.EndTime = &at
	b.Status = models.BreakCompleted
	b.DurationMinutes = at.Sub(b.StartTime).Minutes()
	b.EndedBy = by
}

// ClockOut closes the user's open session, ending any active break, and
// returns it with work hours computed.
func (s *Store) ClockOut(ctx context.Context, username string, at time.Time) (*models.TimeSession, error) {
	sess, err := s.Active(ctx, username)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotClockedIn
	}
	finish(sess, at, false)
	if err := s.replace(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// StartBreak opens a break on the user's active session.
func (s *Store) StartBreak(ctx context.Context, username, breakType, reason string, at time.Time) (*models.TimeSession, error) {
	sess, err := s.Active(ctx, username)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotClockedIn
	}
	if sess.ActiveBreak() != nil {
		return nil, ErrBreakActive
	}
	sess.Breaks = append(sess.Breaks, models.Break{
		BreakID:   uuid.NewString(),
		Type:      breakType,
		Status:    models.BreakActive,
		StartTime: at,
		Reason:    reason,
	})
	sess.OnBreak = true
	sess.UpdatedAt = at
	if err := s.replace(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// EndBreak closes the active break. endedBy is recorded when someone
// other than the session owner forces the break closed.
func (s *Store) EndBreak(ctx context.Context, username, endedBy string, at time.Time) (*models.TimeSession, error) {
	sess, err := s.Active(ctx, username)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotClockedIn
	}
	b := sess.ActiveBreak()
	if b == nil {
		return nil, ErrNoActiveBreak
	}
	endBreak(b, at, endedBy)
	sess.OnBreak = false
	sess.TotalBreakMinutes = 0
	for _, br := range sess.Breaks {
		if br.Status == models.BreakCompleted {
			sess.TotalBreakMinutes += br.DurationMinutes
		}
	}
	sess.UpdatedAt = at
	if err := s.replace(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) replace(ctx context.Context, sess *models.TimeSession) error {
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": sess.ID}, sess)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// History returns a user's sessions within a window, newest first.
func (s *Store) History(ctx context.Context, username string, from, to time.Time) ([]models.TimeSession, error) {
	filter := bson.M{
		"username": username,
		"clock_in": bson.M{"$gte": from, "$lte": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "clock_in", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TimeSession
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveByOrg lists all open sessions in an organization.
func (s *Store) ActiveByOrg(ctx context.Context, orgID string) ([]models.TimeSession, error) {
	cur, err := s.c.Find(ctx, bson.M{"organization_id": orgID, "clock_out": nil})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TimeSession
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AutoClockOut closes every session open longer than maxOpen, marking it
// auto_clocked_out. Returns the number of sessions closed.
func (s *Store) AutoClockOut(ctx context.Context, maxOpen time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-maxOpen)
	cur, err := s.c.Find(ctx, bson.M{"clock_out": nil, "clock_in": bson.M{"$lte": cutoff}})
	if err != nil {
		return 0, err
	}
	var stale []models.TimeSession
	if err := cur.All(ctx, &stale); err != nil {
		return 0, err
	}

	var closed int64
	for i := range stale {
		sess := &stale[i]
		// Close at clock_in + maxOpen, not at sweep time, so a delayed
		// sweep does not inflate hours.
		finish(sess, sess.ClockIn.Add(maxOpen), true)
		if err := s.replace(ctx, sess); err != nil {
			return closed, err
		}
		closed++
	}
	return closed, nil
}
