// Package counterstore hands out the display identifiers every entity
// carries (ORG_0001, LEAD_0001_0007). Each counter is a single document
// bumped with findOneAndUpdate, so sequences never repeat even under
// concurrent creates.
package counterstore

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sequence kinds.
const (
	KindOrg          = "ORG"
	KindLead         = "LEAD"
	KindCompetition  = "COMP"
	KindNews         = "NEWS"
	KindProject      = "PROJ"
	KindReward       = "REWARD"
	KindRedemption   = "REDEEM"
	KindNotification = "NOTIF"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("counters")}
}

type counterDoc struct {
	Seq int64 `bson:"seq"`
}

// next bumps the named counter and returns the new value, creating the
// counter document on first use.
func (s *Store) next(ctx context.Context, key string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var doc counterDoc
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("bump counter %s: %w", key, err)
	}
	return doc.Seq, nil
}

// NextOrgID returns the next global organization identifier (ORG_0001).
func (s *Store) NextOrgID(ctx context.Context) (string, error) {
	n, err := s.next(ctx, KindOrg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORG_%04d", n), nil
}

// NextScopedID returns the next identifier of the given kind scoped to an
// organization, e.g. NextScopedID(ctx, KindLead, "ORG_0001") yields
// LEAD_0001_0007.
func (s *Store) NextScopedID(ctx context.Context, kind, orgID string) (string, error) {
	n, err := s.next(ctx, kind+":"+orgID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%s_%04d", kind, OrgNumber(orgID), n), nil
}

// OrgNumber extracts the numeric suffix of an org identifier
// ("ORG_0001" -> "0001"). Unrecognized inputs pass through unchanged so a
// malformed org id stays visible in the generated id.
func OrgNumber(orgID string) string {
	if rest, ok := strings.CutPrefix(orgID, "ORG_"); ok && rest != "" {
		return rest
	}
	return orgID
}
