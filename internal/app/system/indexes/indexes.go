package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent;
errors are aggregated so every problem is visible and startup can fail
fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(name string, err error) {
		if err != nil {
			problems = append(problems, name+": "+err.Error())
		}
	}

	ensure("users", ensureUsers(ctx, db))
	ensure("organizations", ensureOrganizations(ctx, db))
	ensure("leads", ensureLeads(ctx, db))
	ensure("competitions", ensureCompetitions(ctx, db))
	ensure("news", ensureNews(ctx, db))
	ensure("news_reads", ensureNewsReads(ctx, db))
	ensure("projects", ensureProjects(ctx, db))
	ensure("rewards", ensureRewards(ctx, db))
	ensure("redemptions", ensureRedemptions(ctx, db))
	ensure("time_tracking", ensureTimeTracking(ctx, db))
	ensure("live_tracking", ensureLiveTracking(ctx, db))
	ensure("notifications", ensureNotifications(ctx, db))
	ensure("blobs", ensureBlobs(ctx, db))

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func create(ctx context.Context, db *mongo.Database, coll string, models []mongo.IndexModel) error {
	_, err := db.Collection(coll).Indexes().CreateMany(ctx, models)
	return err
}

func unique() *options.IndexOptions {
	return options.Index().SetUnique(true)
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "users", []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique()},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique()},
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "role", Value: 1}}},
		{Keys: bson.D{{Key: "manager_id", Value: 1}}},
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "points", Value: -1}}},
	})
}

func ensureOrganizations(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "organizations", []mongo.IndexModel{
		{Keys: bson.D{{Key: "org_id", Value: 1}}, Options: unique()},
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique()},
	})
}

func ensureLeads(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "leads", []mongo.IndexModel{
		{Keys: bson.D{{Key: "lead_id", Value: 1}}, Options: unique()},
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "lead_status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_by", Value: 1}, {Key: "created_at", Value: -1}}},
	})
}

func ensureCompetitions(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "competitions", []mongo.IndexModel{
		{Keys: bson.D{{Key: "competition_id", Value: 1}}, Options: unique()},
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "start_date", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "end_date", Value: 1}}},
	})
}

func ensureNews(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "news", []mongo.IndexModel{
		{Keys: bson.D{{Key: "news_id", Value: 1}}, Options: unique()},
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "expires_at", Value: 1}}},
	})
}

func ensureNewsReads(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "news_reads", []mongo.IndexModel{
		{Keys: bson.D{{Key: "news_id", Value: 1}, {Key: "username", Value: 1}}, Options: unique()},
		{Keys: bson.D{{Key: "username", Value: 1}}},
	})
}

func ensureProjects(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "projects", []mongo.IndexModel{
		{Keys: bson.D{{Key: "project_id", Value: 1}}, Options: unique()},
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "is_active", Value: 1}}},
	})
}

func ensureRewards(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "rewards", []mongo.IndexModel{
		{Keys: bson.D{{Key: "reward_id", Value: 1}}, Options: unique()},
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "status", Value: 1}}},
	})
}

func ensureRedemptions(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "redemptions", []mongo.IndexModel{
		{Keys: bson.D{{Key: "redemption_id", Value: 1}}, Options: unique()},
		{Keys: bson.D{{Key: "username", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "status", Value: 1}}},
	})
}

func ensureTimeTracking(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "time_tracking", []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}, {Key: "clock_in", Value: -1}}},
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "clock_out", Value: 1}}},
	})
}

func ensureLiveTracking(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "live_tracking", []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}, {Key: "session_id", Value: 1}}, Options: unique()},
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "is_active", Value: 1}}},
	})
}

func ensureNotifications(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "notifications", []mongo.IndexModel{
		{Keys: bson.D{{Key: "notification_id", Value: 1}}, Options: unique()},
		{Keys: bson.D{{Key: "recipient_usernames", Value: 1}, {Key: "created_at", Value: -1}}},
	})
}

func ensureBlobs(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "blobs", []mongo.IndexModel{
		{Keys: bson.D{{Key: "blob_id", Value: 1}}, Options: unique()},
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "owner_id", Value: 1}}},
	})
}
