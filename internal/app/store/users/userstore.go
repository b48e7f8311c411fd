package userstore

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
	"github.com/canvashub/canvashub/internal/domain/roles"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateUsername is returned when creating a user whose
	// username or email already exists.
	ErrDuplicateUsername = errors.New("a user with this username or email already exists")
	errBadRole           = errors.New("invalid role")
	errOrgNeeded         = errors.New("admin_manager/manager/canvasser must have organization_id")
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsername loads a user by normalized username. Returns
// mongo.ErrNoDocuments if not found.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"username": normalize.Username(username)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing and validating fields. The
// password must already be hashed.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Username = normalize.Username(u.Username)
	u.Email = normalize.Email(u.Email)
	u.FirstName = normalize.Name(u.FirstName)
	u.LastName = normalize.Name(u.LastName)
	u.Phone = normalize.Phone(u.Phone)
	u.ManagerID = normalize.Username(u.ManagerID)

	if !u.Role.Valid() {
		return models.User{}, errBadRole
	}
	if u.Role != roles.SuperAdmin && u.OrganizationID == "" {
		return models.User{}, errOrgNeeded
	}

	now := time.Now()
	u.IsActive = true
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateUsername
		}
		return models.User{}, err
	}
	return u, nil
}

// ProfileUpdate holds the self-serviceable profile fields.
type ProfileUpdate struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// UpdateProfile updates a user's profile fields.
func (s *Store) UpdateProfile(ctx context.Context, username string, upd ProfileUpdate) error {
	set := bson.M{
		"email":      normalize.Email(upd.Email),
		"first_name": normalize.Name(upd.FirstName),
		"last_name":  normalize.Name(upd.LastName),
		"phone":      normalize.Phone(upd.Phone),
		"updated_at": time.Now(),
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"username": normalize.Username(username)}, bson.M{"$set": set})
	if wafflemongo.IsDup(err) {
		return ErrDuplicateUsername
	}
	return err
}

// SetRole changes a user's role. Canvassers promoted out of the role lose
// their manager assignment; users demoted to canvasser get one from
// managerID.
func (s *Store) SetRole(ctx context.Context, username string, role roles.Role, managerID string) error {
	set := bson.M{"role": role, "updated_at": time.Now()}
	unset := bson.M{}
	if role == roles.Canvasser {
		set["manager_id"] = normalize.Username(managerID)
	} else {
		unset["manager_id"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"username": normalize.Username(username)}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetManager reassigns a canvasser to a different manager.
func (s *Store) SetManager(ctx context.Context, username, managerID string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"username": normalize.Username(username), "role": roles.Canvasser},
		bson.M{"$set": bson.M{"manager_id": normalize.Username(managerID), "updated_at": time.Now()}},
	)
	return err
}

// SetPassword replaces the stored password hash.
func (s *Store) SetPassword(ctx context.Context, username, hash string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"username": normalize.Username(username)},
		bson.M{"$set": bson.M{"password": hash, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Deactivate soft-deletes a user.
func (s *Store) Deactivate(ctx context.Context, username, by, reason string) error {
	now := time.Now()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"username": normalize.Username(username), "is_active": true},
		bson.M{"$set": bson.M{
			"is_active":           false,
			"deactivated_at":      now,
			"deactivated_by":      by,
			"deactivation_reason": reason,
			"updated_at":          now,
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
func (s *Store) Reactivate(ctx context.Context, username string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"username": normalize.Username(username), "is_active": false},
		bson.M{
			"$set":   bson.M{"is_active": true, "updated_at": time.Now()},
			"$unset": bson.M{"deactivated_at": "", "deactivated_by": "", "deactivation_reason": ""},
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

// Delete permanently removes a user. Lead anonymization is the caller's
// responsibility (leadstore.AnonymizeCreator).
func (s *Store) Delete(ctx context.Context, username string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"username": normalize.Username(username)})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// TouchActivity records the user's last activity time. Best effort.
func (s *Store) TouchActivity(ctx context.Context, username string, at time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"username": normalize.Username(username)},
		bson.M{"$set": bson.M{"last_activity": at}},
	)
	return err
}

// ListFilter selects users for List.
type ListFilter struct {
	OrgID string
	// ManagerID limits to canvassers assigned to this manager. The
	// manager themselves is included when Self is set.
	ManagerID string
	Self      string
	Role      roles.Role
	// ActiveOnly excludes deactivated users.
	ActiveOnly bool
	// Query matches username, name, and email by case-insensitive prefix.
	Query string
}

func (f ListFilter) build() bson.M {
	filter := bson.M{}
	if f.OrgID != "" {
		filter["organization_id"] = f.OrgID
	}
	if f.ManagerID != "" {
		team := bson.M{"manager_id": normalize.Username(f.ManagerID)}
		if f.Self != "" {
			filter["$or"] = bson.A{team, bson.M{"username": normalize.Username(f.Self)}}
		} else {
			for k, v := range team {
				filter[k] = v
			}
		}
	}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.ActiveOnly {
		filter["is_active"] = true
	}
	if f.Query != "" {
		q := primitive.Regex{Pattern: "^" + regexQuote(f.Query), Options: "i"}
		filter["$and"] = bson.A{bson.M{"$or": bson.A{
			bson.M{"username": q},
			bson.M{"first_name": q},
			bson.M{"last_name": q},
			bson.M{"email": q},
		}}}
	}
	return filter
}

// List returns users matching the filter, sorted by username.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})
	cur, err := s.c.Find(ctx, f.build(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of users matching the filter.
func (s *Store) Count(ctx context.Context, f ListFilter) (int64, error) {
	return s.c.CountDocuments(ctx, f.build())
}

// TopByPoints returns the highest-scoring active users in an org.
func (s *Store) TopByPoints(ctx context.Context, orgID string, limit int64) ([]models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "points", Value: -1}, {Key: "username", Value: 1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"organization_id": orgID, "is_active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
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
