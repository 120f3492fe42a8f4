package store

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dealdesk/dealdesk/internal/auth"
)

// Users is the mongo-backed auth.UserStore.
type Users struct {
	coll *mongo.Collection
}

var _ auth.UserStore = (*Users)(nil)

// NewUsers creates the users repository.
func NewUsers(db *mongo.Database) *Users {
	return &Users{coll: db.Collection(usersCollection)}
}

// Create hashes the password, applies defaults and inserts the record.
// A duplicate email is reported as a conflict via the unique index.
func (r *Users) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	record := *user
	if err := prepareUserDefaults(&record); err != nil {
		return nil, err
	}

	res, err := r.coll.InsertOne(ctx, &record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, goerrors.New("email already registered", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert user").
			WithCode(goerrors.CodeInternal)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		record.ID = id
	}

	return &record, nil
}

// GetByEmail returns the full record including the password hash; callers
// use it for credential verification only.
func (r *Users) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	user := &auth.User{}
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(user)
	if err != nil {
		if goerrors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("user", email)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query user by email").
			WithCode(goerrors.CodeInternal)
	}
	return user, nil
}

// GetByID returns the record with the password excluded in the projection.
func (r *Users) GetByID(ctx context.Context, id string) (*auth.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound("user", id)
	}

	user := &auth.User{}
	err = r.coll.FindOne(ctx, bson.M{"_id": oid},
		options.FindOne().SetProjection(bson.M{"password": 0}),
	).Decode(user)
	if err != nil {
		if goerrors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("user", id)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query user by id").
			WithCode(goerrors.CodeInternal)
	}
	return user, nil
}

// prepareUserDefaults is the write-path hook: it hashes the cleartext
// password and stamps role and creation time before persisting.
func prepareUserDefaults(record *auth.User) error {
	hash, err := auth.HashPassword(record.Password)
	if err != nil {
		return err
	}
	record.Password = hash

	if record.Role == "" {
		record.Role = auth.RoleUser
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	return nil
}

func notFound(kind, identifier string) error {
	return goerrors.New(kind+" not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{"identifier": identifier})
}
