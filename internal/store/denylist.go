package store

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dealdesk/dealdesk/internal/auth"
)

// DeniedToken marks one refresh-token string as revoked. The TTL index on
// createdAt removes the entry after the retention window, independent of
// the token's own embedded expiry.
type DeniedToken struct {
	Token     string    `bson:"token"`
	CreatedAt time.Time `bson:"createdAt"`
}

// Denylist is the mongo-backed auth.TokenDenylist.
type Denylist struct {
	coll *mongo.Collection
}

var _ auth.TokenDenylist = (*Denylist)(nil)

// NewDenylist creates the denied-tokens repository.
func NewDenylist(db *mongo.Database) *Denylist {
	return &Denylist{coll: db.Collection(deniedTokensCollection)}
}

// Add inserts an entry for the token string. Inserting the same string
// twice just yields two entries with the same effect, so logout stays
// idempotent without a uniqueness check.
func (r *Denylist) Add(ctx context.Context, token string) error {
	_, err := r.coll.InsertOne(ctx, &DeniedToken{
		Token:     token,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert denylist entry").
			WithCode(goerrors.CodeInternal)
	}
	return nil
}

// Contains reports whether the exact token string is denylisted.
func (r *Denylist) Contains(ctx context.Context, token string) (bool, error) {
	err := r.coll.FindOne(ctx, bson.M{"token": token}).Err()
	if err != nil {
		if goerrors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query denylist").
			WithCode(goerrors.CodeInternal)
	}
	return true, nil
}
