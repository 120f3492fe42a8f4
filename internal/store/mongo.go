// Package store holds the MongoDB persistence layer: user records, the
// refresh-token denylist, and the three document collections.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/dealdesk/dealdesk/internal/config"
)

// Collection names.
const (
	usersCollection        = "users"
	deniedTokensCollection = "deniedTokens"
	offersCollection       = "offers"
	invitationsCollection  = "invitations"
	protocolsCollection    = "protocols"
)

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, cfg config.Mongo) (*mongo.Database, error) {
	opts := options.Client().ApplyURI(cfg.URI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	return client.Database(cfg.Database), nil
}

// EnsureIndexes creates the indexes the application relies on: the unique
// email index that closes the check-then-insert registration race, and the
// TTL index that expires denylist entries after the retention window.
func EnsureIndexes(ctx context.Context, db *mongo.Database, denylistRetention time.Duration) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("store: users email index: %w", err)
	}

	_, err = db.Collection(deniedTokensCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(denylistRetention.Seconds())),
	})
	if err != nil {
		return fmt.Errorf("store: denylist ttl index: %w", err)
	}

	_, err = db.Collection(deniedTokensCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "token", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("store: denylist token index: %w", err)
	}

	return nil
}
