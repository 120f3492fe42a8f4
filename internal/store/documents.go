package store

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FileRef points at an uploaded PDF in object storage.
type FileRef struct {
	Key  string `bson:"key" json:"key"`
	URL  string `bson:"url" json:"url"`
	Name string `bson:"name" json:"name"`
	Size int64  `bson:"size" json:"size"`
}

// Document is the shared shape of offers, invitations and protocols.
type Document struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	File        *FileRef           `bson:"file,omitempty" json:"file,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// DocumentUpdate carries the mutable fields for an update. Nil pointers
// leave the stored value untouched.
type DocumentUpdate struct {
	Title       *string
	Description *string
	File        *FileRef
}

// Documents is a repository over one of the three document collections.
type Documents struct {
	coll *mongo.Collection
	kind string
}

// NewOffers, NewInvitations and NewProtocols instantiate the shared
// repository for each resource collection.
func NewOffers(db *mongo.Database) *Documents {
	return &Documents{coll: db.Collection(offersCollection), kind: "offer"}
}

func NewInvitations(db *mongo.Database) *Documents {
	return &Documents{coll: db.Collection(invitationsCollection), kind: "invitation"}
}

func NewProtocols(db *mongo.Database) *Documents {
	return &Documents{coll: db.Collection(protocolsCollection), kind: "protocol"}
}

// List returns all documents, newest first.
func (r *Documents) List(ctx context.Context) ([]*Document, error) {
	cursor, err := r.coll.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list "+r.kind+"s").
			WithCode(goerrors.CodeInternal)
	}

	docs := []*Document{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode "+r.kind+"s").
			WithCode(goerrors.CodeInternal)
	}
	return docs, nil
}

// GetByID returns one document.
func (r *Documents) GetByID(ctx context.Context, id string) (*Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound(r.kind, id)
	}

	doc := &Document{}
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(doc); err != nil {
		if goerrors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(r.kind, id)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query "+r.kind).
			WithCode(goerrors.CodeInternal)
	}
	return doc, nil
}

// Create inserts a document, stamping both timestamps.
func (r *Documents) Create(ctx context.Context, doc *Document) (*Document, error) {
	record := *doc
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	res, err := r.coll.InsertOne(ctx, &record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert "+r.kind).
			WithCode(goerrors.CodeInternal)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		record.ID = id
	}
	return &record, nil
}

// Update applies the non-nil fields and refreshes updatedAt, returning the
// updated document.
func (r *Documents) Update(ctx context.Context, id string, update DocumentUpdate) (*Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound(r.kind, id)
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.File != nil {
		set["file"] = update.File
	}

	doc := &Document{}
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(doc)
	if err != nil {
		if goerrors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(r.kind, id)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update "+r.kind).
			WithCode(goerrors.CodeInternal)
	}
	return doc, nil
}

// Delete removes a document and returns the removed record so callers can
// clean up the stored PDF.
func (r *Documents) Delete(ctx context.Context, id string) (*Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound(r.kind, id)
	}

	doc := &Document{}
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(doc); err != nil {
		if goerrors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(r.kind, id)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete "+r.kind).
			WithCode(goerrors.CodeInternal)
	}
	return doc, nil
}

// Kind returns the singular resource name, used in storage keys and logs.
func (r *Documents) Kind() string {
	return r.kind
}
