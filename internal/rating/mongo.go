package rating

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shifa-care/shifa_wallet/internal/ledger"
)

type aggregateDoc struct {
	ProviderID string    `bson:"_id"`
	Count      int64     `bson:"reviewsCount"`
	Sum        int64     `bson:"ratingSum"`
	Version    int64     `bson:"version"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

// MongoStore keeps aggregates in the provider_ratings collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore builds a store on db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection("provider_ratings")}
}

// Get loads a provider's aggregate.
func (s *MongoStore) Get(ctx context.Context, providerID string) (Aggregate, error) {
	var doc aggregateDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": providerID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Aggregate{}, ErrNotFound
		}
		return Aggregate{}, err
	}
	return Aggregate{
		ProviderID: doc.ProviderID,
		Count:      doc.Count,
		Sum:        doc.Sum,
		Version:    doc.Version,
		UpdatedAt:  doc.UpdatedAt.UTC(),
	}, nil
}

// Save inserts the first aggregate or replaces the stored one at the expected version.
func (s *MongoStore) Save(ctx context.Context, agg Aggregate, expected int64) error {
	doc := aggregateDoc{
		ProviderID: agg.ProviderID,
		Count:      agg.Count,
		Sum:        agg.Sum,
		Version:    agg.Version,
		UpdatedAt:  agg.UpdatedAt.UTC(),
	}
	if expected == 0 {
		_, err := s.coll.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrConflict
		}
		return err
	}
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": agg.ProviderID, "version": expected}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ledger.ErrConflict
	}
	return nil
}
