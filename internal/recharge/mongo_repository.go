package recharge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type requestDoc struct {
	ID              string    `bson:"_id"`
	AccountID       string    `bson:"userId"`
	Amount          int64     `bson:"amount"`
	PaymentMethod   string    `bson:"paymentMethod"`
	FromPhoneNumber string    `bson:"fromPhoneNumber"`
	ProofReference  string    `bson:"screenshot"`
	Status          string    `bson:"status"`
	AdminNote       string    `bson:"adminNote"`
	DecidedBy       string    `bson:"decidedBy,omitempty"`
	CreatedAt       time.Time `bson:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt"`
}

func toDoc(r Request) requestDoc {
	return requestDoc{
		ID:              r.ID,
		AccountID:       r.AccountID,
		Amount:          r.Amount,
		PaymentMethod:   r.PaymentMethod,
		FromPhoneNumber: r.FromPhoneNumber,
		ProofReference:  r.ProofReference,
		Status:          string(r.Status),
		AdminNote:       r.AdminNote,
		DecidedBy:       r.DecidedBy,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func (d requestDoc) request() Request {
	return Request{
		ID:              d.ID,
		AccountID:       d.AccountID,
		Amount:          d.Amount,
		PaymentMethod:   d.PaymentMethod,
		FromPhoneNumber: d.FromPhoneNumber,
		ProofReference:  d.ProofReference,
		Status:          Status(d.Status),
		AdminNote:       d.AdminNote,
		DecidedBy:       d.DecidedBy,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

// MongoRepository stores recharge requests in the walletrecharges collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository builds a repository on db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection("walletrecharges")}
}

// EnsureIndexes creates the listing indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create recharge indexes: %w", err)
	}
	return nil
}

// Create inserts a pending request.
func (r *MongoRepository) Create(ctx context.Context, req Request) error {
	_, err := r.coll.InsertOne(ctx, toDoc(req))
	return err
}

// Get fetches a request by identifier.
func (r *MongoRepository) Get(ctx context.Context, id string) (Request, error) {
	var doc requestDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Request{}, ErrNotFound
		}
		return Request{}, err
	}
	return doc.request(), nil
}

// Transition updates the request only while it is still pending.
func (r *MongoRepository) Transition(ctx context.Context, id string, out Outcome) (Request, error) {
	var doc requestDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": string(StatusPending)},
		bson.M{"$set": bson.M{
			"status":    string(out.Status),
			"adminNote": out.AdminNote,
			"decidedBy": out.DecidedBy,
			"updatedAt": out.At.UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return Request{}, getErr
		}
		return Request{}, ErrAlreadyDecided
	}
	if err != nil {
		return Request{}, err
	}
	return doc.request(), nil
}

// List returns a page of requests matching the filter, newest first, and the total count.
func (r *MongoRepository) List(ctx context.Context, f Filter) ([]Request, int, error) {
	query := bson.M{}
	if f.Status != "" {
		query["status"] = string(f.Status)
	}
	if f.AccountID != "" {
		query["userId"] = f.AccountID
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(f.offset())).
		SetLimit(int64(f.Limit))
	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var docs []requestDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]Request, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.request())
	}
	return out, int(total), nil
}
