package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type walletDoc struct {
	AccountID string    `bson:"_id"`
	OwnerID   string    `bson:"ownerId"`
	Currency  string    `bson:"currency"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"createdAt"`
}

// MongoRepository stores wallets in the wallets collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository builds a repository on db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection("wallets")}
}

// EnsureIndexes enforces one wallet per owner.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ownerId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("owner_unique"),
	})
	if err != nil {
		return fmt.Errorf("create wallet indexes: %w", err)
	}
	return nil
}

// Create inserts a wallet document.
func (r *MongoRepository) Create(ctx context.Context, wallet Wallet) error {
	_, err := r.coll.InsertOne(ctx, walletDoc{
		AccountID: wallet.AccountID,
		OwnerID:   wallet.OwnerID,
		Currency:  wallet.Currency,
		Status:    wallet.Status,
		CreatedAt: wallet.CreatedAt.UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return err
}

// Get fetches a wallet by account identifier.
func (r *MongoRepository) Get(ctx context.Context, accountID string) (Wallet, error) {
	return r.findOne(ctx, bson.M{"_id": accountID})
}

// GetByOwner fetches the wallet owned by a platform user.
func (r *MongoRepository) GetByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	return r.findOne(ctx, bson.M{"ownerId": ownerID})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (Wallet, error) {
	var doc walletDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	return Wallet{
		AccountID: doc.AccountID,
		OwnerID:   doc.OwnerID,
		Currency:  doc.Currency,
		Status:    doc.Status,
		CreatedAt: doc.CreatedAt.UTC(),
	}, nil
}
