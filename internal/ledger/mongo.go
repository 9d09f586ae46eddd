package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	accountsCollection = "wallet_accounts"
	entriesCollection  = "wallet_transactions"
)

type accountDoc struct {
	ID        string    `bson:"_id"`
	Balance   int64     `bson:"balance"`
	Version   int64     `bson:"version"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type entryDoc struct {
	ID          string    `bson:"_id"`
	AccountID   string    `bson:"userId"`
	Kind        string    `bson:"type"`
	Amount      int64     `bson:"amount"`
	ReferenceID string    `bson:"referenceId"`
	Description string    `bson:"description"`
	CreatedAt   time.Time `bson:"createdAt"`
}

func (d entryDoc) entry() (Entry, error) {
	kind, err := ParseKind(d.Kind)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:          d.ID,
		AccountID:   d.AccountID,
		Kind:        kind,
		Amount:      d.Amount,
		ReferenceID: d.ReferenceID,
		Description: d.Description,
		CreatedAt:   d.CreatedAt.UTC(),
	}, nil
}

// MongoStore keeps entries and cached balances in MongoDB. Each append runs in a
// multi-document transaction and bumps the account version with a conditional update,
// so a lost race surfaces as ErrConflict.
type MongoStore struct {
	client   *mongo.Client
	accounts *mongo.Collection
	entries  *mongo.Collection
}

// NewMongoStore binds the store to the given database.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{
		client:   client,
		accounts: db.Collection(accountsCollection),
		entries:  db.Collection(entriesCollection),
	}
}

// EnsureIndexes creates the idempotency and paging indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.entries.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "referenceId", Value: 1}, {Key: "type", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("user_reference_type_unique"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("user_created_id"),
		},
	})
	if err != nil {
		return fmt.Errorf("create ledger indexes: %w", err)
	}
	return nil
}

// EnsureAccount upserts an empty account document.
func (s *MongoStore) EnsureAccount(ctx context.Context, accountID string) error {
	now := time.Now().UTC()
	_, err := s.accounts.UpdateOne(ctx,
		bson.M{"_id": accountID},
		bson.M{"$setOnInsert": bson.M{"balance": int64(0), "version": int64(0), "createdAt": now, "updatedAt": now}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Balance returns the cached balance for the account.
func (s *MongoStore) Balance(ctx context.Context, accountID string) (int64, error) {
	var acct accountDoc
	if err := s.accounts.FindOne(ctx, bson.M{"_id": accountID}).Decode(&acct); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return acct.Balance, nil
}

// Append applies the entry inside a transaction.
func (s *MongoStore) Append(ctx context.Context, entry Entry) (Entry, error) {
	if err := entry.validate(); err != nil {
		return Entry{}, err
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return Entry{}, err
	}
	defer sess.EndSession(ctx)

	var existing Entry
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var acct accountDoc
		if err := s.accounts.FindOne(sc, bson.M{"_id": entry.AccountID}).Decode(&acct); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrAccountNotFound
			}
			return nil, err
		}

		var dup entryDoc
		err := s.entries.FindOne(sc, bson.M{
			"userId":      entry.AccountID,
			"referenceId": entry.ReferenceID,
			"type":        string(entry.Kind),
		}).Decode(&dup)
		if err == nil {
			if existing, err = dup.entry(); err != nil {
				return nil, err
			}
			return nil, ErrDuplicateReference
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		if entry.Kind == KindDebit && acct.Balance < entry.Amount {
			return nil, ErrInsufficientBalance
		}

		if _, err := s.entries.InsertOne(sc, entryDoc{
			ID:          entry.ID,
			AccountID:   entry.AccountID,
			Kind:        string(entry.Kind),
			Amount:      entry.Amount,
			ReferenceID: entry.ReferenceID,
			Description: entry.Description,
			CreatedAt:   entry.CreatedAt.UTC(),
		}); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, ErrConflict
			}
			return nil, err
		}

		res, err := s.accounts.UpdateOne(sc,
			bson.M{"_id": entry.AccountID, "version": acct.Version},
			bson.M{
				"$inc": bson.M{"balance": entry.Signed(), "version": int64(1)},
				"$set": bson.M{"updatedAt": time.Now().UTC()},
			},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, ErrConflict
		}
		return nil, nil
	})
	switch {
	case err == nil:
		return entry, nil
	case errors.Is(err, ErrDuplicateReference):
		return existing, ErrDuplicateReference
	case isTransientMongo(err):
		return Entry{}, fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return Entry{}, err
	}
}

// Entries returns one page of the account's entries in ascending order.
func (s *MongoStore) Entries(ctx context.Context, accountID, cursor string, limit int) (Page, error) {
	after, err := ParseCursor(cursor)
	if err != nil {
		return Page{}, err
	}
	limit = NormalizeLimit(limit)

	if _, err := s.Balance(ctx, accountID); err != nil {
		return Page{}, err
	}

	filter := bson.M{"userId": accountID}
	if after != nil {
		filter["$or"] = bson.A{
			bson.M{"createdAt": bson.M{"$gt": after.CreatedAt}},
			bson.M{"createdAt": after.CreatedAt, "_id": bson.M{"$gt": after.ID}},
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit + 1))
	cur, err := s.entries.Find(ctx, filter, opts)
	if err != nil {
		return Page{}, err
	}
	defer cur.Close(ctx)

	var docs []entryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return Page{}, err
	}
	entries := make([]Entry, 0, len(docs))
	for _, d := range docs {
		e, err := d.entry()
		if err != nil {
			return Page{}, err
		}
		entries = append(entries, e)
	}
	return pageFrom(entries, limit), nil
}

// Lookup returns the entry recorded for the reference and kind.
func (s *MongoStore) Lookup(ctx context.Context, accountID string, kind Kind, referenceID string) (Entry, error) {
	var doc entryDoc
	err := s.entries.FindOne(ctx, bson.M{
		"userId":      accountID,
		"referenceId": referenceID,
		"type":        string(kind),
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	return doc.entry()
}

func isTransientMongo(err error) bool {
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) {
		return labeled.HasErrorLabel("TransientTransactionError") || labeled.HasErrorLabel("UnknownTransactionCommitResult")
	}
	return errors.Is(err, ErrConflict)
}
