package rating

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shifa-care/shifa_wallet/internal/ledger"
)

// PostgresStore keeps aggregates in provider_ratings.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get loads a provider's aggregate.
func (s *PostgresStore) Get(ctx context.Context, providerID string) (Aggregate, error) {
	var (
		agg       Aggregate
		updatedAt time.Time
	)
	err := s.db.QueryRow(ctx, `SELECT provider_id, rating_count, rating_sum, version, updated_at
        FROM provider_ratings WHERE provider_id = $1`, providerID).
		Scan(&agg.ProviderID, &agg.Count, &agg.Sum, &agg.Version, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Aggregate{}, ErrNotFound
		}
		return Aggregate{}, err
	}
	agg.UpdatedAt = updatedAt.UTC()
	return agg, nil
}

// Save inserts the first aggregate or updates an existing one at the expected version.
func (s *PostgresStore) Save(ctx context.Context, agg Aggregate, expected int64) error {
	if expected == 0 {
		_, err := s.db.Exec(ctx, `INSERT INTO provider_ratings (provider_id, rating_count, rating_sum, version, updated_at)
            VALUES ($1, $2, $3, $4, $5)`, agg.ProviderID, agg.Count, agg.Sum, agg.Version, agg.UpdatedAt.UTC())
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ledger.ErrConflict
		}
		return err
	}

	tag, err := s.db.Exec(ctx, `UPDATE provider_ratings
        SET rating_count = $2, rating_sum = $3, version = $4, updated_at = $5
        WHERE provider_id = $1 AND version = $6`,
		agg.ProviderID, agg.Count, agg.Sum, agg.Version, agg.UpdatedAt.UTC(), expected)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrConflict
	}
	return nil
}
