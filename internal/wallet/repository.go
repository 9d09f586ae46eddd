package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists wallet metadata.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	Get(ctx context.Context, accountID string) (Wallet, error)
	GetByOwner(ctx context.Context, ownerID string) (Wallet, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet record.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) error {
	_, err := r.db.Exec(ctx, `INSERT INTO wallets (account_id, owner_id, currency, status, created_at)
        VALUES ($1, $2, $3, $4, $5)`, wallet.AccountID, wallet.OwnerID, wallet.Currency, wallet.Status, wallet.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}

// Get fetches wallet metadata by account identifier.
func (r *PostgresRepository) Get(ctx context.Context, accountID string) (Wallet, error) {
	return r.scanOne(ctx, `SELECT account_id, owner_id, currency, status, created_at
        FROM wallets WHERE account_id = $1`, accountID)
}

// GetByOwner fetches the wallet owned by a platform user.
func (r *PostgresRepository) GetByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	return r.scanOne(ctx, `SELECT account_id, owner_id, currency, status, created_at
        FROM wallets WHERE owner_id = $1`, ownerID)
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, arg string) (Wallet, error) {
	var w Wallet
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query, arg).Scan(&w.AccountID, &w.OwnerID, &w.Currency, &w.Status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	w.CreatedAt = createdAt.UTC()
	return w, nil
}
