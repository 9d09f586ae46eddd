package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// PostgresStore persists entries in PostgreSQL and keeps the cached balance in
// wallet_accounts, updated in the same transaction as each insert.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureAccount guarantees an account row exists for the identifier.
func (s *PostgresStore) EnsureAccount(ctx context.Context, accountID string) error {
	_, err := s.db.Exec(ctx, `INSERT INTO wallet_accounts (account_id) VALUES ($1)
        ON CONFLICT (account_id) DO NOTHING`, accountID)
	return err
}

// Balance returns the cached balance for the account.
func (s *PostgresStore) Balance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := s.db.QueryRow(ctx, `SELECT balance FROM wallet_accounts WHERE account_id = $1`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return balance, nil
}

// Append locks the account row, checks idempotency and funds, inserts the entry and
// moves the cached balance, all in one transaction.
func (s *PostgresStore) Append(ctx context.Context, entry Entry) (Entry, error) {
	if err := entry.validate(); err != nil {
		return Entry{}, err
	}
	entryID, err := uuid.Parse(entry.ID)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: entry id must be a uuid", ErrInvalidEntry)
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var balance int64
	if err := tx.QueryRow(ctx, `SELECT balance FROM wallet_accounts WHERE account_id = $1 FOR UPDATE`, entry.AccountID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrAccountNotFound
		}
		return Entry{}, classify(err)
	}

	existing, err := entryByReference(ctx, tx, entry.AccountID, entry.Kind, entry.ReferenceID)
	if err == nil {
		return existing, ErrDuplicateReference
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, err
	}

	if entry.Kind == KindDebit && balance < entry.Amount {
		return Entry{}, ErrInsufficientBalance
	}

	if _, err := tx.Exec(ctx, `INSERT INTO ledger_entries (id, account_id, kind, amount, reference_id, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entryID, entry.AccountID, string(entry.Kind), entry.Amount, entry.ReferenceID, entry.Description, entry.CreatedAt.UTC()); err != nil {
		return Entry{}, classify(err)
	}

	if _, err := tx.Exec(ctx, `UPDATE wallet_accounts SET balance = balance + $2, version = version + 1, updated_at = now()
        WHERE account_id = $1`, entry.AccountID, entry.Signed()); err != nil {
		return Entry{}, classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, classify(err)
	}
	return entry, nil
}

// Entries returns one page of the account's entries in ascending order.
func (s *PostgresStore) Entries(ctx context.Context, accountID, cursor string, limit int) (Page, error) {
	after, err := ParseCursor(cursor)
	if err != nil {
		return Page{}, err
	}
	limit = NormalizeLimit(limit)

	if _, err := s.Balance(ctx, accountID); err != nil {
		return Page{}, err
	}

	const columns = `SELECT id, account_id, kind, amount, reference_id, description, created_at FROM ledger_entries`
	var rows pgx.Rows
	if after == nil {
		rows, err = s.db.Query(ctx, columns+`
            WHERE account_id = $1
            ORDER BY created_at, id
            LIMIT $2`, accountID, limit+1)
	} else {
		afterID, perr := uuid.Parse(after.ID)
		if perr != nil {
			return Page{}, fmt.Errorf("invalid cursor id: %w", perr)
		}
		rows, err = s.db.Query(ctx, columns+`
            WHERE account_id = $1 AND (created_at, id) > ($2, $3)
            ORDER BY created_at, id
            LIMIT $4`, accountID, after.CreatedAt.UTC(), afterID, limit+1)
	}
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return Page{}, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}
	return pageFrom(entries, limit), nil
}

// Lookup returns the entry recorded for the reference and kind.
func (s *PostgresStore) Lookup(ctx context.Context, accountID string, kind Kind, referenceID string) (Entry, error) {
	e, err := entryByReference(ctx, s.db, accountID, kind, referenceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	return e, err
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func entryByReference(ctx context.Context, q rowQuerier, accountID string, kind Kind, referenceID string) (Entry, error) {
	row := q.QueryRow(ctx, `SELECT id, account_id, kind, amount, reference_id, description, created_at
        FROM ledger_entries WHERE account_id = $1 AND kind = $2 AND reference_id = $3`, accountID, string(kind), referenceID)
	return scanEntry(row)
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e    Entry
		id   uuid.UUID
		kind string
	)
	if err := row.Scan(&id, &e.AccountID, &kind, &e.Amount, &e.ReferenceID, &e.Description, &e.CreatedAt); err != nil {
		return Entry{}, err
	}
	k, err := ParseKind(kind)
	if err != nil {
		return Entry{}, err
	}
	e.ID = id.String()
	e.Kind = k
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

// classify maps retryable Postgres failures onto ErrConflict.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		}
	}
	return err
}
