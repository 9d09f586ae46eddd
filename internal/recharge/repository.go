package recharge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists recharge requests. Transition only succeeds for pending
// requests and fails with ErrAlreadyDecided otherwise.
type Repository interface {
	Create(ctx context.Context, req Request) error
	Get(ctx context.Context, id string) (Request, error)
	Transition(ctx context.Context, id string, out Outcome) (Request, error)
	List(ctx context.Context, f Filter) ([]Request, int, error)
}

const requestColumns = `id, account_id, amount, payment_method, from_phone_number, proof_reference,
        status, admin_note, decided_by, created_at, updated_at`

// PostgresRepository stores recharge requests in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a pending request.
func (r *PostgresRepository) Create(ctx context.Context, req Request) error {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO recharge_requests (`+requestColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, req.AccountID, req.Amount, req.PaymentMethod, req.FromPhoneNumber, req.ProofReference,
		string(req.Status), req.AdminNote, req.DecidedBy, req.CreatedAt.UTC(), req.UpdatedAt.UTC())
	return err
}

// Get fetches a request by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Request, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return Request{}, ErrNotFound
	}
	req, err := scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM recharge_requests WHERE id = $1`, reqID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	return req, err
}

// Transition moves a pending request to its terminal state with a conditional update.
func (r *PostgresRepository) Transition(ctx context.Context, id string, out Outcome) (Request, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return Request{}, ErrNotFound
	}
	req, err := scanRequest(r.db.QueryRow(ctx, `UPDATE recharge_requests
        SET status = $2, admin_note = $3, decided_by = $4, updated_at = $5
        WHERE id = $1 AND status = 'pending'
        RETURNING `+requestColumns, reqID, string(out.Status), out.AdminNote, out.DecidedBy, out.At.UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return Request{}, getErr
		}
		return Request{}, ErrAlreadyDecided
	}
	return req, err
}

// List returns a page of requests matching the filter, newest first, and the total count.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Request, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.AccountID != "" {
		args = append(args, f.AccountID)
		where = append(where, fmt.Sprintf("account_id = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM recharge_requests`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.offset())
	rows, err := r.db.Query(ctx, `SELECT `+requestColumns+` FROM recharge_requests`+clause+
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Request, 0, f.Limit)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, req)
	}
	return out, total, rows.Err()
}

func scanRequest(row pgx.Row) (Request, error) {
	var (
		req       Request
		id        uuid.UUID
		status    string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &req.AccountID, &req.Amount, &req.PaymentMethod, &req.FromPhoneNumber, &req.ProofReference,
		&status, &req.AdminNote, &req.DecidedBy, &createdAt, &updatedAt); err != nil {
		return Request{}, err
	}
	req.ID = id.String()
	req.Status = Status(status)
	req.CreatedAt = createdAt.UTC()
	req.UpdatedAt = updatedAt.UTC()
	return req, nil
}
