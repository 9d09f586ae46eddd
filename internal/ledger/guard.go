package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/shifa-care/shifa_wallet/internal/keylock"
	"github.com/shifa-care/shifa_wallet/internal/metrics"
)

const (
	// MaxAttempts bounds how many times a conflicting write is attempted.
	MaxAttempts = 3

	defaultRetryBase = 20 * time.Millisecond
)

// Guard applies ledger entries exactly once per reference and serializes all
// balance-affecting work per account. It also offers the same serialization for
// arbitrary keyed aggregates.
type Guard struct {
	store     Store
	locks     *keylock.Locker
	metrics   *metrics.Ledger
	logger    *slog.Logger
	now       func() time.Time
	retryBase time.Duration
}

// GuardOption customises a Guard.
type GuardOption func(*Guard)

// WithMetrics records applied, rejected and conflicting writes.
func WithMetrics(m *metrics.Ledger) GuardOption {
	return func(g *Guard) { g.metrics = m }
}

// WithLogger sets the logger used for conflict diagnostics.
func WithLogger(l *slog.Logger) GuardOption {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClock overrides the entry timestamp source.
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// WithRetryBase sets the first backoff interval between conflicting attempts.
func WithRetryBase(d time.Duration) GuardOption {
	return func(g *Guard) {
		if d > 0 {
			g.retryBase = d
		}
	}
}

// NewGuard wraps a store.
func NewGuard(store Store, opts ...GuardOption) *Guard {
	g := &Guard{
		store:     store,
		locks:     keylock.New(),
		logger:    slog.Default(),
		now:       time.Now,
		retryBase: defaultRetryBase,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Store exposes the underlying ledger store for read paths.
func (g *Guard) Store() Store {
	return g.store
}

// Projector returns a balance projector that shares the guard's account locks.
func (g *Guard) Projector() *Projector {
	return &Projector{store: g.store, locks: g.locks}
}

// ApplyCredit adds amount to the account. A repeated referenceID returns the original
// entry together with ErrDuplicateReference.
func (g *Guard) ApplyCredit(ctx context.Context, accountID string, amount int64, referenceID, description string) (Entry, error) {
	return g.apply(ctx, KindCredit, accountID, amount, referenceID, description)
}

// ApplyDebit subtracts amount from the account, failing with ErrInsufficientBalance
// when the balance does not cover it.
func (g *Guard) ApplyDebit(ctx context.Context, accountID string, amount int64, referenceID, description string) (Entry, error) {
	return g.apply(ctx, KindDebit, accountID, amount, referenceID, description)
}

func (g *Guard) apply(ctx context.Context, kind Kind, accountID string, amount int64, referenceID, description string) (Entry, error) {
	if amount <= 0 {
		g.metrics.IncRejected(string(kind), "invalid_amount")
		return Entry{}, ErrInvalidAmount
	}
	if accountID == "" || referenceID == "" {
		g.metrics.IncRejected(string(kind), "invalid_entry")
		return Entry{}, fmt.Errorf("%w: account and reference are required", ErrInvalidEntry)
	}

	entry, err := keylock.Do(ctx, g.locks, accountKey(accountID), func(ctx context.Context) (Entry, error) {
		var out Entry
		err := g.withRetry(ctx, func(ctx context.Context) error {
			candidate := Entry{
				ID:          uuid.NewString(),
				AccountID:   accountID,
				Kind:        kind,
				Amount:      amount,
				ReferenceID: referenceID,
				Description: description,
				// Millisecond precision survives every backend unchanged.
				CreatedAt: g.now().UTC().Truncate(time.Millisecond),
			}
			appended, err := g.store.Append(ctx, candidate)
			out = appended
			return err
		})
		return out, err
	})

	switch {
	case err == nil:
		g.metrics.IncApplied(string(kind))
	case errors.Is(err, ErrDuplicateReference):
		g.metrics.IncRejected(string(kind), "duplicate_reference")
	case errors.Is(err, ErrInsufficientBalance):
		g.metrics.IncRejected(string(kind), "insufficient_balance")
	case errors.Is(err, ErrAccountNotFound):
		g.metrics.IncRejected(string(kind), "account_not_found")
	case errors.Is(err, ErrTransientConflict):
		g.metrics.IncRejected(string(kind), "conflict")
		g.logger.Warn("ledger conflict retries exhausted", "account_id", accountID, "reference_id", referenceID, "kind", kind)
	}
	return entry, err
}

// ApplyAggregateUpdate runs fn while holding key, retrying ErrConflict the same way
// entry appends are retried. fn must perform its own version-checked write.
func (g *Guard) ApplyAggregateUpdate(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if key == "" {
		return fmt.Errorf("aggregate key is required")
	}
	_, err := keylock.Do(ctx, g.locks, "aggregate:"+key, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.withRetry(ctx, fn)
	})
	return err
}

// withRetry retries fn on ErrConflict with exponential backoff and converts an
// exhausted conflict into ErrTransientConflict.
func (g *Guard) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(MaxAttempts-1, retry.NewExponential(g.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, ErrConflict) {
			g.metrics.IncConflict()
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, ErrConflict) {
		return fmt.Errorf("%w: %v", ErrTransientConflict, err)
	}
	return err
}

func accountKey(accountID string) string {
	return "account:" + accountID
}
