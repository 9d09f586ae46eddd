// Package rating keeps per-provider review aggregates. Every update goes through
// the ledger guard's keyed serialization so concurrent ratings are never lost.
package rating

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shifa-care/shifa_wallet/internal/ledger"
)

var (
	// ErrNotFound indicates the provider has not been rated yet.
	ErrNotFound = errors.New("provider rating not found")
	// ErrInvalidStars indicates a rating outside 1..5.
	ErrInvalidStars = errors.New("rating must be between 1 and 5")
)

const (
	MinStars = 1
	MaxStars = 5
)

// Aggregate is the running rating of a provider. Sum and Count are exact; Average
// is derived from them.
type Aggregate struct {
	ProviderID string
	Count      int64
	Sum        int64
	Version    int64
	UpdatedAt  time.Time
}

// Average returns Sum/Count rounded to two decimals, or zero when unrated.
func (a Aggregate) Average() decimal.Decimal {
	if a.Count == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(a.Sum).Div(decimal.NewFromInt(a.Count)).Round(2)
}

// Store persists aggregates. Save writes agg only if the stored version equals
// expected (zero meaning "not stored yet") and fails with ledger.ErrConflict otherwise.
type Store interface {
	Get(ctx context.Context, providerID string) (Aggregate, error)
	Save(ctx context.Context, agg Aggregate, expected int64) error
}

type memoryStore struct {
	mu   sync.RWMutex
	aggs map[string]Aggregate
}

// NewMemoryStore constructs an in-memory store for tests and development.
func NewMemoryStore() Store {
	return &memoryStore{aggs: make(map[string]Aggregate)}
}

func (s *memoryStore) Get(_ context.Context, providerID string) (Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agg, ok := s.aggs[providerID]
	if !ok {
		return Aggregate{}, ErrNotFound
	}
	return agg, nil
}

func (s *memoryStore) Save(_ context.Context, agg Aggregate, expected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aggs[agg.ProviderID].Version != expected {
		return ledger.ErrConflict
	}
	s.aggs[agg.ProviderID] = agg
	return nil
}
