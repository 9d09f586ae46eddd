package ledger

import (
	"context"

	"github.com/shifa-care/shifa_wallet/internal/keylock"
)

// Projector derives balances from the ledger.
type Projector struct {
	store Store
	locks *keylock.Locker
}

// NewProjector builds a projector over a store. Audits taken through a projector
// created here do not coordinate with a Guard; use Guard.Projector for that.
func NewProjector(store Store) *Projector {
	return &Projector{store: store, locks: keylock.New()}
}

// Audit compares the cached balance with a full replay of the account's entries.
type Audit struct {
	AccountID  string `json:"account_id"`
	Cached     int64  `json:"cached_balance"`
	Replayed   int64  `json:"replayed_balance"`
	Entries    int    `json:"entries"`
	Consistent bool   `json:"consistent"`
}

// CurrentBalance returns the cached projection.
func (p *Projector) CurrentBalance(ctx context.Context, accountID string) (int64, error) {
	return p.store.Balance(ctx, accountID)
}

// Replay folds every entry of the account, page by page.
func (p *Projector) Replay(ctx context.Context, accountID string) (int64, error) {
	total, _, err := p.fold(ctx, accountID)
	return total, err
}

// Audit replays the account while holding its lock so no append lands between the
// cached read and the fold.
func (p *Projector) Audit(ctx context.Context, accountID string) (Audit, error) {
	return keylock.Do(ctx, p.locks, accountKey(accountID), func(ctx context.Context) (Audit, error) {
		cached, err := p.store.Balance(ctx, accountID)
		if err != nil {
			return Audit{}, err
		}
		replayed, count, err := p.fold(ctx, accountID)
		if err != nil {
			return Audit{}, err
		}
		return Audit{
			AccountID:  accountID,
			Cached:     cached,
			Replayed:   replayed,
			Entries:    count,
			Consistent: cached == replayed,
		}, nil
	})
}

func (p *Projector) fold(ctx context.Context, accountID string) (int64, int, error) {
	var (
		total  int64
		count  int
		cursor string
	)
	for {
		page, err := p.store.Entries(ctx, accountID, cursor, MaxLimit)
		if err != nil {
			return 0, 0, err
		}
		for _, e := range page.Entries {
			total += e.Signed()
		}
		count += len(page.Entries)
		if page.NextCursor == "" {
			return total, count, nil
		}
		cursor = page.NextCursor
	}
}
