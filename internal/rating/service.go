package rating

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shifa-care/shifa_wallet/internal/ledger"
	"github.com/shifa-care/shifa_wallet/internal/notification"
)

// Service records provider ratings.
type Service struct {
	store    Store
	guard    *ledger.Guard
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the rating service.
func NewService(store Store, guard *ledger.Guard, notifier notification.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, guard: guard, notifier: notifier, logger: logger, now: time.Now}
}

// Rate folds one rating into the provider's aggregate.
func (s *Service) Rate(ctx context.Context, providerID string, stars int) (Aggregate, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return Aggregate{}, ErrNotFound
	}
	if stars < MinStars || stars > MaxStars {
		return Aggregate{}, ErrInvalidStars
	}

	var out Aggregate
	err := s.guard.ApplyAggregateUpdate(ctx, "provider:"+providerID, func(ctx context.Context) error {
		current, err := s.store.Get(ctx, providerID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		next := Aggregate{
			ProviderID: providerID,
			Count:      current.Count + 1,
			Sum:        current.Sum + int64(stars),
			Version:    current.Version + 1,
			UpdatedAt:  s.now().UTC().Truncate(time.Millisecond),
		}
		if err := s.store.Save(ctx, next, current.Version); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return Aggregate{}, err
	}

	if s.notifier != nil {
		if err := s.notifier.Send(ctx, notification.Message{
			Event:     notification.EventProviderRated,
			AccountID: providerID,
			Payload: map[string]any{
				"rating":        out.Average().StringFixed(2),
				"reviews_count": out.Count,
			},
		}); err != nil {
			s.logger.Warn("rating notification failed", "provider_id", providerID, "error", err)
		}
	}
	return out, nil
}

// Get returns the provider's aggregate.
func (s *Service) Get(ctx context.Context, providerID string) (Aggregate, error) {
	return s.store.Get(ctx, providerID)
}
