package rating

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shifa-care/shifa_wallet/internal/ledger"
	"github.com/shifa-care/shifa_wallet/internal/logging"
)

func newService(store Store) *Service {
	guard := ledger.NewGuard(ledger.NewInMemory(), ledger.WithRetryBase(time.Millisecond))
	return NewService(store, guard, nil, logging.Discard())
}

func TestRateComputesRoundedAverage(t *testing.T) {
	ctx := context.Background()
	svc := newService(NewMemoryStore())

	for _, stars := range []int{5, 4, 4} {
		_, err := svc.Rate(ctx, "doc-1", stars)
		require.NoError(t, err)
	}
	agg, err := svc.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), agg.Count)
	assert.Equal(t, int64(13), agg.Sum)
	assert.Equal(t, "4.33", agg.Average().StringFixed(2))
}

func TestRateRejectsOutOfRange(t *testing.T) {
	svc := newService(NewMemoryStore())
	for _, stars := range []int{0, 6, -1} {
		_, err := svc.Rate(context.Background(), "doc-1", stars)
		assert.ErrorIs(t, err, ErrInvalidStars)
	}
	_, err := svc.Get(context.Background(), "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentRatingsAreAllCounted(t *testing.T) {
	ctx := context.Background()
	svc := newService(NewMemoryStore())

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Rate(ctx, "doc-2", i%5+1); err != nil {
				t.Errorf("rate: %v", err)
			}
		}(i)
	}
	wg.Wait()

	agg, err := svc.Get(ctx, "doc-2")
	require.NoError(t, err)
	assert.Equal(t, int64(n), agg.Count)
	assert.Equal(t, int64(n/5*15), agg.Sum)
	assert.Equal(t, "3.00", agg.Average().StringFixed(2))
}

// staleOnce serves a stale read to the first Save so the version check trips.
type staleOnce struct {
	Store
	once sync.Once
}

func (s *staleOnce) Save(ctx context.Context, agg Aggregate, expected int64) error {
	s.once.Do(func() {
		_ = s.Store.Save(ctx, Aggregate{ProviderID: agg.ProviderID, Count: 1, Sum: 1, Version: 1}, 0)
	})
	return s.Store.Save(ctx, agg, expected)
}

func TestRateRetriesVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := &staleOnce{Store: NewMemoryStore()}
	svc := newService(store)

	agg, err := svc.Rate(ctx, "doc-3", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), agg.Count)
	assert.Equal(t, int64(6), agg.Sum)
	assert.Equal(t, int64(2), agg.Version)
}

func TestHandlerRate(t *testing.T) {
	svc := newService(NewMemoryStore())
	h := NewHandler(svc)
	app := fiber.New()
	app.Post("/providers/:providerId/ratings", h.Rate)
	app.Get("/providers/:providerId/rating", h.Get)

	req := httptest.NewRequest(fiber.MethodPost, "/providers/doc-9/ratings", strings.NewReader(`{"rating":4}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodPost, "/providers/doc-9/ratings", strings.NewReader(`{"rating":9}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/providers/unknown/rating", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
