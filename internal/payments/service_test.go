package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/shifa-care/shifa_wallet/internal/ledger"
	"github.com/shifa-care/shifa_wallet/internal/logging"
	"github.com/shifa-care/shifa_wallet/internal/notification"
	"github.com/shifa-care/shifa_wallet/internal/wallet"
)

type testNotifier struct {
	last  notification.Message
	count int
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.last = msg
	n.count++
	return nil
}

func setup(t *testing.T, seed int64) (*Service, *testNotifier, string) {
	t.Helper()
	ctx := context.Background()
	led := ledger.NewInMemory()
	guard := ledger.NewGuard(led, ledger.WithRetryBase(time.Millisecond))
	walletSvc := wallet.NewService(wallet.NewMemoryRepository(), led, "EGP")
	w, err := walletSvc.Create(ctx, wallet.CreateInput{OwnerID: "patient-1"})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if seed > 0 {
		if _, err := guard.ApplyCredit(ctx, w.AccountID, seed, "seed", "seed"); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	notifier := &testNotifier{}
	return NewService(guard, walletSvc, notifier, logging.Discard()), notifier, w.AccountID
}

func TestChargeDebitsOnce(t *testing.T) {
	ctx := context.Background()
	svc, notifier, account := setup(t, 10_000)

	res, err := svc.Charge(ctx, OrderInput{AccountID: account, OrderID: "order-1", Amount: 3_500})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if res.Balance != 6_500 {
		t.Fatalf("expected balance 6500, got %d", res.Balance)
	}
	if notifier.last.Event != notification.EventWalletDebited || notifier.last.AccountID != account {
		t.Fatalf("unexpected notification %+v", notifier.last)
	}

	again, err := svc.Charge(ctx, OrderInput{AccountID: account, OrderID: "order-1", Amount: 3_500})
	if !errors.Is(err, ledger.ErrDuplicateReference) {
		t.Fatalf("expected duplicate reference, got %v", err)
	}
	if !again.Replayed || again.Entry.ID != res.Entry.ID || again.Balance != 6_500 {
		t.Fatalf("unexpected replay %+v", again)
	}
	if notifier.count != 1 {
		t.Fatalf("expected one notification, got %d", notifier.count)
	}
}

func TestChargeInsufficientBalance(t *testing.T) {
	svc, notifier, account := setup(t, 1_000)
	_, err := svc.Charge(context.Background(), OrderInput{AccountID: account, OrderID: "order-2", Amount: 1_001})
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if notifier.count != 0 {
		t.Fatal("no notification expected for a failed charge")
	}
}

func TestRefundCreditsOrder(t *testing.T) {
	ctx := context.Background()
	svc, _, account := setup(t, 5_000)
	if _, err := svc.Charge(ctx, OrderInput{AccountID: account, OrderID: "order-3", Amount: 5_000}); err != nil {
		t.Fatalf("charge: %v", err)
	}
	res, err := svc.Refund(ctx, OrderInput{AccountID: account, OrderID: "order-3", Amount: 5_000})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if res.Balance != 5_000 || res.Entry.Kind != ledger.KindCredit {
		t.Fatalf("unexpected refund %+v", res)
	}
}

func TestRefundRequiresPriorCharge(t *testing.T) {
	ctx := context.Background()
	svc, notifier, account := setup(t, 0)

	_, err := svc.Refund(ctx, OrderInput{AccountID: account, OrderID: "never-charged", Amount: 100_000_000})
	if !errors.Is(err, ErrNoCharge) {
		t.Fatalf("expected no charge, got %v", err)
	}
	balance, _ := svc.guard.Store().Balance(ctx, account)
	if balance != 0 || notifier.count != 0 {
		t.Fatalf("refund without a charge moved money: balance %d, notifications %d", balance, notifier.count)
	}
}

func TestRefundCappedAtChargedAmount(t *testing.T) {
	ctx := context.Background()
	svc, _, account := setup(t, 5_000)
	if _, err := svc.Charge(ctx, OrderInput{AccountID: account, OrderID: "order-4", Amount: 2_000}); err != nil {
		t.Fatalf("charge: %v", err)
	}

	if _, err := svc.Refund(ctx, OrderInput{AccountID: account, OrderID: "order-4", Amount: 2_001}); !errors.Is(err, ErrRefundExceedsCharge) {
		t.Fatalf("expected refund exceeds charge, got %v", err)
	}
	res, err := svc.Refund(ctx, OrderInput{AccountID: account, OrderID: "order-4", Amount: 1_500})
	if err != nil {
		t.Fatalf("partial refund: %v", err)
	}
	if res.Balance != 4_500 {
		t.Fatalf("expected balance 4500, got %d", res.Balance)
	}
	if _, err := svc.Refund(ctx, OrderInput{AccountID: account, OrderID: "order-4", Amount: 500}); !errors.Is(err, ledger.ErrDuplicateReference) {
		t.Fatalf("expected second refund to replay, got %v", err)
	}
}

func TestChargeValidation(t *testing.T) {
	svc, _, account := setup(t, 0)
	tests := []struct {
		name string
		in   OrderInput
		want error
	}{
		{"zero amount", OrderInput{AccountID: account, OrderID: "o", Amount: 0}, ledger.ErrInvalidAmount},
		{"missing order", OrderInput{AccountID: account, OrderID: " ", Amount: 10}, ErrOrderRequired},
		{"unknown wallet", OrderInput{AccountID: "ghost", OrderID: "o", Amount: 10}, wallet.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Charge(context.Background(), tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestHandlerChargeReplayReturns200(t *testing.T) {
	svc, _, account := setup(t, 10_000)
	h := NewHandler(svc)
	app := fiber.New()
	app.Post("/wallets/:accountId/charges", h.Charge)

	post := func(body string) (int, map[string]any) {
		req := httptest.NewRequest(fiber.MethodPost, "/wallets/"+account+"/charges", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		out := map[string]any{}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	status, body := post(`{"order_id":"order-9","amount":"25.00"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if body["balance"] != "75.00" {
		t.Fatalf("unexpected balance %v", body["balance"])
	}

	status, body = post(`{"order_id":"order-9","amount":"25.00"}`)
	if status != fiber.StatusOK || body["replayed"] != true {
		t.Fatalf("expected replay, got %d %v", status, body)
	}

	status, _ = post(`{"order_id":"order-10","amount":"500"}`)
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", status)
	}
}
