package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shifa-care/shifa_wallet/internal/ledger"
	"github.com/shifa-care/shifa_wallet/internal/notification"
	"github.com/shifa-care/shifa_wallet/internal/wallet"
)

var (
	// ErrOrderRequired indicates the order reference is missing.
	ErrOrderRequired = errors.New("order id is required")
	// ErrNoCharge indicates a refund names an order the wallet never paid for.
	ErrNoCharge = errors.New("no wallet charge found for order")
	// ErrRefundExceedsCharge indicates a refund larger than the order's charge.
	ErrRefundExceedsCharge = errors.New("refund exceeds the charged amount")
)

// Service pays for orders out of a wallet and refunds cancelled orders. The order id
// is the ledger reference, so retrying a charge or refund never moves money twice.
type Service struct {
	guard         *ledger.Guard
	walletService *wallet.Service
	notifier      notification.Notifier
	logger        *slog.Logger
}

// NewService constructs a payment service.
func NewService(guard *ledger.Guard, walletService *wallet.Service, notifier notification.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{guard: guard, walletService: walletService, notifier: notifier, logger: logger}
}

// OrderInput identifies an order payment against a wallet.
type OrderInput struct {
	AccountID   string
	OrderID     string
	Amount      int64
	Description string
}

// Result describes the ledger outcome of a charge or refund.
type Result struct {
	Entry   ledger.Entry
	Balance int64
	// Replayed is set when the order was already applied and Entry is the original.
	Replayed bool
}

// Charge debits the wallet for an order. A repeated order id returns the original
// entry together with ledger.ErrDuplicateReference.
func (s *Service) Charge(ctx context.Context, in OrderInput) (Result, error) {
	return s.post(ctx, ledger.KindDebit, in)
}

// Refund credits an order amount back to the wallet. Only orders charged to the same
// wallet can be refunded, once, up to the charged amount.
func (s *Service) Refund(ctx context.Context, in OrderInput) (Result, error) {
	return s.post(ctx, ledger.KindCredit, in)
}

func (s *Service) checkRefund(ctx context.Context, accountID, orderID string, amount int64) error {
	charge, err := s.guard.Store().Lookup(ctx, accountID, ledger.KindDebit, orderID)
	if errors.Is(err, ledger.ErrEntryNotFound) {
		return fmt.Errorf("order %s: %w", orderID, ErrNoCharge)
	}
	if err != nil {
		return err
	}
	if amount > charge.Amount {
		return fmt.Errorf("order %s charged %d: %w", orderID, charge.Amount, ErrRefundExceedsCharge)
	}
	return nil
}

func (s *Service) post(ctx context.Context, kind ledger.Kind, in OrderInput) (Result, error) {
	if in.Amount <= 0 {
		return Result{}, ledger.ErrInvalidAmount
	}
	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		return Result{}, ErrOrderRequired
	}
	w, err := s.walletService.Get(ctx, in.AccountID)
	if err != nil {
		return Result{}, err
	}

	description := in.Description
	var entry ledger.Entry
	if kind == ledger.KindDebit {
		if description == "" {
			description = fmt.Sprintf("payment for order %s", orderID)
		}
		entry, err = s.guard.ApplyDebit(ctx, w.AccountID, in.Amount, orderID, description)
	} else {
		if err := s.checkRefund(ctx, w.AccountID, orderID, in.Amount); err != nil {
			return Result{}, err
		}
		if description == "" {
			description = fmt.Sprintf("refund for order %s", orderID)
		}
		entry, err = s.guard.ApplyCredit(ctx, w.AccountID, in.Amount, orderID, description)
	}

	replayed := errors.Is(err, ledger.ErrDuplicateReference)
	if err != nil && !replayed {
		return Result{}, err
	}

	balance, balErr := s.guard.Store().Balance(ctx, w.AccountID)
	if balErr != nil {
		return Result{}, balErr
	}
	res := Result{Entry: entry, Balance: balance, Replayed: replayed}
	if replayed {
		return res, err
	}

	event := notification.EventWalletDebited
	if kind == ledger.KindCredit {
		event = notification.EventWalletCredited
	}
	if s.notifier != nil {
		if nerr := s.notifier.Send(ctx, notification.Message{
			Event:     event,
			AccountID: w.AccountID,
			Payload: map[string]any{
				"order_id":      orderID,
				"amount_minor":  entry.Amount,
				"balance_minor": balance,
			},
		}); nerr != nil {
			s.logger.Warn("payment notification failed", "order_id", orderID, "error", nerr)
		}
	}
	return res, nil
}
