package recharge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/shifa-care/shifa_wallet/internal/keylock"
	"github.com/shifa-care/shifa_wallet/internal/ledger"
	"github.com/shifa-care/shifa_wallet/internal/metrics"
	"github.com/shifa-care/shifa_wallet/internal/notification"
	"github.com/shifa-care/shifa_wallet/internal/wallet"
)

// AccountLookup resolves wallet accounts.
type AccountLookup interface {
	Get(ctx context.Context, accountID string) (wallet.Wallet, error)
}

// Service drives the pending -> approved | rejected workflow. Approval credits the
// wallet through the ledger guard using the request id as the reference, so a
// request can never be credited twice.
type Service struct {
	repo     Repository
	accounts AccountLookup
	guard    *ledger.Guard
	notifier notification.Notifier
	metrics  *metrics.Ledger
	logger   *slog.Logger
	locks    *keylock.Locker
	now      func() time.Time

	retryBase time.Duration
}

const transitionAttempts = 3

// NewService wires the recharge workflow.
func NewService(repo Repository, accounts AccountLookup, guard *ledger.Guard, notifier notification.Notifier, m *metrics.Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		accounts: accounts,
		guard:    guard,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		locks:    keylock.New(),
		now:      time.Now,

		retryBase: 50 * time.Millisecond,
	}
}

// SubmitInput captures a user's recharge claim.
type SubmitInput struct {
	AccountID       string
	Amount          int64
	PaymentMethod   string
	FromPhoneNumber string
	ProofReference  string
}

// Submit records a pending request. Nothing touches the ledger until a decision.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Request, error) {
	if in.Amount <= 0 {
		return Request{}, ledger.ErrInvalidAmount
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = PaymentMethodVodafoneCash
	}
	if method != PaymentMethodVodafoneCash {
		return Request{}, fmt.Errorf("%w: unsupported payment method %q", ErrInvalidInput, method)
	}
	phone := strings.TrimSpace(in.FromPhoneNumber)
	if phone == "" {
		return Request{}, fmt.Errorf("%w: from phone number is required", ErrInvalidInput)
	}
	proof := strings.TrimSpace(in.ProofReference)
	if proof == "" {
		return Request{}, fmt.Errorf("%w: proof reference is required", ErrInvalidInput)
	}
	if _, err := s.accounts.Get(ctx, in.AccountID); err != nil {
		return Request{}, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	req := Request{
		ID:              uuid.NewString(),
		AccountID:       in.AccountID,
		Amount:          in.Amount,
		PaymentMethod:   method,
		FromPhoneNumber: phone,
		ProofReference:  proof,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return Request{}, err
	}

	s.notify(ctx, notification.EventRechargeSubmitted, req)
	return req, nil
}

// Decide approves or rejects a pending request. Approval applies the credit first;
// if the credit fails the request stays pending and may be decided again. If the
// credit lands but the request cannot be marked approved, the credit is reversed and
// the request can then only be rejected.
func (s *Service) Decide(ctx context.Context, id string, decision Decision, adminNote, decidedBy string) (Request, error) {
	if _, err := ParseDecision(string(decision)); err != nil {
		return Request{}, err
	}
	req, err := keylock.Do(ctx, s.locks, "recharge:"+id, func(ctx context.Context) (Request, error) {
		return s.decide(ctx, id, decision, adminNote, decidedBy)
	})
	if err != nil {
		return Request{}, err
	}

	s.metrics.IncDecision(string(req.Status))
	s.logger.Info("recharge decided",
		"recharge_id", req.ID,
		"account_id", req.AccountID,
		"status", req.Status,
		"amount", req.Amount,
		"decided_by", req.DecidedBy,
	)
	event := notification.EventRechargeRejected
	if req.Status == StatusApproved {
		event = notification.EventRechargeApproved
	}
	s.notify(ctx, event, req)
	return req, nil
}

func (s *Service) decide(ctx context.Context, id string, decision Decision, adminNote, decidedBy string) (Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, ErrAlreadyDecided
	}

	out := Outcome{
		Status:    decision.status(),
		AdminNote: strings.TrimSpace(adminNote),
		DecidedBy: decidedBy,
		At:        s.now().UTC().Truncate(time.Millisecond),
	}

	if decision == DecisionReject {
		// A credit left behind by an earlier failed approval is reversed first.
		if err := s.reverseCredit(ctx, req); err != nil {
			return Request{}, err
		}
		return s.transition(ctx, id, out)
	}

	if _, err := s.store().Lookup(ctx, req.AccountID, ledger.KindDebit, req.ID); err == nil {
		return Request{}, ErrCreditReversed
	} else if !errors.Is(err, ledger.ErrEntryNotFound) {
		return Request{}, err
	}

	_, err = s.guard.ApplyCredit(ctx, req.AccountID, req.Amount, req.ID, "wallet recharge approved")
	fresh := err == nil
	if err != nil && !errors.Is(err, ledger.ErrDuplicateReference) {
		return Request{}, fmt.Errorf("credit recharge %s: %w", req.ID, err)
	}

	updated, err := s.transition(ctx, id, out)
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, ErrAlreadyDecided):
		return Request{}, s.reconcileLostApproval(ctx, req)
	case fresh:
		if rerr := s.reverse(ctx, req); rerr != nil {
			return Request{}, multierr.Append(fmt.Errorf("approve recharge %s: %w", req.ID, err), rerr)
		}
		return Request{}, fmt.Errorf("approve recharge %s: %w", req.ID, err)
	default:
		return Request{}, err
	}
}

// transition retries infrastructure failures of the conditional update a few times.
// Lost races and missing requests are returned immediately.
func (s *Service) transition(ctx context.Context, id string, out Outcome) (Request, error) {
	var updated Request
	backoff := retry.WithMaxRetries(transitionAttempts-1, retry.NewExponential(s.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		updated, err = s.repo.Transition(ctx, id, out)
		if err == nil || errors.Is(err, ErrAlreadyDecided) || errors.Is(err, ErrNotFound) {
			return err
		}
		return retry.RetryableError(err)
	})
	return updated, err
}

// reconcileLostApproval runs when a credit landed but another writer decided the
// request first. If that writer rejected it, the credit is reversed.
func (s *Service) reconcileLostApproval(ctx context.Context, req Request) error {
	current, err := s.repo.Get(ctx, req.ID)
	if err != nil {
		return err
	}
	if current.Status == StatusApproved {
		return ErrAlreadyDecided
	}
	if err := s.reverse(ctx, req); err != nil {
		return err
	}
	return ErrAlreadyDecided
}

// reverseCredit debits back the request's credit if one was applied.
func (s *Service) reverseCredit(ctx context.Context, req Request) error {
	_, err := s.store().Lookup(ctx, req.AccountID, ledger.KindCredit, req.ID)
	if errors.Is(err, ledger.ErrEntryNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.reverse(ctx, req)
}

func (s *Service) reverse(ctx context.Context, req Request) error {
	_, err := s.guard.ApplyDebit(ctx, req.AccountID, req.Amount, req.ID, "wallet recharge reversal")
	if err != nil && !errors.Is(err, ledger.ErrDuplicateReference) {
		s.logger.Error("recharge reversal failed", "recharge_id", req.ID, "account_id", req.AccountID, "error", err)
		return fmt.Errorf("reverse recharge %s: %w", req.ID, err)
	}
	return nil
}

func (s *Service) store() ledger.Store {
	return s.guard.Store()
}

// Get returns a request by identifier.
func (s *Service) Get(ctx context.Context, id string) (Request, error) {
	return s.repo.Get(ctx, id)
}

// List returns requests matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) (ListResult, error) {
	f = f.normalized()
	requests, total, err := s.repo.List(ctx, f)
	if err != nil {
		return ListResult{}, err
	}
	return newListResult(requests, total, f), nil
}

func (s *Service) notify(ctx context.Context, event string, req Request) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, notification.Message{
		Event:     event,
		AccountID: req.AccountID,
		Payload: map[string]any{
			"recharge_id":  req.ID,
			"amount_minor": req.Amount,
			"status":       string(req.Status),
			"admin_note":   req.AdminNote,
		},
	}); err != nil {
		s.logger.Warn("recharge notification failed", "recharge_id", req.ID, "event", event, "error", err)
	}
}
