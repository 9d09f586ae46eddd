package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shifa-care/shifa_wallet/internal/ledger"
)

const defaultCurrency = "EGP"

// Service exposes wallet operations backed by the ledger.
type Service struct {
	repo     Repository
	ledger   ledger.Store
	currency string
}

// NewService builds a wallet service instance. An empty currency falls back to EGP.
func NewService(repo Repository, store ledger.Store, currency string) *Service {
	if currency == "" {
		currency = defaultCurrency
	}
	return &Service{repo: repo, ledger: store, currency: currency}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	OwnerID  string
	Currency string
}

// Create provisions a wallet and its ledger account. The ledger account is created
// first so a registered wallet always has somewhere to post entries.
func (s *Service) Create(ctx context.Context, input CreateInput) (Wallet, error) {
	ownerID := strings.TrimSpace(input.OwnerID)
	if ownerID == "" {
		return Wallet{}, ErrInvalidOwner
	}
	switch _, err := s.repo.GetByOwner(ctx, ownerID); {
	case err == nil:
		return Wallet{}, ErrAlreadyExists
	case !errors.Is(err, ErrNotFound):
		return Wallet{}, fmt.Errorf("lookup wallet for owner: %w", err)
	}

	accountID := uuid.NewString()
	if err := s.ledger.EnsureAccount(ctx, accountID); err != nil {
		return Wallet{}, err
	}

	currency := strings.ToUpper(input.Currency)
	if currency == "" {
		currency = s.currency
	}

	wallet := Wallet{
		AccountID: accountID,
		OwnerID:   ownerID,
		Currency:  currency,
		Status:    StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, wallet); err != nil {
		return Wallet{}, err
	}
	return wallet, nil
}

// Get retrieves wallet metadata.
func (s *Service) Get(ctx context.Context, accountID string) (Wallet, error) {
	return s.repo.Get(ctx, accountID)
}

// GetByOwner retrieves the wallet of a platform user.
func (s *Service) GetByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	return s.repo.GetByOwner(ctx, ownerID)
}

// Balance returns the cached ledger balance for the wallet.
func (s *Service) Balance(ctx context.Context, accountID string) (Balance, error) {
	wallet, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return Balance{}, err
	}
	amount, err := s.ledger.Balance(ctx, wallet.AccountID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{AccountID: wallet.AccountID, Amount: amount, Currency: wallet.Currency, AsOf: time.Now().UTC()}, nil
}

// Transactions returns one page of ledger history plus the current balance.
func (s *Service) Transactions(ctx context.Context, accountID, cursor string, limit int) (Statement, error) {
	balance, err := s.Balance(ctx, accountID)
	if err != nil {
		return Statement{}, err
	}
	page, err := s.ledger.Entries(ctx, accountID, cursor, limit)
	if err != nil {
		return Statement{}, err
	}
	return Statement{Balance: balance, Entries: page.Entries, NextCursor: page.NextCursor}, nil
}
