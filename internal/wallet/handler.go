package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/shifa-care/shifa_wallet/internal/httpx"
	"github.com/shifa-care/shifa_wallet/internal/ledger"
	"github.com/shifa-care/shifa_wallet/internal/money"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	OwnerID  string `json:"owner_id" validate:"required,max=64"`
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
}

type walletResponse struct {
	AccountID string    `json:"account_id"`
	OwnerID   string    `json:"owner_id"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type balanceResponse struct {
	AccountID    string    `json:"account_id"`
	Balance      string    `json:"balance"`
	BalanceMinor int64     `json:"balance_minor"`
	Currency     string    `json:"currency"`
	Formatted    string    `json:"formatted"`
	AsOf         time.Time `json:"as_of"`
}

// EntryResponse is the wire form of a ledger entry.
type EntryResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	AmountMinor int64     `json:"amount_minor"`
	ReferenceID string    `json:"reference_id"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToEntryResponse converts a ledger entry for output.
func ToEntryResponse(e ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:          e.ID,
		Type:        string(e.Kind),
		Amount:      money.ToMajor(e.Amount).StringFixed(money.MinorDigits),
		AmountMinor: e.Amount,
		ReferenceID: e.ReferenceID,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
}

// Create provisions a wallet for a platform user.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	wallet, err := h.service.Create(c.UserContext(), CreateInput{OwnerID: req.OwnerID, Currency: req.Currency})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toWalletResponse(wallet))
}

// Get returns wallet metadata.
func (h *Handler) Get(c *fiber.Ctx) error {
	wallet, err := h.service.Get(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toWalletResponse(wallet))
}

// Balance returns the wallet balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.Balance(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(balanceResponse{
		AccountID:    balance.AccountID,
		Balance:      money.ToMajor(balance.Amount).StringFixed(money.MinorDigits),
		BalanceMinor: balance.Amount,
		Currency:     balance.Currency,
		Formatted:    money.Format(balance.Amount, balance.Currency),
		AsOf:         balance.AsOf,
	})
}

// Transactions returns a page of wallet history in chronological order.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	stmt, err := h.service.Transactions(c.UserContext(), c.Params("accountId"), c.Query("cursor"), c.QueryInt("limit", ledger.DefaultLimit))
	if err != nil {
		return mapError(err)
	}
	entries := make([]EntryResponse, 0, len(stmt.Entries))
	for _, e := range stmt.Entries {
		entries = append(entries, ToEntryResponse(e))
	}
	return c.JSON(fiber.Map{
		"account_id":    stmt.Balance.AccountID,
		"balance":       money.ToMajor(stmt.Balance.Amount).StringFixed(money.MinorDigits),
		"balance_minor": stmt.Balance.Amount,
		"currency":      stmt.Balance.Currency,
		"transactions":  entries,
		"next_cursor":   stmt.NextCursor,
	})
}

func toWalletResponse(w Wallet) walletResponse {
	return walletResponse{
		AccountID: w.AccountID,
		OwnerID:   w.OwnerID,
		Currency:  w.Currency,
		Status:    w.Status,
		CreatedAt: w.CreatedAt,
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ledger.ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, "wallet not found")
	case errors.Is(err, ErrAlreadyExists):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidOwner), errors.Is(err, ledger.ErrInvalidCursor):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
