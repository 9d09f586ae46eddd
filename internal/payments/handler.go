package payments

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/shifa-care/shifa_wallet/internal/httpx"
	"github.com/shifa-care/shifa_wallet/internal/ledger"
	"github.com/shifa-care/shifa_wallet/internal/money"
	"github.com/shifa-care/shifa_wallet/internal/wallet"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type orderRequest struct {
	OrderID     string          `json:"order_id" validate:"required,max=64"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=200"`
}

// Charge pays for an order from the wallet in the path.
func (h *Handler) Charge(c *fiber.Ctx) error {
	return h.handle(c, h.service.Charge)
}

// Refund returns an order amount to the wallet in the path.
func (h *Handler) Refund(c *fiber.Ctx) error {
	return h.handle(c, h.service.Refund)
}

func (h *Handler) handle(c *fiber.Ctx, post func(context.Context, OrderInput) (Result, error)) error {
	var req orderRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	amount, err := money.ToMinor(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, ledger.ErrInvalidAmount.Error())
	}

	res, err := post(c.UserContext(), OrderInput{
		AccountID:   c.Params("accountId"),
		OrderID:     req.OrderID,
		Amount:      amount,
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrDuplicateReference):
			return c.Status(http.StatusOK).JSON(toResponse(res))
		case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ErrOrderRequired):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNoCharge):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrRefundExceedsCharge):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, wallet.ErrNotFound), errors.Is(err, ledger.ErrAccountNotFound):
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return fiber.NewError(http.StatusUnprocessableEntity, "insufficient balance")
		case errors.Is(err, ledger.ErrTransientConflict):
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		default:
			return err
		}
	}
	return c.Status(http.StatusCreated).JSON(toResponse(res))
}

func toResponse(res Result) fiber.Map {
	return fiber.Map{
		"transaction":   wallet.ToEntryResponse(res.Entry),
		"balance":       money.ToMajor(res.Balance).StringFixed(money.MinorDigits),
		"balance_minor": res.Balance,
		"replayed":      res.Replayed,
	}
}
