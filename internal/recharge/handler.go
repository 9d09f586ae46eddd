package recharge

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shifa-care/shifa_wallet/internal/httpx"
	"github.com/shifa-care/shifa_wallet/internal/ledger"
	"github.com/shifa-care/shifa_wallet/internal/middleware"
	"github.com/shifa-care/shifa_wallet/internal/money"
	"github.com/shifa-care/shifa_wallet/internal/wallet"
)

// Handler exposes HTTP endpoints for the recharge workflow.
type Handler struct {
	service *Service
}

// NewHandler constructs a recharge handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Submit records a new pending recharge for the wallet in the path.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	amount, err := money.ToMinor(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, ledger.ErrInvalidAmount.Error())
	}

	created, err := h.service.Submit(c.UserContext(), SubmitInput{
		AccountID:       c.Params("accountId"),
		Amount:          amount,
		PaymentMethod:   req.PaymentMethod,
		FromPhoneNumber: req.FromPhoneNumber,
		ProofReference:  req.ProofReference,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(created))
}

// ListOwn lists the recharges of one wallet.
func (h *Handler) ListOwn(c *fiber.Ctx) error {
	res, err := h.service.List(c.UserContext(), Filter{
		AccountID: c.Params("accountId"),
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 10),
	})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toListResponse(res))
}

// Get returns one recharge request.
func (h *Handler) Get(c *fiber.Ctx) error {
	req, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"recharge": toResponse(req)})
}

// AdminList lists recharges across wallets with optional status and account filters.
func (h *Handler) AdminList(c *fiber.Ctx) error {
	f := Filter{
		AccountID: c.Query("accountId"),
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", defaultListLimit),
	}
	if v := c.Query("status"); v != "" {
		status, err := ParseStatus(v)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		f.Status = status
	}
	res, err := h.service.List(c.UserContext(), f)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toListResponse(res))
}

// Decide approves or rejects a pending recharge.
func (h *Handler) Decide(c *fiber.Ctx) error {
	var req DecideRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	decision, err := ParseDecision(req.Decision)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	admin, _ := c.Locals(middleware.AdminLocal).(string)

	updated, err := h.service.Decide(c.UserContext(), c.Params("id"), decision, req.AdminNote, admin)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"recharge": toResponse(updated)})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, wallet.ErrNotFound), errors.Is(err, ledger.ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, "wallet not found")
	case errors.Is(err, ErrAlreadyDecided), errors.Is(err, ErrCreditReversed):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return fiber.NewError(http.StatusUnprocessableEntity, "wallet balance no longer covers the recharge reversal")
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrTransientConflict):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
