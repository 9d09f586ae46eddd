package rating

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/shifa-care/shifa_wallet/internal/httpx"
	"github.com/shifa-care/shifa_wallet/internal/ledger"
)

// Handler exposes provider rating endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a rating handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type rateRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

type aggregateResponse struct {
	ProviderID   string    `json:"provider_id"`
	Rating       string    `json:"rating"`
	ReviewsCount int64     `json:"reviews_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toResponse(a Aggregate) aggregateResponse {
	return aggregateResponse{
		ProviderID:   a.ProviderID,
		Rating:       a.Average().StringFixed(2),
		ReviewsCount: a.Count,
		UpdatedAt:    a.UpdatedAt,
	}
}

// Rate records a rating for the provider in the path.
func (h *Handler) Rate(c *fiber.Ctx) error {
	var req rateRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	agg, err := h.service.Rate(c.UserContext(), c.Params("providerId"), req.Rating)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(agg))
}

// Get returns the provider's current rating.
func (h *Handler) Get(c *fiber.Ctx) error {
	agg, err := h.service.Get(c.UserContext(), c.Params("providerId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(agg))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidStars):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrTransientConflict):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
