package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shifa-care/shifa_wallet/internal/rating"
)

// RegisterRatingRoutes wires provider rating endpoints.
func RegisterRatingRoutes(r fiber.Router, h *rating.Handler) {
	r.Post("/providers/:providerId/ratings", h.Rate)
	r.Get("/providers/:providerId/rating", h.Get)
}
