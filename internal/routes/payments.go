package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shifa-care/shifa_wallet/internal/payments"
)

// RegisterPaymentRoutes wires order charge and refund endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, idempotent fiber.Handler) {
	r.Post("/wallets/:accountId/charges", idempotent, h.Charge)
	r.Post("/wallets/:accountId/refunds", idempotent, h.Refund)
}
