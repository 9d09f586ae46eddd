package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shifa-care/shifa_wallet/internal/recharge"
)

// RegisterRechargeRoutes wires the user-facing recharge endpoints.
func RegisterRechargeRoutes(r fiber.Router, h *recharge.Handler, idempotent, submitLimit fiber.Handler) {
	r.Post("/wallets/:accountId/recharges", submitLimit, idempotent, h.Submit)
	r.Get("/wallets/:accountId/recharges", h.ListOwn)
	r.Get("/recharges/:id", h.Get)
}
