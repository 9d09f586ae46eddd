package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shifa-care/shifa_wallet/internal/wallet"
)

// RegisterWalletRoutes wires wallet-related endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets/:accountId", h.Get)
	r.Get("/wallets/:accountId/balance", h.Balance)
	r.Get("/wallets/:accountId/transactions", h.Transactions)
}
