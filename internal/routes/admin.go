package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shifa-care/shifa_wallet/internal/ledger"
	"github.com/shifa-care/shifa_wallet/internal/recharge"
	"github.com/shifa-care/shifa_wallet/internal/wallet"
)

// RegisterAdminRoutes wires endpoints behind the admin token.
func RegisterAdminRoutes(r fiber.Router, h *recharge.Handler, wallets *wallet.Service, projector *ledger.Projector, idempotent fiber.Handler) {
	r.Get("/recharges", h.AdminList)
	r.Patch("/recharges/:id", idempotent, h.Decide)

	// Replays the wallet's ledger and compares it with the cached balance.
	r.Get("/wallets/:accountId/audit", func(c *fiber.Ctx) error {
		accountID := c.Params("accountId")
		if _, err := wallets.Get(c.UserContext(), accountID); err != nil {
			if errors.Is(err, wallet.ErrNotFound) {
				return fiber.NewError(http.StatusNotFound, "wallet not found")
			}
			return err
		}
		audit, err := projector.Audit(c.UserContext(), accountID)
		if err != nil {
			return err
		}
		return c.JSON(audit)
	})
}
