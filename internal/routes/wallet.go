package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kudipay/kudipay/internal/access"
	"github.com/kudipay/kudipay/internal/middleware"
	"github.com/kudipay/kudipay/internal/wallet"
)

// RegisterWalletRoutes wires the read-only wallet endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	read := middleware.RequirePermission(access.PermissionRead)
	r.Get("/wallet/balance", read, h.Balance)
	r.Get("/wallet/transactions", read, h.Transactions)
}
