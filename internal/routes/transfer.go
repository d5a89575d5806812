package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kudipay/kudipay/internal/access"
	"github.com/kudipay/kudipay/internal/middleware"
	"github.com/kudipay/kudipay/internal/transfer"
)

// RegisterTransferRoutes wires the wallet-to-wallet transfer endpoint.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler) {
	r.Post("/wallet/transfer", middleware.RequirePermission(access.PermissionTransfer), h.Transfer)
}
