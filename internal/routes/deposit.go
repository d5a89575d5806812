package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kudipay/kudipay/internal/access"
	"github.com/kudipay/kudipay/internal/deposit"
	"github.com/kudipay/kudipay/internal/middleware"
)

// RegisterDepositRoutes wires the authenticated deposit endpoints.
func RegisterDepositRoutes(r fiber.Router, h *deposit.Handler) {
	r.Post("/wallet/deposit", middleware.RequirePermission(access.PermissionDeposit), h.Initiate)
	r.Get("/wallet/deposit/:reference/status", middleware.RequirePermission(access.PermissionRead), h.Status)
}

// RegisterWebhookRoute wires the public provider callback.
func RegisterWebhookRoute(r fiber.Router, h *deposit.Handler) {
	r.Post("/wallet/paystack/webhook", h.Webhook)
}
