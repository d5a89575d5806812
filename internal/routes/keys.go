package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kudipay/kudipay/internal/apikey"
	"github.com/kudipay/kudipay/internal/middleware"
)

// RegisterKeyRoutes wires API key management. Keys cannot mint or revoke
// keys, so these routes require a session token.
func RegisterKeyRoutes(r fiber.Router, h *apikey.Handler) {
	r.Post("/keys", middleware.RequireSession, h.Issue)
	r.Get("/keys", middleware.RequireSession, h.List)
	r.Delete("/keys/:id", middleware.RequireSession, h.Revoke)
}
