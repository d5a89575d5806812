package apikey

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kudipay/kudipay/internal/access"
)

// Handler exposes API key management endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an API key handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type issueRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	Expiry      string   `json:"expiry"`
}

// Issue mints a new key for the authenticated user. The plaintext key appears
// only in this response.
func (h *Handler) Issue(c *fiber.Ctx) error {
	var req issueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	userID, _ := c.Locals("user_id").(string)

	key, plaintext, err := h.service.Issue(c.UserContext(), IssueInput{
		UserID: userID,
		Name:   req.Name,
		Scopes: req.Permissions,
		Expiry: req.Expiry,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNoPermissions), errors.Is(err, ErrInvalidExpiry), errors.Is(err, access.ErrUnknownPermission):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrKeyLimitReached):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, "key issuance failed")
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":          key.ID,
		"name":        key.Name,
		"key":         plaintext,
		"permissions": access.Strings(key.Permissions),
		"expires_at":  key.ExpiresAt,
	})
}

// List returns the caller's keys without secret material.
func (h *Handler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	keys, err := h.service.List(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "key listing failed")
	}

	out := make([]fiber.Map, 0, len(keys))
	for _, key := range keys {
		out = append(out, fiber.Map{
			"id":          key.ID,
			"name":        key.Name,
			"permissions": access.Strings(key.Permissions),
			"expires_at":  key.ExpiresAt,
			"revoked":     key.Revoked,
			"created_at":  key.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"keys": out})
}

// Revoke disables one of the caller's keys.
func (h *Handler) Revoke(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	if err := h.service.Revoke(c.UserContext(), userID, c.Params("id")); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return fiber.NewError(http.StatusNotFound, "key not found")
		}
		return fiber.NewError(http.StatusInternalServerError, "key revocation failed")
	}
	return c.SendStatus(http.StatusNoContent)
}
