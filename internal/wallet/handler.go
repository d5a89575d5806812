package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kudipay/kudipay/internal/ledger"
)

// Handler exposes wallet read endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transactionSummary struct {
	ID        string            `json:"id"`
	Reference string            `json:"reference"`
	Kind      string            `json:"type"`
	Direction string            `json:"direction"`
	Amount    int64             `json:"amount"`
	Status    string            `json:"status"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Balance returns the caller's wallet balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	balance, err := h.service.Balance(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, "failed to retrieve balance")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"balance":  balance.Amount,
		"currency": balance.Currency,
		"as_of":    balance.AsOf,
	})
}

// Transactions returns the caller's ledger history, newest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	entries, err := h.service.Transactions(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, "failed to retrieve transactions")
	}

	summaries := make([]transactionSummary, 0, len(entries))
	for _, entry := range entries {
		summaries = append(summaries, transactionSummary{
			ID:        entry.ID,
			Reference: entry.Reference,
			Kind:      string(entry.Kind),
			Direction: string(entry.Direction),
			Amount:    entry.Amount,
			Status:    string(entry.Status),
			Metadata:  entry.Metadata,
			CreatedAt: entry.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": summaries})
}
