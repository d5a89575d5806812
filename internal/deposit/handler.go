package deposit

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kudipay/kudipay/internal/identity"
	"github.com/kudipay/kudipay/internal/ledger"
)

const providerName = "paystack"

// SignatureVerifier checks a provider webhook signature over the raw body.
type SignatureVerifier interface {
	VerifySignature(payload []byte, signature string) bool
}

// Handler exposes the deposit endpoints, including the public webhook.
type Handler struct {
	service  *Service
	verifier SignatureVerifier
	logger   *slog.Logger
}

// NewHandler constructs a deposit handler.
func NewHandler(service *Service, verifier SignatureVerifier, logger *slog.Logger) *Handler {
	return &Handler{service: service, verifier: verifier, logger: logger}
}

type initiateRequest struct {
	Amount int64 `json:"amount"`
}

// Initiate starts a deposit for the authenticated user.
func (h *Handler) Initiate(c *fiber.Ctx) error {
	var req initiateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	userID, _ := c.Locals("user_id").(string)

	res, err := h.service.Initiate(c.UserContext(), userID, req.Amount)
	if err != nil {
		var tooSmall *AmountTooSmallError
		switch {
		case errors.As(err, &tooSmall):
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error":   "amount below minimum",
				"minimum": tooSmall.Minimum,
			})
		case errors.Is(err, ledger.ErrWalletNotFound), errors.Is(err, identity.ErrUserNotFound):
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		case errors.Is(err, ErrProviderInit):
			return fiber.NewError(http.StatusBadGateway, "payment provider unavailable")
		default:
			return fiber.NewError(http.StatusInternalServerError, "deposit failed")
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"reference":         res.Reference,
		"authorization_url": res.AuthorizationURL,
	})
}

// Status reports the state of the caller's deposit.
func (h *Handler) Status(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	reference := c.Params("reference")

	res, err := h.service.Status(c.UserContext(), userID, reference)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			return fiber.NewError(http.StatusNotFound, "transaction not found")
		}
		return fiber.NewError(http.StatusInternalServerError, "status lookup failed")
	}

	body := fiber.Map{
		"reference": res.Reference,
		"status":    string(res.Status),
		"amount":    res.Amount,
	}
	if res.ProviderStatus != "" {
		body["provider_status"] = res.ProviderStatus
	}
	return c.Status(http.StatusOK).JSON(body)
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
	} `json:"data"`
}

// Webhook receives provider notifications. Authentication is the HMAC
// signature over the raw body, not a session, so the route is public.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get("x-paystack-signature")
	if signature == "" || !h.verifier.VerifySignature(body, signature) {
		return fiber.NewError(http.StatusUnauthorized, "invalid signature")
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed payload")
	}

	// Only charge outcomes affect the ledger; acknowledge everything else so
	// the provider stops redelivering.
	if !strings.HasPrefix(payload.Event, "charge.") || payload.Data.Reference == "" {
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": true})
	}

	evt := Event{
		Provider:  providerName,
		Reference: payload.Data.Reference,
		Amount:    payload.Data.Amount,
		Succeeded: payload.Event == "charge.success" && payload.Data.Status == "success",
		Payload:   append([]byte(nil), body...),
	}
	if err := h.service.HandleProviderEvent(c.UserContext(), evt); err != nil {
		if h.logger != nil {
			h.logger.Error("webhook processing failed",
				slog.String("reference", evt.Reference), slog.Any("error", err))
		}
		return fiber.NewError(http.StatusInternalServerError, "event not processed")
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"status": true})
}
