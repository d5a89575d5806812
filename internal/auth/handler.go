package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kudipay/kudipay/internal/identity"
	"github.com/kudipay/kudipay/internal/wallet"
)

// Handler exposes the Google sign-in endpoint.
type Handler struct {
	ids      *identity.Service
	tokens   *TokenService
	verifier GoogleVerifier
	wallets  *wallet.Service
}

// NewHandler constructs an auth handler.
func NewHandler(ids *identity.Service, tokens *TokenService, verifier GoogleVerifier, wallets *wallet.Service) *Handler {
	return &Handler{ids: ids, tokens: tokens, verifier: verifier, wallets: wallets}
}

type loginRequest struct {
	IDToken string `json:"id_token"`
}

// Login exchanges a verified Google ID token for a session token. First
// sign-ins create the user and provision an NGN wallet.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.IDToken == "" {
		return fiber.NewError(http.StatusBadRequest, "id_token is required")
	}

	profile, err := h.verifier.Verify(c.UserContext(), req.IDToken)
	if err != nil {
		if errors.Is(err, ErrGoogleToken) {
			return fiber.NewError(http.StatusUnauthorized, "invalid google token")
		}
		return fiber.NewError(http.StatusBadGateway, "token verification unavailable")
	}

	user, created, err := h.ids.FindOrCreate(c.UserContext(), profile)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "sign-in failed")
	}
	if created {
		if _, err := h.wallets.Provision(c.UserContext(), user.ID, "NGN"); err != nil {
			return fiber.NewError(http.StatusInternalServerError, "wallet provisioning failed")
		}
	}

	token, expiresIn, err := h.tokens.IssueToken(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "token issuance failed")
	}

	w, err := h.wallets.GetByUser(c.UserContext(), user.ID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "wallet lookup failed")
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"access_token": token,
		"expires_in":   expiresIn,
		"user": fiber.Map{
			"id":        user.ID,
			"email":     user.Email,
			"full_name": user.FullName,
		},
		"wallet_number": w.WalletNumber,
	})
}
