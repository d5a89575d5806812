package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/kudipay/kudipay/internal/access"
	"github.com/kudipay/kudipay/internal/apikey"
	"github.com/kudipay/kudipay/internal/auth"
	"github.com/kudipay/kudipay/internal/identity"
)

func authTestApp(t *testing.T) (*fiber.App, *auth.TokenService, *apikey.Service) {
	t.Helper()
	tokens := auth.NewTokenService("test-secret", time.Hour)
	keys := apikey.NewService(apikey.NewMemoryRepository())

	app := fiber.New()
	app.Use(Authenticate(tokens, keys))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		userID, _ := c.Locals(userIDLocal).(string)
		return c.JSON(fiber.Map{"user_id": userID})
	})
	app.Post("/transfer", RequirePermission(access.PermissionTransfer), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app, tokens, keys
}

func TestAuthenticateRejectsMissingCredentials(t *testing.T) {
	app, _, _ := authTestApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/whoami", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAuthenticateBearerToken(t *testing.T) {
	app, tokens, _ := authTestApp(t)

	token, _, err := tokens.IssueToken(identity.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// Session tokens carry every scope.
	req = httptest.NewRequest(fiber.MethodPost, "/transfer", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuthenticateAPIKeyScopes(t *testing.T) {
	app, _, keys := authTestApp(t)

	_, plaintext, err := keys.Issue(context.Background(), apikey.IssueInput{
		UserID: uuid.NewString(),
		Name:   "readonly",
		Scopes: []string{"read"},
		Expiry: "1D",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(apiKeyHeader, plaintext)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// The read-only key must not pass the transfer gate.
	req = httptest.NewRequest(fiber.MethodPost, "/transfer", nil)
	req.Header.Set(apiKeyHeader, plaintext)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestAuthenticateRejectsBadAPIKey(t *testing.T) {
	app, _, _ := authTestApp(t)

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(apiKeyHeader, "sk_live_deadbeef_notasecret")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
