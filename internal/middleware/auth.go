package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kudipay/kudipay/internal/access"
	"github.com/kudipay/kudipay/internal/apikey"
	"github.com/kudipay/kudipay/internal/auth"
)

const (
	apiKeyHeader = "x-api-key"

	userIDLocal      = "user_id"
	permissionsLocal = "permissions"
	authMethodLocal  = "auth_method"

	authMethodToken  = "token"
	authMethodAPIKey = "api_key"
)

// Authenticate accepts either a Bearer session token or an API key. Session
// tokens carry every permission; API keys carry only the scopes granted at
// issuance. On success user_id and permissions locals are set.
func Authenticate(tokens *auth.TokenService, keys *apikey.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if authz := c.Get(fiber.HeaderAuthorization); authz != "" {
			if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				return fiber.NewError(http.StatusUnauthorized, "malformed authorization header")
			}
			userID, err := tokens.VerifyToken(strings.TrimSpace(authz[len("Bearer "):]))
			if err != nil {
				return fiber.NewError(http.StatusUnauthorized, "invalid token")
			}
			c.Locals(userIDLocal, userID)
			c.Locals(permissionsLocal, access.All())
			c.Locals(authMethodLocal, authMethodToken)
			return c.Next()
		}

		if raw := c.Get(apiKeyHeader); raw != "" {
			key, err := keys.Verify(c.UserContext(), raw)
			if err != nil {
				switch {
				case errors.Is(err, apikey.ErrKeyExpired):
					return fiber.NewError(http.StatusUnauthorized, "api key expired")
				case errors.Is(err, apikey.ErrKeyRevoked):
					return fiber.NewError(http.StatusUnauthorized, "api key revoked")
				case errors.Is(err, apikey.ErrInvalidKey):
					return fiber.NewError(http.StatusUnauthorized, "invalid api key")
				default:
					return fiber.NewError(http.StatusInternalServerError, "authentication unavailable")
				}
			}
			c.Locals(userIDLocal, key.UserID)
			c.Locals(permissionsLocal, key.Permissions)
			c.Locals(authMethodLocal, authMethodAPIKey)
			return c.Next()
		}

		return fiber.NewError(http.StatusUnauthorized, "credentials required")
	}
}

// RequireSession restricts a route to session-token callers. API keys cannot
// manage other API keys.
func RequireSession(c *fiber.Ctx) error {
	if method, _ := c.Locals(authMethodLocal).(string); method != authMethodToken {
		return fiber.NewError(http.StatusForbidden, "session token required")
	}
	return c.Next()
}

// RequirePermission gates a route on one scope. Runs after Authenticate.
func RequirePermission(required access.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		granted, _ := c.Locals(permissionsLocal).([]access.Permission)
		if err := access.Authorize(granted, required); err != nil {
			return fiber.NewError(http.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
