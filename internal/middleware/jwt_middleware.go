package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"kedai/internal/services"
)

const identityKey = "identity"

// TokenValidator resolves a bearer token to the caller.
type TokenValidator interface {
	ValidateToken(token string) (*services.Identity, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(auth TokenValidator, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required", "")
		}

		// Expected format: "Bearer <token>"
		tokenString, ok := bearerToken(authHeader)
		if !ok {
			return unauthorized(c, "Authorization header format must be 'Bearer <token>'", "")
		}

		identity, err := auth.ValidateToken(tokenString)
		if err != nil {
			logger.Debug("JWT validation failed", zap.String("path", c.Path()), zap.Error(err))
			return unauthorized(c, "Invalid or expired token", err.Error())
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// OptionalAuth attaches the caller when a valid token is present and lets
// anonymous requests through. A present but invalid token is still rejected.
func OptionalAuth(auth TokenValidator, logger *zap.Logger) fiber.Handler {
	required := AuthRequired(auth, logger)
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		return required(c)
	}
}

// AdminOnly rejects callers without the admin role. It must run after
// AuthRequired.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := CurrentIdentity(c)
		if !ok {
			return unauthorized(c, "Authentication required", "")
		}
		if !identity.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Admin access required",
			})
		}
		return c.Next()
	}
}

// CurrentIdentity returns the caller attached by AuthRequired or OptionalAuth.
func CurrentIdentity(c *fiber.Ctx) (*services.Identity, bool) {
	identity, ok := c.Locals(identityKey).(*services.Identity)
	return identity, ok && identity != nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func unauthorized(c *fiber.Ctx, message, detail string) error {
	body := fiber.Map{"success": false, "message": message}
	if detail != "" {
		body["error"] = detail
	}
	return c.Status(fiber.StatusUnauthorized).JSON(body)
}
