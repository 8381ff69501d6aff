package middleware

import (
	"strings"

	"biblio/internal/models"
	"biblio/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CurrentUserKey is the fiber.Ctx locals key the resolved caller is stored
// under.
const CurrentUserKey = "current_user"

// JWTRequired resolves the Authorization bearer token to a user and stores it
// in the request locals, rejecting the request with 401 otherwise.
func JWTRequired(jwtService *services.JWTService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return unauthorized(c, "Authorization header format must be 'Bearer <token>'")
		}

		user, err := jwtService.ResolveUser(c.UserContext(), parts[1])
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(CurrentUserKey, user)
		return c.Next()
	}
}

// APIKeyRequired resolves the X-API-Key header to a user and stores it in the
// request locals, rejecting the request with 401 otherwise.
func APIKeyRequired(apiKeyService *services.APIKeyService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-API-Key")
		if key == "" {
			return unauthorized(c, "X-API-Key header is required")
		}

		user, err := apiKeyService.ResolveUser(c.UserContext(), key)
		if err != nil {
			return unauthorized(c, "Invalid or expired API key")
		}

		c.Locals(CurrentUserKey, user)
		return c.Next()
	}
}

// CurrentUser retrieves the caller stored by the auth middlewares.
func CurrentUser(c *fiber.Ctx) *models.UserDTO {
	user, _ := c.Locals(CurrentUserKey).(*models.UserDTO)
	return user
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"code":    "UNAUTHORIZED",
		"message": message,
	})
}
