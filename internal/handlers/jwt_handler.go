package handlers

import (
	"biblio/internal/services"

	"github.com/gofiber/fiber/v2"
)

// JWTHandler handles HTTP requests for token issuance and refresh.
type JWTHandler struct {
	jwtService *services.JWTService
}

// NewJWTHandler creates a new JWTHandler.
func NewJWTHandler(jwtService *services.JWTService) *JWTHandler {
	return &JWTHandler{jwtService: jwtService}
}

// RegisterRoutes registers the jwt routes with the Fiber app.
func (h *JWTHandler) RegisterRoutes(router fiber.Router) {
	jwtRoutes := router.Group("/jwt")
	jwtRoutes.Post("/tokens", h.HandleTokens)
	jwtRoutes.Post("/refresh_token", h.HandleRefreshToken)
}

// HandleTokens exchanges a username/password form for a token pair.
func (h *JWTHandler) HandleTokens(c *fiber.Ctx) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    "VALIDATION",
			"message": "username and password are required",
		})
	}

	user, err := h.jwtService.Authenticate(c.UserContext(), username, password)
	if err != nil {
		return respondError(c, err)
	}
	return h.respondTokenPair(c, user.Username)
}

// HandleRefreshToken exchanges a refresh token for a fresh pair, gated by the
// grant_type form field.
func (h *JWTHandler) HandleRefreshToken(c *fiber.Ctx) error {
	grantType := c.FormValue("grant_type")
	refreshToken := c.FormValue("refresh_token")

	user, err := h.jwtService.ResolveRefresh(c.UserContext(), grantType, refreshToken)
	if err != nil {
		return respondError(c, err)
	}
	return h.respondTokenPair(c, user.Username)
}

func (h *JWTHandler) respondTokenPair(c *fiber.Ctx, username string) error {
	tokenType, accessToken, refreshToken, err := h.jwtService.CreateTokens(username)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"token_type":    tokenType,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}
