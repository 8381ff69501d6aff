package handlers

import (
	"time"

	"biblio/internal/middleware"
	"biblio/internal/services"

	"github.com/gofiber/fiber/v2"
)

// APIKeyHandler handles HTTP requests for API key management. All routes are
// JWT-authenticated.
type APIKeyHandler struct {
	apiKeyService *services.APIKeyService
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(apiKeyService *services.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{apiKeyService: apiKeyService}
}

// RegisterRoutes registers the apikey routes with the Fiber app.
func (h *APIKeyHandler) RegisterRoutes(router fiber.Router) {
	apiKeyRoutes := router.Group("/apikey")
	apiKeyRoutes.Post("/", h.HandleCreate)
	apiKeyRoutes.Get("/", h.HandleList)
	apiKeyRoutes.Delete("/", h.HandleDelete)
}

// HandleCreate issues a new key expiring on the expire_date query parameter.
// The plaintext key is returned once and never again.
func (h *APIKeyHandler) HandleCreate(c *fiber.Ctx) error {
	expireDate, err := time.Parse("2006-01-02", c.Query("expire_date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    "VALIDATION",
			"message": "expire_date must be a date in YYYY-MM-DD format",
		})
	}

	key, err := h.apiKeyService.Create(c.UserContext(), middleware.CurrentUser(c), expireDate)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Successfully created", "key": key})
}

// HandleList returns the caller's keys, with the stored tokens redacted.
func (h *APIKeyHandler) HandleList(c *fiber.Ctx) error {
	keys, err := h.apiKeyService.List(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(keys)
}

// HandleDelete removes one of the caller's keys by the id query parameter.
func (h *APIKeyHandler) HandleDelete(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    "VALIDATION",
			"message": "id query parameter is required",
		})
	}

	if err := h.apiKeyService.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return objectDeleted(c)
}
