package handlers

import (
	"fmt"
	"log"

	"biblio/internal/middleware"
	"biblio/internal/models"
	"biblio/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// UsersHandler handles HTTP requests for user management. All routes are
// JWT-authenticated; the services enforce the capability checks.
type UsersHandler struct {
	usersService *services.UsersService
	validate     *validator.Validate
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(usersService *services.UsersService) *UsersHandler {
	return &UsersHandler{
		usersService: usersService,
		validate:     validator.New(),
	}
}

// RegisterRoutes registers the users routes with the Fiber app.
func (h *UsersHandler) RegisterRoutes(router fiber.Router) {
	userRoutes := router.Group("/users")
	userRoutes.Post("/", h.HandleCreate)
	userRoutes.Get("/", h.HandleGet)
	userRoutes.Patch("/", h.HandleUpdate)
	userRoutes.Put("/permissions", h.HandleChangePermissions)
	userRoutes.Post("/ban", h.HandleBan)
}

// HandleCreate creates a new user from the JSON body.
func (h *UsersHandler) HandleCreate(c *fiber.Ctx) error {
	var create models.UserCreate
	if err := c.BodyParser(&create); err != nil {
		log.Printf("Error parsing create-user request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    "VALIDATION",
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(create); err != nil {
		return h.validationFailed(c, err)
	}

	id, err := h.usersService.Create(c.UserContext(), middleware.CurrentUser(c), &create)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Successfully created", "id": id})
}

// HandleGet returns the user referenced by the user_id query parameter,
// defaulting to the caller.
func (h *UsersHandler) HandleGet(c *fiber.Ctx) error {
	user, err := h.usersService.Get(c.UserContext(), middleware.CurrentUser(c), c.Query("user_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleUpdate applies a partial profile update to the user referenced by the
// user_id query parameter, defaulting to the caller.
func (h *UsersHandler) HandleUpdate(c *fiber.Ctx) error {
	var patch models.UserUpdate
	if err := c.BodyParser(&patch); err != nil {
		log.Printf("Error parsing update-user request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    "VALIDATION",
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(patch); err != nil {
		return h.validationFailed(c, err)
	}

	if err := h.usersService.Edit(c.UserContext(), middleware.CurrentUser(c), c.Query("user_id"), &patch); err != nil {
		return respondError(c, err)
	}
	return objectUpdated(c)
}

// HandleChangePermissions replaces the capability set of the user referenced
// by the user_id query parameter.
func (h *UsersHandler) HandleChangePermissions(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    "VALIDATION",
			"message": "user_id query parameter is required",
		})
	}
	var perms models.Permissions
	if err := c.BodyParser(&perms); err != nil {
		log.Printf("Error parsing permissions request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    "VALIDATION",
			"message": "Invalid request body",
		})
	}

	if err := h.usersService.ChangePermissions(c.UserContext(), middleware.CurrentUser(c), userID, perms); err != nil {
		return respondError(c, err)
	}
	return objectUpdated(c)
}

// HandleBan bans the user referenced by the user_id query parameter.
func (h *UsersHandler) HandleBan(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    "VALIDATION",
			"message": "user_id query parameter is required",
		})
	}

	if err := h.usersService.Ban(c.UserContext(), middleware.CurrentUser(c), userID); err != nil {
		return respondError(c, err)
	}
	return objectUpdated(c)
}

func (h *UsersHandler) validationFailed(c *fiber.Ctx, err error) error {
	validationErrors := err.(validator.ValidationErrors)
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"code":    "VALIDATION",
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}
