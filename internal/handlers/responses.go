package handlers

import (
	"log"

	"biblio/internal/apperrors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// respondError maps a service error onto its HTTP status and structured body.
// Client errors are logged at info level, server errors at error level with
// the request correlation id.
func respondError(c *fiber.Ctx, err error) error {
	var domainErr *apperrors.Error
	if apperrors.As(err, &domainErr) {
		status := domainErr.HTTPStatus()
		if status < 500 {
			log.Printf("%s %s -> %d %s", c.Method(), c.Path(), status, domainErr.Code)
		} else {
			log.Printf("ERROR [%s] %s %s -> %d: %v", correlationID(c), c.Method(), c.Path(), status, err)
		}
		return c.Status(status).JSON(domainErr)
	}

	log.Printf("ERROR [%s] %s %s -> 500: %v", correlationID(c), c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"code":    apperrors.CodeInternal,
		"message": "internal error",
	})
}

func correlationID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		return id
	}
	return ""
}

// objectCreated is the success body for creation endpoints, returning the new
// object's id as a guarantee of the endpoint triggering.
func objectCreated(c *fiber.Ctx, id string) error {
	return c.JSON(fiber.Map{"message": "Successfully created", "id": id})
}

func objectUpdated(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Successfully updated"})
}

func objectDeleted(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Successfully deleted"})
}
