package http

import (
	"encoding/json"
	"errors"

	"resume-canvas/internal/domain"
	"resume-canvas/internal/model"

	"github.com/gofiber/fiber/v2"
)

var errInvalidPayload = errors.New("invalid payload")

// decode checks the body against schema, when one is named, and parses it
// into out.
func decode(c *fiber.Ctx, schema model.Schema, out any) error {
	body := c.Body()
	if schema != "" {
		if err := model.Validate(schema, body); err != nil {
			return err
		}
	}
	if len(body) == 0 {
		return domain.Invalid(errInvalidPayload)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.Invalid(errInvalidPayload)
	}
	return nil
}

// fail writes err with the status its class maps to.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var schemaErr *model.SchemaError
	var svcErr *domain.ServiceError
	switch {
	case errors.As(err, &schemaErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "request body does not match schema",
			"details": schemaErr.Errors,
		})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case domain.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &svcErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": svcErr.Message})
	}
	h.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

// ErrorHandler renders errors that escape handlers, such as unmatched routes.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
