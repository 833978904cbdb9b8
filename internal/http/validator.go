// FILE: internal/http/validator.go
package http

import (
	"errors"
	"strings"

	"enginearena/internal/config"
	"enginearena/internal/core"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

// gamesQuery filters the stored game history
type gamesQuery struct {
	Tournament string `query:"tournament" validate:"omitempty,uuid"`
	Engine     string `query:"engine" validate:"omitempty,max=64"`
	Limit      int    `query:"limit" validate:"min=0,max=1000"`
}

// validationMiddleware decodes and validates tournament definitions before
// they reach the handler
func validationMiddleware(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost || !strings.HasSuffix(c.Path(), "/tournaments") {
		return c.Next()
	}

	cfg := &config.Tournament{}
	if err := c.BodyParser(cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid request body",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}

	if err := cfg.Prepare(); err != nil {
		details := err.Error()
		if errors.Is(err, config.ErrInvalid) {
			details = strings.TrimPrefix(details, config.ErrInvalid.Error()+": ")
		}
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "validation failed",
			Code:    core.ErrInvalidRequest,
			Details: details,
		})
	}

	c.Locals("validatedBody", cfg)
	c.Locals("validated", true)
	return c.Next()
}

// parseGamesQuery binds and checks the history filter
func parseGamesQuery(c *fiber.Ctx) (gamesQuery, error) {
	q := gamesQuery{Limit: 100}
	if err := c.QueryParser(&q); err != nil {
		return q, err
	}
	if err := validate.Struct(q); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			return q, errors.New(config.Describe(errs))
		}
		return q, err
	}
	return q, nil
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
