package server

import (
	"log/slog"

	"soulspark/internal/models"

	"github.com/gofiber/fiber/v2"
)

// respond writes err with the status derived from its code, logging anything
// that was not an expected client error.
func (s *Server) respond(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
	}
	return models.RespondWithError(c, status, err)
}

// parseBody decodes the JSON body into T.
func parseBody[T any](c *fiber.Ctx) (*T, error) {
	var req T
	if err := c.BodyParser(&req); err != nil {
		return nil, models.NewValidationError("Invalid request body")
	}
	return &req, nil
}
