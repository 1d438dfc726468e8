package server

import (
	"soulspark/internal/media"
	"soulspark/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetBackgrounds handles GET /api/backgrounds
func (s *Server) GetBackgrounds(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"templates": models.BackgroundTemplates})
}

// UploadBackground handles POST /api/backgrounds/upload with a multipart
// "image" field.
func (s *Server) UploadBackground(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return s.respond(c, models.NewValidationError("Missing image upload"))
	}

	maxBytes := int64(s.config.ImageMaxUploadMB) * 1024 * 1024
	if fileHeader.Size > maxBytes {
		return s.respond(c, models.NewValidationError("Image is too large"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return s.respond(c, models.NewInternalError(err))
	}
	defer func() { _ = file.Close() }()

	processed, err := media.Normalize(file, maxBytes)
	if err != nil {
		return s.respond(c, err)
	}

	ref, err := s.contentService.UploadBackground(c.UserContext(), processed)
	if err != nil {
		return s.respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"background":   models.ImageBackground(ref),
		"content_type": processed.ContentType,
	})
}
