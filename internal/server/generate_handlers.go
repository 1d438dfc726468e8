package server

import (
	"soulspark/internal/featureflags"
	"soulspark/internal/models"

	"github.com/gofiber/fiber/v2"
)

type generateTextRequest struct {
	Mood        string `json:"mood"`
	ContentType string `json:"content_type"`
}

type generateBackgroundRequest struct {
	Content string `json:"content"`
	Mood    string `json:"mood"`
}

// GenerateText handles POST /api/generate/text. Provider failures are
// reported in the text itself, so this only fails on bad input.
func (s *Server) GenerateText(c *fiber.Ctx) error {
	req, err := parseBody[generateTextRequest](c)
	if err != nil {
		return s.respond(c, err)
	}

	text, err := s.contentService.Assist(c.UserContext(), req.Mood, req.ContentType)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"text": text})
}

// GenerateBackground handles POST /api/generate/background
func (s *Server) GenerateBackground(c *fiber.Ctx) error {
	if !s.featureFlags.EnabledOr(featureflags.AIBackgrounds, s.viewerID(c), true) {
		return s.respond(c, models.NewForbiddenError("AI backgrounds are not available right now."))
	}

	req, err := parseBody[generateBackgroundRequest](c)
	if err != nil {
		return s.respond(c, err)
	}

	ref, err := s.contentService.GenerateBackground(c.UserContext(), req.Content, req.Mood)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"background": models.ImageBackground(ref)})
}
