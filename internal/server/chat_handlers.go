package server

import (
	"soulspark/internal/featureflags"
	"soulspark/internal/generative"
	"soulspark/internal/models"

	"github.com/gofiber/fiber/v2"
)

type chatRequest struct {
	History []generative.ChatMessage `json:"history"`
	Message string                   `json:"message"`
}

// ChatGreeting handles GET /api/chat/greeting
func (s *Server) ChatGreeting(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": s.companionService.Greeting()})
}

// Chat handles POST /api/chat
func (s *Server) Chat(c *fiber.Ctx) error {
	if !s.featureFlags.EnabledOr(featureflags.Companion, s.viewerID(c), true) {
		return s.respond(c, models.NewForbiddenError("The companion is not available right now."))
	}

	req, err := parseBody[chatRequest](c)
	if err != nil {
		return s.respond(c, err)
	}

	reply, err := s.companionService.Reply(c.UserContext(), req.History, req.Message)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"message": reply})
}
