package server

import (
	"soulspark/internal/service"

	"github.com/gofiber/fiber/v2"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	req, err := parseBody[service.RegisterInput](c)
	if err != nil {
		return s.respond(c, err)
	}

	result, err := s.authService.Register(c.UserContext(), *req)
	if err != nil {
		return s.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	req, err := parseBody[loginRequest](c)
	if err != nil {
		return s.respond(c, err)
	}

	result, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(result)
}

// Logout handles POST /api/auth/logout. The presented token is revoked until
// it would have expired.
func (s *Server) Logout(c *fiber.Ctx) error {
	token, _ := c.Locals("token").(string)
	if err := s.authService.Logout(c.UserContext(), token); err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Me handles GET /api/auth/me
func (s *Server) Me(c *fiber.Ctx) error {
	token, _ := c.Locals("token").(string)
	session, err := s.authService.Authenticate(c.UserContext(), token)
	if err != nil {
		return s.respond(c, err)
	}
	user, err := s.authService.CurrentUser(c.UserContext(), session)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{
		"user":       user,
		"identity":   session.Identity(),
		"expires_at": session.ExpiresAt,
	})
}

