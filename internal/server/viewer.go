package server

import (
	"context"
	"strings"
	"time"

	"soulspark/internal/middleware"
	"soulspark/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	viewerCookie = "viewer_id"
	viewerHeader = "X-Viewer-ID"
	viewerMaxAge = 365 * 24 * time.Hour
)

// OptionalIdentity attaches the caller's identity when a valid bearer token
// is present. Missing, expired and revoked tokens leave the request anonymous.
func (s *Server) OptionalIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		identity, err := s.authService.CurrentIdentity(c.UserContext(), token)
		if err != nil || identity == nil {
			return c.Next()
		}
		s.attachIdentity(c, identity, token)
		return c.Next()
	}
}

// AuthRequired rejects requests that did not resolve to an identity.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s.identity(c) == nil {
			if bearerToken(c) == "" {
				return models.RespondWithAppError(c,
					models.NewUnauthenticatedError("Missing or invalid authorization token"))
			}
			return models.RespondWithAppError(c,
				models.NewUnauthenticatedError("Invalid or expired token"))
		}
		return c.Next()
	}
}

func (s *Server) attachIdentity(c *fiber.Ctx, identity *models.Identity, token string) {
	c.Locals("identity", identity)
	c.Locals("token", token)
	c.Locals("userID", identity.ID)
	c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, identity.ID))
}

// identity returns the authenticated actor, or nil for anonymous requests.
func (s *Server) identity(c *fiber.Ctx) *models.Identity {
	identity, _ := c.Locals("identity").(*models.Identity)
	return identity
}

// viewerID names whoever owns the liked set for this request: the account
// when signed in, otherwise the anonymous viewer cookie or header. It returns
// "" when the anonymous viewer has not been assigned an id yet.
func (s *Server) viewerID(c *fiber.Ctx) string {
	if identity := s.identity(c); identity != nil {
		return "user:" + identity.ID
	}
	if id := strings.TrimSpace(c.Cookies(viewerCookie)); id != "" {
		return "anon:" + id
	}
	if id := strings.TrimSpace(c.Get(viewerHeader)); id != "" {
		return "anon:" + id
	}
	return ""
}

// ensureViewerID is viewerID, assigning a fresh anonymous id when needed.
func (s *Server) ensureViewerID(c *fiber.Ctx) string {
	if id := s.viewerID(c); id != "" {
		return id
	}
	id := uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:     viewerCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(viewerMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Set(viewerHeader, id)
	return "anon:" + id
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
