package server

import (
	"soulspark/internal/featureflags"
	"soulspark/internal/models"
	"soulspark/internal/service"
	"soulspark/internal/store"

	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	Text string `json:"text"`
}

// GetPosts handles GET /api/posts?mood=&type=
func (s *Server) GetPosts(c *fiber.Ctx) error {
	var filter store.Filter
	if raw := c.Query("mood"); raw != "" {
		mood, ok := models.ParseMood(raw)
		if !ok {
			return s.respond(c, models.NewValidationError("Unknown mood: "+raw))
		}
		filter.Mood = mood
	}
	if raw := c.Query("type"); raw != "" {
		ct, ok := models.ParseContentType(raw)
		if !ok {
			return s.respond(c, models.NewValidationError("Unknown content type: "+raw))
		}
		filter.ContentType = ct
	}
	return s.feedResponse(c, filter)
}

// GetStories handles GET /api/stories
func (s *Server) GetStories(c *fiber.Ctx) error {
	return s.feedResponse(c, store.Filter{ContentType: models.ContentStory})
}

// GetProfile handles GET /api/profile, listing the caller's own posts.
func (s *Server) GetProfile(c *fiber.Ctx) error {
	identity := s.identity(c)
	return s.feedResponse(c, store.Filter{AuthorID: identity.ID})
}

func (s *Server) feedResponse(c *fiber.Ctx, filter store.Filter) error {
	posts, err := s.contentService.Feed(c.UserContext(), s.viewerID(c), s.identity(c), filter)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{
		"posts": posts,
		"count": len(posts),
	})
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID := c.Params("id")
	post, ok := s.contentStore.Get(postID)
	if !ok {
		return s.respond(c, models.NewNotFoundError("Post", postID))
	}
	view, err := s.contentService.View(c.UserContext(), s.viewerID(c), s.identity(c), post)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(view)
}

// CreatePost handles POST /api/posts. On success the client returns to the feed.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	req, err := parseBody[service.CreatePostInput](c)
	if err != nil {
		return s.respond(c, err)
	}

	identity := s.identity(c)
	post, err := s.contentService.CreatePost(c.UserContext(), *req, identity)
	if err != nil {
		return s.respond(c, err)
	}

	view, err := s.contentService.View(c.UserContext(), s.viewerID(c), identity, post)
	if err != nil {
		return s.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"post": view,
		"view": "feed",
	})
}

// LikePost handles POST /api/posts/:id/like, toggling the viewer's like.
func (s *Server) LikePost(c *fiber.Ctx) error {
	if s.identity(c) == nil && s.featureFlags.EnabledOr(featureflags.LikesRequireAuth, s.viewerID(c), false) {
		return s.respond(c, models.NewUnauthenticatedError("You must be logged in to like posts."))
	}

	outcome, err := s.contentService.ToggleLike(c.UserContext(), s.ensureViewerID(c), c.Params("id"))
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(outcome)
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	req, err := parseBody[commentRequest](c)
	if err != nil {
		return s.respond(c, err)
	}

	post, err := s.contentService.AddComment(c.UserContext(), c.Params("id"), req.Text, s.identity(c))
	if err != nil {
		return s.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"post_id":  post.ID,
		"comment":  post.Comments[len(post.Comments)-1],
		"comments": post.Comments,
	})
}

// ReportPost handles POST /api/posts/:id/report
func (s *Server) ReportPost(c *fiber.Ctx) error {
	postID := c.Params("id")
	res, err := s.contentService.ReportPost(c.UserContext(), postID, s.identity(c))
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{
		"post_id":   postID,
		"reports":   res.Post.Reports,
		"removed":   res.Removed,
		"duplicate": res.Duplicate,
	})
}
