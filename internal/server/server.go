// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"soulspark/internal/cache"
	"soulspark/internal/config"
	"soulspark/internal/database"
	"soulspark/internal/featureflags"
	"soulspark/internal/generative"
	"soulspark/internal/media"
	"soulspark/internal/middleware"
	"soulspark/internal/models"
	"soulspark/internal/notifications"
	"soulspark/internal/repository"
	"soulspark/internal/seed"
	"soulspark/internal/service"
	"soulspark/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const likedPostsTTL = 30 * 24 * time.Hour

// Server holds all dependencies and provides handlers
type Server struct {
	config           *config.Config
	db               *gorm.DB
	redis            *redis.Client
	app              *fiber.App
	promMiddleware   *fiberprometheus.FiberPrometheus
	shutdownCtx      context.Context
	shutdownFn       context.CancelFunc
	logger           *slog.Logger
	userRepo         repository.UserRepository
	notifier         *notifications.Notifier
	feed             *feedHub
	featureFlags     *featureflags.Manager
	contentStore     *store.ContentStore
	authService      *service.AuthService
	contentService   *service.ContentService
	companionService *service.CompanionService
}

// NewServer creates a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg, middleware.Logger)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.Connect(cfg.RedisURL, middleware.Logger)

	provider, err := generative.New(ctx, generative.Options{
		APIKey:     cfg.GeminiAPIKey,
		TextModel:  cfg.GeminiTextModel,
		ImageModel: cfg.GeminiImageModel,
		RPS:        cfg.GenerationRPS,
		Burst:      cfg.GenerationBurst,
		Logger:     middleware.Logger,
	})
	if err != nil {
		return nil, err
	}
	if !provider.Configured() {
		middleware.Logger.Warn("GEMINI_API_KEY not set, generation endpoints will return fallbacks")
	}

	var mediaStore media.Store = media.DataURLStore{}
	if cfg.MediaEnabled() {
		minioStore, err := media.NewMinioStore(ctx, media.MinioOptions{
			Endpoint:  cfg.MediaEndpoint,
			AccessKey: cfg.MediaAccessKey,
			SecretKey: cfg.MediaSecretKey,
			Bucket:    cfg.MediaBucket,
			Region:    cfg.MediaRegion,
			PublicURL: cfg.MediaPublicURL,
			UseSSL:    cfg.MediaUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("media storage unavailable: %w", err)
		}
		mediaStore = minioStore
	}

	return NewServerWithDeps(cfg, db, redisClient, provider, mediaStore)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, in which case quotas, liked sets and revocations are
// kept in process and feed events are not broadcast.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, provider *generative.Provider, mediaStore media.Store) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	logger := middleware.Logger

	var (
		quota       store.Quota
		liked       repository.LikedPostsRepository
		revocations service.RevocationStore
	)
	if redisClient != nil {
		quota = store.NewRedisQuota(redisClient)
		liked = repository.NewRedisLikedPosts(redisClient, likedPostsTTL)
		revocations = service.NewRedisRevocations(redisClient)
	} else {
		quota = store.NewMemoryQuota()
		liked = repository.NewMemoryLikedPosts()
		revocations = service.NewMemoryRevocations(nil)
	}

	contentStore := store.NewContentStore(store.Options{
		Quota:           quota,
		DailyLimit:      cfg.DailyPostLimit,
		ReportThreshold: cfg.ReportThreshold,
		Logger:          logger,
	})
	seed.Populate(contentStore, seed.Options{
		Demo:   cfg.SeedDemoPosts,
		Fake:   cfg.SeedFakePosts,
		Logger: logger,
	})

	userRepo := repository.NewUserRepository(db)
	notifier := notifications.NewNotifier(redisClient)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("soulspark-api"),
		logger:         logger,
		userRepo:       userRepo,
		notifier:       notifier,
		feed:           newFeedHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		contentStore:   contentStore,
	}
	server.shutdownCtx, server.shutdownFn = context.WithCancel(context.Background())

	server.authService = service.NewAuthService(userRepo, service.AuthOptions{
		Secret:      cfg.JWTSecret,
		TokenTTL:    cfg.TokenTTL(),
		Revocations: revocations,
		Logger:      logger,
	})

	contentDeps := service.ContentDeps{
		Store:    contentStore,
		Liked:    liked,
		Media:    mediaStore,
		Notifier: notifier,
		Logger:   logger,
	}
	var responder service.ChatResponder
	if provider != nil {
		contentDeps.Text = provider
		contentDeps.Images = provider
		responder = provider
	}
	server.contentService = service.NewContentService(contentDeps)
	server.companionService = service.NewCompanionService(responder)

	return server, nil
}

// NewApp builds the Fiber application with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "SoulSpark API",
		BodyLimit: (s.config.ImageMaxUploadMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			s.logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Viewer-ID",
		ExposeHeaders:    "X-Viewer-ID, X-Trace-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
				"code":  models.CodeRateLimitExceeded,
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api", s.OptionalIdentity())
	api.Get("/flags", s.GetFeatureFlags)

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Get("/me", s.AuthRequired(), s.Me)

	// Feed views
	api.Get("/posts", s.GetPosts)
	api.Get("/stories", s.GetStories)
	api.Get("/profile", s.AuthRequired(), s.GetProfile)
	api.Get("/events", s.FeedUpgrade(), s.StreamEvents())

	posts := api.Group("/posts")
	posts.Post("/", s.CreatePost)
	posts.Post("/:id/like", s.LikePost)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Post("/:id/report", s.ReportPost)
	posts.Get("/:id", s.GetPost)

	backgrounds := api.Group("/backgrounds")
	backgrounds.Get("/", s.GetBackgrounds)
	backgrounds.Post("/upload", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "upload_background"), s.UploadBackground)

	generate := api.Group("/generate", middleware.RateLimit(
		s.redis, 20, time.Minute, "generate"))
	generate.Post("/text", s.GenerateText)
	generate.Post("/background", s.GenerateBackground)

	chat := api.Group("/chat")
	chat.Get("/greeting", s.ChatGreeting)
	chat.Post("/", middleware.RateLimit(
		s.redis, 30, time.Minute, "companion_chat"), s.Chat)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional; when it
// is configured but unreachable the service reports unhealthy.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"posts": s.contentStore.Len(),
		"time":  time.Now(),
	})
}

// GetFeatureFlags returns the flags evaluated for the current viewer.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	viewer := s.viewerID(c)
	return c.JSON(fiber.Map{
		"flags": fiber.Map{
			featureflags.LikesRequireAuth: s.featureFlags.EnabledOr(featureflags.LikesRequireAuth, viewer, false),
			featureflags.AIBackgrounds:    s.featureFlags.EnabledOr(featureflags.AIBackgrounds, viewer, true),
			featureflags.Companion:        s.featureFlags.EnabledOr(featureflags.Companion, viewer, true),
		},
		"configured": s.featureFlags.Snapshot(viewer),
	})
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.NewApp()

	if s.redis != nil {
		if err := s.notifier.Subscribe(s.shutdownCtx, s.feed.broadcast); err != nil {
			s.logger.Error("failed to subscribe to feed events", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("server starting", slog.String("port", s.config.Port), slog.Int("posts", s.contentStore.Len()))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}
	s.feed.close()

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			s.logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			s.logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			s.logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}
