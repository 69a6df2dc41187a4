// Package server contains the HTTP handlers and route table of the API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "agora/docs" // swagger docs
	"agora/internal/bootstrap"
	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/featureflags"
	"agora/internal/mail"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/notifications"
	"agora/internal/repository"
	"agora/internal/service"
	"agora/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// eventPublisher is the part of the notifier the handlers use.
type eventPublisher interface {
	Publish(ctx context.Context, eventType string, payload map[string]interface{}, recipients ...uint) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	rateLimiter    *middleware.RateLimiter
	events         eventPublisher
	mailer         *mail.SMTPMailer
	avatars        *storage.AvatarStore
	featureFlags   *featureflags.Manager

	authService       *service.AuthService
	userService       *service.UserService
	postService       *service.PostService
	commentService    *service.CommentService
	engagementService *service.EngagementService
	moderationService *service.ModerationService
}

// NewServer connects the runtime dependencies described by cfg and wires a
// server around them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil Redis client disables rate limiting and event publishing.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires a config and a database")
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	tokens := service.NewTokenService(cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLHours)*time.Hour,
	)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("agora-api"),
		rateLimiter:    middleware.NewRateLimiter(redisClient, cfg.Env),
		mailer:         mail.NewSMTPMailer(cfg),
		avatars:        storage.NewAvatarStore(cfg),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	if redisClient != nil {
		s.events = notifications.NewNotifier(redisClient)
	}

	s.userService = service.NewUserService(userRepo, s.avatars)
	isAdmin := s.userService.IsAdmin
	s.authService = service.NewAuthService(userRepo, repository.NewRevokedTokenRepository(db), tokens, s.mailer)
	s.postService = service.NewPostService(postRepo, isAdmin)
	s.commentService = service.NewCommentService(commentRepo, postRepo, isAdmin)
	s.engagementService = service.NewEngagementService(
		repository.NewEngagementRepository(db), postRepo, commentRepo, s.featureFlags, isAdmin)
	s.moderationService = service.NewModerationService(
		repository.NewModerationRepository(db), postRepo, commentRepo, userRepo)

	return s, nil
}

// NewApp builds the Fiber application with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Agora API",
		BodyLimit: 6 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
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

	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so short-circuited responses still carry
	// CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	if s.rateLimiter.Enabled() {
		app.Use(limiter.New(limiter.Config{
			Max:        100,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions
			},
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
					Error: "Too many requests, please try again later.",
					Code:  middleware.CodeRateLimited,
				})
			},
		}))
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static(s.avatars.URLPrefix(), s.avatars.Dir(), fiber.Static{MaxAge: 3600})

	api := app.Group("/api")
	api.Get("/", s.ReadinessCheck)
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "Agora Metrics"}))

	authenticate := s.authenticator()
	authRequired := middleware.AuthRequired(authenticate)
	optionalAuth := middleware.OptionalAuth(authenticate)
	adminRequired := middleware.AdminRequired(s.userService.IsAdmin)
	limit := s.rateLimiter.Limit

	auth := api.Group("/auth")
	auth.Post("/register", limit(5, 10*time.Minute, "register"), s.Register)
	auth.Post("/signup", limit(5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", limit(10, 5*time.Minute, "login"), s.Login)
	auth.Post("/refresh", limit(30, 5*time.Minute, "refresh"), s.Refresh)
	auth.Post("/logout", authRequired, s.Logout)

	users := api.Group("/users")
	users.Get("/me", authRequired, s.GetMyProfile)
	users.Put("/me", authRequired, s.UpdateMyProfile)
	users.Post("/me/avatar", authRequired, limit(10, 10*time.Minute, "avatar"), s.UploadAvatar)
	users.Get("/:id/posts", optionalAuth, s.GetUserPosts)
	users.Get("/:id", optionalAuth, s.GetUserProfile)

	posts := api.Group("/posts")
	posts.Get("/", optionalAuth, s.GetPosts)
	posts.Post("/", authRequired, limit(5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Get("/:id/comments", optionalAuth, s.GetComments)
	posts.Post("/:id/comments", authRequired, limit(10, time.Minute, "create_comment"), s.CreateComment)
	posts.Post("/:id/vote", authRequired, limit(60, time.Minute, "vote"), s.VotePost)
	posts.Delete("/:id/vote", authRequired, limit(60, time.Minute, "vote"), s.RemovePostVote)
	posts.Post("/:id/like", authRequired, limit(60, time.Minute, "vote"), s.LikePost)
	posts.Get("/:id", optionalAuth, s.GetPost)
	posts.Put("/:id", authRequired, s.UpdatePost)
	posts.Delete("/:id", authRequired, s.DeletePost)

	comments := api.Group("/comments", authRequired)
	comments.Post("/:id/vote", limit(60, time.Minute, "vote"), s.VoteComment)
	comments.Delete("/:id/vote", limit(60, time.Minute, "vote"), s.RemoveCommentVote)
	comments.Post("/:id/like", limit(60, time.Minute, "vote"), s.LikeComment)
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	admin := api.Group("/admin", authRequired, adminRequired)
	admin.Get("/queue", s.GetModerationQueue)
	admin.Get("/stats", s.GetPlatformStats)
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Post("/users/:id/block", s.BlockUser)
	admin.Post("/users/:id/unblock", s.UnblockUser)
	admin.Delete("/users/:id", s.DeleteUser)
	admin.Post("/:type/bulk-approve", s.BulkApprove)
	admin.Post("/:type/bulk-delete", s.BulkDelete)
	admin.Post("/:type/:id/:action", s.ModerateContent)
}

// authenticator adapts the auth service to the middleware contract.
func (s *Server) authenticator() middleware.Authenticator {
	return func(ctx context.Context, token string) (uint, any, error) {
		user, claims, err := s.authService.Authenticate(ctx, token)
		if err != nil {
			return 0, nil, err
		}
		return user.ID, claims, nil
	}
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis reachability. Redis is optional:
// without it the API runs with rate limiting and events off.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
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
	overall := "healthy"
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	case redisStatus == "unhealthy":
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app and listens on the configured port until Shutdown.
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, waits for queued mail and closes the
// store connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}

	if s.mailer != nil {
		s.mailer.Wait()
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return errors.Join(errs...)
}
