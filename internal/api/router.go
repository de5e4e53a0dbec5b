package api

import (
	"log/slog"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/trackmail/trackmail-backend/internal/api/handlers"
	"github.com/trackmail/trackmail-backend/internal/api/middleware"
	"github.com/trackmail/trackmail-backend/internal/ingest"
	"github.com/trackmail/trackmail-backend/internal/repository"
	"github.com/trackmail/trackmail-backend/internal/websocket"
	"gorm.io/gorm"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB       *gorm.DB
	Pipeline *ingest.Pipeline
	Hub      *websocket.Hub
	Logger   *slog.Logger
	// Security configuration
	JWTSecret      string   // HMAC secret for bearer tokens
	AllowedOrigins []string // Allowed CORS origins
	SMTPDomain     string   // Domain of the ingestion addresses
	RateLimit      int      // Requests per second (0 = use env default)
	RateBurst      int      // Burst size for rate limiter
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Security Middleware (applied in correct order)
	// 1. Recover from panics
	e.Use(middleware.Recover())

	// 2. Security headers (applied to all responses)
	e.Use(middleware.SecureHeaders())

	// 3. CORS - Set environment variable if origins provided in config
	if len(cfg.AllowedOrigins) > 0 {
		os.Setenv("ALLOWED_ORIGINS", strings.Join(cfg.AllowedOrigins, ","))
	}
	e.Use(middleware.SecureCORS())

	// 4. Rate limiting - use RateLimiterWithConfig if custom values provided
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(float64(cfg.RateLimit), cfg.RateBurst, cfg.Logger))
	} else {
		e.Use(middleware.RateLimiter(cfg.Logger))
	}

	// 5. Request logging
	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	// Initialize repositories
	profileRepo := repository.NewProfileRepository(cfg.DB)
	appRepo := repository.NewApplicationRepository(cfg.DB)
	eventRepo := repository.NewEventRepository(cfg.DB)
	emailRepo := repository.NewEmailRepository(cfg.DB)
	keyRepo := repository.NewAPIKeyRepository(cfg.DB)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB)
	appHandler := handlers.NewApplicationHandler(appRepo, eventRepo, emailRepo)
	ingestHandler := handlers.NewIngestHandler(cfg.Pipeline)
	profileHandler := handlers.NewProfileHandler(profileRepo, cfg.SMTPDomain)
	keyHandler := handlers.NewAPIKeyHandler(keyRepo)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	// API routes
	api := e.Group("/api")
	api.Use(middleware.Auth(middleware.AuthConfig{
		JWTSecret: cfg.JWTSecret,
		APIKeys:   keyRepo,
		Logger:    cfg.Logger,
	}))

	// Application routes
	apps := api.Group("/applications")
	apps.POST("", appHandler.Create)
	apps.GET("", appHandler.List)
	apps.GET("/export", appHandler.Export)
	apps.GET("/status-groups", appHandler.StatusGroups)
	apps.GET("/:id", appHandler.Get)
	apps.PATCH("/:id", appHandler.Update)
	apps.DELETE("/:id", appHandler.Delete)
	apps.GET("/:id/events", appHandler.ListEvents)
	apps.POST("/:id/events", appHandler.CreateEvent)
	apps.GET("/:id/emails", appHandler.ListEmails)

	// Analytics routes
	api.GET("/analytics/overview", appHandler.Analytics)

	// Ingestion routes
	api.POST("/ingest/email", ingestHandler.Ingest)
	api.POST("/ingest/email/test", ingestHandler.Preview)

	// Profile routes
	api.GET("/profile", profileHandler.Get)
	api.PATCH("/profile", profileHandler.Update)
	api.POST("/profile/rotate-token", profileHandler.RotateIngestToken)

	// API key routes
	api.POST("/api-keys", keyHandler.Issue)
	api.GET("/api-keys", keyHandler.List)
	api.DELETE("/api-keys/:id", keyHandler.Revoke)

	// WebSocket notifications
	if cfg.Hub != nil {
		wsHandler := handlers.NewWebSocketHandler(cfg.Hub, websocket.NewSecureUpgrader(cfg.Logger), cfg.Logger)
		api.GET("/ws", wsHandler.Connect)
	}

	return e
}
