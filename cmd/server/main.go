package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/trackmail/trackmail-backend/internal/ai"
	"github.com/trackmail/trackmail-backend/internal/api"
	"github.com/trackmail/trackmail-backend/internal/config"
	"github.com/trackmail/trackmail-backend/internal/database"
	"github.com/trackmail/trackmail-backend/internal/ingest"
	"github.com/trackmail/trackmail-backend/internal/logger"
	"github.com/trackmail/trackmail-backend/internal/repository"
	"github.com/trackmail/trackmail-backend/internal/smtp"
	"github.com/trackmail/trackmail-backend/internal/websocket"
)

func main() {
	// .env is optional; real deployments configure via the environment
	_ = godotenv.Load()

	cfg, err := config.LoadWithValidation()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting trackmail backend")
	cfg.LogConfig(log)

	// Database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Repositories
	profileRepo := repository.NewProfileRepository(db)
	appRepo := repository.NewApplicationRepository(db)
	eventRepo := repository.NewEventRepository(db)
	emailRepo := repository.NewEmailRepository(db)

	// AI detection is optional; without a key the keyword classifier stands alone
	var detector ai.Detector
	if cfg.OpenAIAPIKey != "" {
		detector = ai.NewOpenAIDetector(ai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.DetectTimeout,
		})
		log.Info("ai detection enabled", slog.String("model", cfg.OpenAIModel))
	}

	// WebSocket hub
	hub := websocket.NewHub(log)
	go hub.Run()

	// Ingestion pipeline
	pipeline := ingest.NewPipeline(&ingest.PipelineConfig{
		Profiles: profileRepo,
		Emails:   emailRepo,
		Apps:     appRepo,
		Events:   eventRepo,
		Detector: detector,
		Notifier: hub,
		Logger:   log,
	})

	// HTTP API
	var origins []string
	for _, origin := range strings.Split(cfg.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	router := api.NewRouter(&api.RouterConfig{
		DB:             db,
		Pipeline:       pipeline,
		Hub:            hub,
		Logger:         log,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: origins,
		SMTPDomain:     cfg.SMTPDomain,
		RateLimit:      int(cfg.RateLimitRequests),
		RateBurst:      cfg.RateLimitBurst,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		log.Info("http server listening", slog.String("addr", addr))
		if err := router.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// SMTP ingestion server
	var smtpServer interface{ Close() error }
	if cfg.SMTPEnabled {
		backend := smtp.NewBackend(&smtp.BackendConfig{
			ProfileRepo:    profileRepo,
			Pipeline:       pipeline,
			SecurityLogger: logger.NewSecurityLoggerWithHandler(log.Handler()),
			Logger:         log,
		})

		serverCfg := smtp.LoadServerConfigFromEnv()
		serverCfg.Addr = fmt.Sprintf(":%d", cfg.SMTPPort)
		serverCfg.Domain = cfg.SMTPDomain

		server := smtp.NewSecureServer(backend, serverCfg)
		smtpServer = server

		go func() {
			log.Info("smtp server listening",
				slog.String("addr", serverCfg.Addr),
				slog.String("domain", serverCfg.Domain))
			if err := server.ListenAndServe(); err != nil {
				log.Error("smtp server error", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := router.Shutdown(ctx); err != nil {
		log.Error("http shutdown error", slog.Any("error", err))
	}
	if smtpServer != nil {
		if err := smtpServer.Close(); err != nil {
			log.Error("smtp shutdown error", slog.Any("error", err))
		}
	}

	log.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
