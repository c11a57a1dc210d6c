package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contentflow/internal/ai"
	"contentflow/internal/config"
	"contentflow/internal/database"
	"contentflow/internal/handlers"
	"contentflow/internal/routes"
	"contentflow/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// JSON structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting contentflow", "version", handlers.Version)

	// ─── Config ──────────────────────────────────────────────────────────
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found")
	}
	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}
	if cfg.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY not set, AI rewrite chat will fail")
	}

	// ─── Database ────────────────────────────────────────────────────────
	if err := database.Connect(cfg); err != nil {
		slog.Error("Database connection failed", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}

	db := database.DB

	if err := handlers.EnsureAdmin(db, cfg); err != nil {
		slog.Error("Admin seed failed", "error", err)
		os.Exit(1)
	}

	// ─── Relay ───────────────────────────────────────────────────────────
	relay := ai.New(ai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		APIURL:              cfg.OpenAIAPIURL,
		DefaultModel:        cfg.OpenAIModel,
		MaxCompletionTokens: cfg.AIMaxCompletionTokens,
	}, store.NewConversationStore(db))

	// ─── Handlers ───────────────────────────────────────────────────────
	authHandler := handlers.NewAuthHandler(cfg, db)
	aiHandler := handlers.NewAIHandler(relay)
	conversationHandler := handlers.NewConversationHandler(db)
	invitationHandler := handlers.NewInvitationHandler(cfg, db)
	requestHandler := handlers.NewRequestHandler(db)
	analyticsHandler := handlers.NewAnalyticsHandler(db)
	systemHandler := handlers.NewSystemHandler(db)

	// ─── Fiber App ──────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      "contentflow v" + handlers.Version,
		ServerHeader: "contentflow",
		BodyLimit:    10 * 1024 * 1024, // 10MB for attached documents
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal server error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			return c.Status(code).JSON(fiber.Map{
				"error": message,
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, PATCH, OPTIONS",
	}))

	app.Use(recover.New(recover.Config{
		EnableStackTrace: false,
	}))

	// Security headers
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Request logger
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if c.Path() == "/api/health" {
			return err
		}
		slog.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.IP(),
		)
		return err
	})

	// ─── Routes ─────────────────────────────────────────────────────────
	routes.Setup(app, cfg, authHandler, aiHandler, conversationHandler,
		invitationHandler, requestHandler, analyticsHandler, systemHandler)

	// ─── Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down contentflow...")

		if err := app.Shutdown(); err != nil {
			slog.Error("Fiber shutdown error", "error", err)
		}

		if sqlDB, err := database.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	// ─── Start ──────────────────────────────────────────────────────────
	listenAddr := ":" + cfg.Port
	slog.Info("contentflow listening", "addr", listenAddr)

	if err := app.Listen(listenAddr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}
