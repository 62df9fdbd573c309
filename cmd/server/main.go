package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/clipforge/api/internal/cleanup"
	"github.com/clipforge/api/internal/config"
	"github.com/clipforge/api/internal/handler"
	"github.com/clipforge/api/internal/middleware"
	"github.com/clipforge/api/internal/model"
	"github.com/clipforge/api/internal/render"
	"github.com/clipforge/api/internal/scheduler"
	"github.com/clipforge/api/internal/template"
	"github.com/clipforge/api/internal/webhook"
	"github.com/clipforge/api/internal/ws"
	"github.com/clipforge/api/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.Paths.TempDir, 0o755); err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}

	// Template store (seeds the default template)
	templates, err := template.NewStore(cfg.Paths.TemplatesDir)
	if err != nil {
		log.Fatalf("Failed to initialize template store: %v", err)
	}

	// Encoder availability is probed once here and cached
	encoder := render.NewEncoder()
	if encoder.Available() {
		log.Printf("FFmpeg detected: %s", encoder.Version())
	} else {
		log.Printf("Warning: FFmpeg not found, render jobs will be rejected")
	}

	// Optional Redis for rate limiting
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis not available, rate limiting disabled: %v", err)
			redisClient = nil
		}
	}

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Webhook notifier
	webhookPolicy := webhook.RetryPolicy{
		MaxAttempts:       1 + cfg.Webhook.Retries,
		PerAttemptTimeout: cfg.Webhook.Timeout,
		Backoff:           cfg.Webhook.Backoff,
	}
	notifier := webhook.New(webhookPolicy)

	// Render pipeline
	fetcher := render.NewFetcher(cfg.Download.Timeout, cfg.Download.ParallelScenes, cfg.Download.ParallelDownloads)
	engine := render.NewEngine(templates, fetcher, encoder, cfg.Paths.TempDir, cfg.Render.DefaultMode)

	// The single scheduler value shared by every component
	sched := scheduler.New(scheduler.Options{
		Workers:    cfg.Queue.MaxConcurrentJobs,
		QueueSize:  cfg.Queue.MaxQueueSize,
		Runner:     engine,
		ErrCode:    render.CodeOf,
		OnProgress: hub.BroadcastProgress,
		OnTerminal: func(job model.Job) {
			hub.BroadcastTerminal(job)
			if url := job.Request.WebhookURL; url != "" {
				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), webhookPolicy.Budget())
					defer cancel()
					if err := notifier.Notify(ctx, url, job); err != nil {
						log.Printf("Webhook for job %s gave up: %v", job.ID, err)
					}
				}()
			}
		},
	})

	sched.Start()

	// Retention sweeper
	sweeper := cleanup.NewSweeper(cfg.Paths.TempDir, sched)
	sweeper.Sweep(cfg.Retention.VideoRetentionHours)
	stopSweeper := make(chan struct{})
	go sweeper.RunPeriodic(time.Hour, cfg.Retention.VideoRetentionHours, stopSweeper)

	// Initialize validator
	validate := validator.New()

	// Handlers
	renderHandler := handler.NewRenderHandler(sched, templates, encoder, cfg, validate)
	templateHandler := handler.NewTemplateHandler(templates)
	opsHandler := handler.NewOpsHandler(sched, templates, encoder, sweeper, cfg)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.APIKeys)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key",
	}))

	// Health check
	app.Get("/", opsHandler.Health)

	// Authenticated API
	auth := authMiddleware.Authenticate()

	app.Post("/render-video", auth, rateLimiter.RenderLimit(cfg.RateLimit.RenderPerHour), renderHandler.Start)
	app.Get("/status/:jobId", auth, renderHandler.Status)
	app.Get("/download/:jobId", auth, renderHandler.Download)
	app.Get("/jobs", auth, renderHandler.ListJobs)

	app.Post("/create-template", auth, templateHandler.Create)
	app.Get("/templates", auth, templateHandler.List)
	app.Get("/templates/:templateId", auth, templateHandler.Get)
	app.Delete("/templates/:templateId", auth, templateHandler.Delete)

	app.Post("/cleanup", auth, opsHandler.Cleanup)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		close(stopSweeper)
		sched.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	errCode := response.CodeServerError
	if code == fiber.StatusNotFound {
		errCode = response.CodeNotFound
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    errCode,
			"message": message,
		},
	})
}
