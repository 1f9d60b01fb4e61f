package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/Chicken/VenaaRauhassa/internal/api"
	"github.com/Chicken/VenaaRauhassa/internal/app"
	"github.com/Chicken/VenaaRauhassa/internal/cache"
	"github.com/Chicken/VenaaRauhassa/internal/config"
	"github.com/Chicken/VenaaRauhassa/internal/middleware"
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML configuration file")
	flag.Parse()

	log.Println("Starting VenaaRauhassa API server...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration:\n%v", err)
	}

	venaa, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer venaa.Close()

	if cfg.Server.Maintenance {
		log.Println("⚠ Maintenance mode enabled")
	}

	// Create Fiber app
	server := fiber.New(fiber.Config{
		AppName:      "VenaaRauhassa API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: api.ErrorHandler,
	})

	// Middleware
	server.Use(recover.New())
	server.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	server.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	server.Use(middleware.AnalyticsMiddleware(venaa.Metrics))

	if cfg.Server.RateLimitPerMinute > 0 {
		rdb, err := cache.GetClient()
		if err != nil {
			log.Printf("⚠ Rate limiting disabled: %v", err)
		} else {
			server.Use(middleware.RateLimitMiddleware(rdb, middleware.RateLimitConfig{
				PerMinute: cfg.Server.RateLimitPerMinute,
			}))
			if _, ok := venaa.HealthChecks["redis"]; !ok {
				venaa.HealthChecks["redis"] = cache.HealthCheck
				defer cache.Close()
			}
			log.Printf("✓ Rate limit: %d requests per minute", cfg.Server.RateLimitPerMinute)
		}
	}

	handler := &api.Handler{
		Trains:        venaa.Trains,
		Directory:     venaa.Digitraffic,
		Status:        venaa.Status,
		Reporter:      venaa.Reporter,
		Feedback:      venaa.FeedbackSender(),
		HealthChecks:  venaa.HealthChecks,
		Metrics:       venaa.MetricsHandler(),
		MetricsSecret: cfg.Server.MetricsSecret,
		Policy:        venaa.Policy,
		WagonImageURL: cfg.Train.WagonImageURL,
		Maintenance:   cfg.Server.Maintenance,
	}
	handler.Register(server)

	// 404 handler
	server.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("🚀 Server listening on http://localhost%s", addr)
	log.Printf("🚆 Train: http://localhost%s/v2/trains/YYYY-MM-DD/NUMBER", addr)
	log.Printf("❤️  Health check: http://localhost%s/health", addr)

	if err := server.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
