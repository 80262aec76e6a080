package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catprep/backend/cache"
	"catprep/backend/config"
	"catprep/backend/middleware"
	"catprep/backend/routes"
	"catprep/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(cfg.LogMode)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		logger.Fatal("database init failed", "driver", cfg.DBDriver, "error", err)
	}

	catalogCache := newCatalogCache(cfg, logger)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "catprep",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, db, cfg, catalogCache, logger)

	go func() {
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			logger.Fatal("server stopped", "error", err)
		}
	}()
	logger.Info("server started", "port", cfg.ServerPort, "db", cfg.DBDriver)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if closer, ok := catalogCache.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

// newCatalogCache uses Redis when REDIS_ADDR is set and falls back to an
// in-process cache when it is not or the server is unreachable.
func newCatalogCache(cfg *config.Config, logger *utils.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewMemory()
	}
	r, err := cache.NewRedis(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, using in-process catalog cache", "addr", cfg.RedisAddr, "error", err)
		return cache.NewMemory()
	}
	logger.Info("catalog cache", "backend", "redis", "addr", cfg.RedisAddr)
	return r
}
