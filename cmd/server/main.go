package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/localnerve/airtable-forms/internal/airtable"
	"github.com/localnerve/airtable-forms/internal/config"
	"github.com/localnerve/airtable-forms/internal/database"
	"github.com/localnerve/airtable-forms/internal/handlers"
	"github.com/localnerve/airtable-forms/internal/services"
	"github.com/localnerve/airtable-forms/internal/storage"

	_ "github.com/localnerve/airtable-forms/docs/api" // Swagger docs
)

// @title Airtable Forms API
// @version 1.0.0
// @description Build forms over Airtable tables and proxy submissions into them
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/airtable-forms
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:4000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name app_token

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Object storage, disabled without credentials
	uploader, err := storage.New(cfg)
	if err != nil {
		log.Fatalf("Failed to configure uploads: %v", err)
	}
	uploads := &services.UploadService{
		DB:       db,
		Uploader: uploader,
		Folder:   cfg.UploadFolder,
		MaxFiles: cfg.UploadMaxFiles,
	}

	gateway := airtable.NewClient(cfg.AirtableAPIURL)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    cfg.BodyLimit,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())
	// Session cookies need credentialed CORS, which cannot be combined with "*"
	if len(cfg.ClientOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(cfg.ClientOrigins, ","),
			AllowCredentials: true,
		}))
	}

	// Prometheus metrics
	prometheus := fiberprometheus.New("airtable_forms")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Routes
	handlers.RegisterRoutes(app, handlers.NewDeps(cfg, db, gateway, uploads))

	// 404 handler
	app.Use(handlers.NotFoundHandler)

	// Staged upload sweeper
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.UploadsConfigured() {
		uploads.StartSweeper(ctx, cfg.SweepInterval, cfg.StagedUploadTTL)
		log.Printf("Sweeping staged uploads older than %s every %s", cfg.StagedUploadTTL, cfg.SweepInterval)
	}

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}
