package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"product-drafts-service/internal/clients"
	"product-drafts-service/internal/config"
	"product-drafts-service/internal/events"
	"product-drafts-service/internal/handlers"
	"product-drafts-service/internal/middleware"
	"product-drafts-service/internal/models"
	"product-drafts-service/internal/repository"
	"product-drafts-service/internal/services"
)

// @title Product Drafts API
// @version 1.0.0
// @description Draft editing and submission for bracelet, rudraksha and puja products

// @host localhost:8095
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	schemas, err := models.DefaultSchemaRegistry(cfg.MaxProductImages)
	if err != nil {
		logger.WithError(err).Fatal("Invalid product schemas")
	}

	// Submission history is optional
	var history *repository.SubmissionRepository
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.WithError(err).Warn("Failed to connect to database (submission history disabled)")
	} else {
		history = repository.NewSubmissionRepository(db)
		logger.Info("Database connected")
	}

	// Redis keeps draft autosaves
	var redisClient *redis.Client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("Failed to parse Redis URL (drafts will not survive a restart)")
	} else {
		redisClient = redis.NewClient(redisOpts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Failed to connect to Redis (drafts will not survive a restart)")
			redisClient.Close()
			redisClient = nil
		} else {
			logger.Info("Redis connected")
		}
		cancel()
	}

	// Outcome notifications go to NATS when configured, the log otherwise
	var notifier services.Notifier = events.NewLogNotifier(logger)
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize events publisher (logging outcomes instead)")
		} else {
			notifier = publisher
			logger.Info("Events publisher initialized (NATS connected)")
		}
	} else {
		logger.Info("NATS_URL not set, logging submission outcomes")
	}

	catalogClient := clients.NewCatalogClient(clients.CatalogClientConfig{
		BaseURL:   cfg.CatalogServiceURL,
		Timeout:   cfg.CatalogTimeout,
		RateLimit: cfg.CatalogRateLimit,
	}, logger)

	draftRepo := repository.NewDraftRepository(schemas, redisClient, cfg.DraftTTL, logger)

	var recorder services.SubmissionRecorder
	var lister handlers.SubmissionLister
	if history != nil {
		recorder = history
		lister = history
	}
	submissionService := services.NewSubmissionService(catalogClient, draftRepo, notifier, recorder, logger)

	draftsHandler := handlers.NewDraftsHandler(draftRepo, submissionService, cfg.MaxUploadBytes, logger)
	schemaHandler := handlers.NewSchemaHandler(schemas)
	importHandler := handlers.NewImportHandler(schemas, draftRepo, cfg.MaxUploadBytes, logger)
	submissionsHandler := handlers.NewSubmissionsHandler(lister, cfg.DefaultPageSize, cfg.MaxPageSize, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authMiddleware := middleware.HeaderAuthMiddleware()
	if cfg.Environment == "development" {
		authMiddleware = middleware.DevelopmentAuthMiddleware()
	}

	api := router.Group("/api/v1")
	api.Use(authMiddleware, middleware.TenantMiddleware())
	{
		api.GET("/schemas", schemaHandler.ListSchemas)
		api.GET("/schemas/:type", schemaHandler.GetSchema)
		api.GET("/schemas/:type/template", importHandler.GetImportTemplate)

		drafts := api.Group("/drafts")
		{
			drafts.POST("", draftsHandler.CreateDraft)
			drafts.GET("", draftsHandler.ListDrafts)
			drafts.POST("/import", importHandler.ImportDraft)
			drafts.GET("/:id", draftsHandler.GetDraft)
			drafts.DELETE("/:id", draftsHandler.DeleteDraft)
			drafts.PUT("/:id/fields/:field", draftsHandler.SetField)
			drafts.POST("/:id/collections/:collection", draftsHandler.AppendItem)
			drafts.PUT("/:id/collections/:collection/:index", draftsHandler.SetItemField)
			drafts.DELETE("/:id/collections/:collection/:index", draftsHandler.RemoveItem)
			drafts.POST("/:id/attachments", draftsHandler.AddAttachments)
			drafts.DELETE("/:id/attachments/:index", draftsHandler.RemoveAttachment)
			drafts.POST("/:id/submit", draftsHandler.SubmitDraft)
		}

		api.GET("/submissions", submissionsHandler.ListSubmissions)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithField("port", cfg.Port).Info("Product drafts service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-quit
	logger.Info("Shutting down product-drafts-service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	if publisher != nil {
		publisher.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	logger.Info("Product drafts service stopped")
}
