package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"product-drafts-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// NATS, empty disables event publishing
	NATSURL string

	// Server
	Port        string
	Environment string

	// Catalog backend
	CatalogServiceURL string
	CatalogTimeout    time.Duration
	CatalogRateLimit  float64

	// Drafts
	DraftTTL         time.Duration
	MaxProductImages int
	MaxUploadBytes   int64

	// Pagination
	DefaultPageSize int
	MaxPageSize     int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	catalogTimeout, err := time.ParseDuration(getEnv("CATALOG_TIMEOUT", "30s"))
	if err != nil {
		catalogTimeout = 30 * time.Second
	}
	catalogRateLimit, err := strconv.ParseFloat(getEnv("CATALOG_RATE_LIMIT", "5"), 64)
	if err != nil {
		catalogRateLimit = 5
	}
	draftTTL, err := time.ParseDuration(getEnv("DRAFT_TTL", "24h"))
	if err != nil {
		draftTTL = 24 * time.Hour
	}
	maxProductImages, _ := strconv.Atoi(getEnv("MAX_PRODUCT_IMAGES", "10"))
	maxUploadBytes, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "10485760"), 10, 64)
	if err != nil {
		maxUploadBytes = 10 << 20
	}
	defaultPageSize, _ := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "20"))
	maxPageSize, _ := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "100"))

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "product_drafts_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		NATSURL: os.Getenv("NATS_URL"),

		// Server
		Port:        getEnv("PORT", "8095"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Catalog backend
		CatalogServiceURL: getEnv("CATALOG_SERVICE_URL", "http://localhost:8080"),
		CatalogTimeout:    catalogTimeout,
		CatalogRateLimit:  catalogRateLimit,

		// Drafts
		DraftTTL:         draftTTL,
		MaxProductImages: maxProductImages,
		MaxUploadBytes:   maxUploadBytes,

		// Pagination
		DefaultPageSize: defaultPageSize,
		MaxPageSize:     maxPageSize,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(&models.DraftSubmission{}); err != nil {
		return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
