package main

import (
	"context"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"channel-sync-service/internal/config"
	"channel-sync-service/internal/database"
	"channel-sync-service/internal/handlers"
	"channel-sync-service/internal/middleware"
	"channel-sync-service/internal/models"
	"channel-sync-service/internal/notify"
	"channel-sync-service/internal/repository"
	"channel-sync-service/internal/secrets"
	"channel-sync-service/internal/services"
	"channel-sync-service/internal/staging"
)

func main() {
	// Load .env in local development; in deployed environments the variables
	// are injected
	_ = godotenv.Load()

	cfg := config.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "development" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.ChannelAccount{},
		&models.SyncRun{},
		&models.SyncRunLog{},
		&models.SKUMapping{},
		&models.Order{},
		&models.OrderLineItem{},
		&models.InventoryRecord{},
		&models.StockoutAlert{},
	); err != nil {
		logrus.WithError(err).Warn("Auto-migration failed")
	}
	logrus.Info("Database models migrated")

	// Initialize GCP Secret Manager
	var secretManager *secrets.GCPSecretManager
	if cfg.GCPProjectID != "" {
		ctx := context.Background()
		secretManager, err = secrets.NewGCPSecretManager(ctx, cfg.GCPProjectID)
		if err != nil {
			logrus.WithError(err).Warn("Failed to initialize GCP Secret Manager")
		} else {
			logrus.Info("GCP Secret Manager initialized")
		}
	}

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db)
	syncRepo := repository.NewSyncRepository(db)
	mappingRepo := repository.NewSKUMappingRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	stagingRepo := repository.NewStagingRepository(db)

	// Staging merge pipeline
	pipeline := staging.NewPipeline(stagingRepo, stagingRepo, cfg.SyncBatchSize, cfg.VisibilityWait)

	// Initialize services
	notifier := notify.NewWebhookNotifier(cfg.NotifyWebhookURL)
	accountService := services.NewAccountService(accountRepo, secretManager, cfg)
	syncService := services.NewSyncService(syncRepo, accountRepo, mappingRepo, pipeline, secretManager, cfg)
	forecastService := services.NewForecastService(analyticsRepo, alertRepo, notifier, cfg)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	accountHandler := handlers.NewAccountHandler(accountService)
	syncHandler := handlers.NewSyncHandler(syncService)
	mappingHandler := handlers.NewMappingHandler(mappingRepo)
	inventoryHandler := handlers.NewInventoryHandler(inventoryRepo)
	forecastHandler := handlers.NewForecastHandler(forecastService)

	// Setup router
	router := setupRouter(cfg, healthHandler, accountHandler, syncHandler, mappingHandler, inventoryHandler, forecastHandler)

	// Start server
	logrus.WithFields(logrus.Fields{
		"port": cfg.Port,
		"env":  cfg.Environment,
	}).Info("Channel Sync Service starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("Failed to start server")
	}
}

// setupRouter configures the HTTP router
func setupRouter(
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	accountHandler *handlers.AccountHandler,
	syncHandler *handlers.SyncHandler,
	mappingHandler *handlers.MappingHandler,
	inventoryHandler *handlers.InventoryHandler,
	forecastHandler *handlers.ForecastHandler,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	// Security headers middleware
	router.Use(middleware.SecurityHeaders())

	// CORS middleware
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{
			"http://localhost:3000",
			"http://localhost:3001",
		}
	}
	router.Use(middleware.CORS(origins))

	// Health check
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		// Channel Accounts
		accounts := v1.Group("/accounts")
		{
			accounts.GET("", accountHandler.ListAccounts)
			accounts.POST("", accountHandler.CreateAccount)
			accounts.GET("/:id", accountHandler.GetAccount)
			accounts.PATCH("/:id", accountHandler.UpdateAccount)
			accounts.DELETE("/:id", accountHandler.DeleteAccount)
			accounts.POST("/:id/test", accountHandler.TestAccount)
		}

		// Sync Runs
		sync := v1.Group("/sync")
		{
			sync.GET("/runs", syncHandler.ListRuns)
			sync.POST("/runs", syncHandler.CreateRun)
			sync.GET("/runs/:id", syncHandler.GetRun)
			sync.POST("/runs/:id/cancel", syncHandler.CancelRun)
			sync.GET("/runs/:id/logs", syncHandler.GetRunLogs)
			sync.GET("/runs/:id/alerts", forecastHandler.GetRunAlerts)
			sync.GET("/stats", syncHandler.GetStats)
			sync.GET("/concurrency", syncHandler.GetConcurrencyStats)
		}

		// SKU Mappings
		mappings := v1.Group("/mappings")
		{
			mappings.GET("", mappingHandler.ListMappings)
			mappings.POST("", mappingHandler.CreateMapping)
			mappings.GET("/:id", mappingHandler.GetMapping)
			mappings.DELETE("/:id", mappingHandler.DeleteMapping)
		}

		// Merged Inventory (read-only)
		inventory := v1.Group("/inventory")
		{
			inventory.GET("", inventoryHandler.ListInventory)
			inventory.GET("/:sku", inventoryHandler.GetSKUInventory)
		}

		// Stockout Forecast
		forecast := v1.Group("/forecast")
		{
			forecast.POST("/run", forecastHandler.RunForecast)
			forecast.GET("/alerts", forecastHandler.ListAlerts)
		}
	}

	return router
}
