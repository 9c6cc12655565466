package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the channel sync service
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// GCP
	GCPProjectID string

	// Sync Settings
	SyncBatchSize       int           // rows per staging insert batch
	SyncMaxRetries      int           // bounded retry count for transient upstream errors
	SyncTimeout         time.Duration // hard ceiling for one run
	DefaultLookbackDays int
	FullResyncDays      int

	// Staging Merge Pipeline
	// VisibilityWait is a correctness requirement: the sink rejects merges
	// against rows written within its write-visibility delay.
	VisibilityWait time.Duration

	// Connector pacing
	PageDelay          time.Duration // fixed delay between page/document requests
	RateLimitCooldown  time.Duration // fixed cooldown after an explicit 429
	ReportPollInterval time.Duration // spacing between report status polls
	ReportPollTimeout  time.Duration // max total wait for one report sub-window

	// Forecaster
	ForecastWindowDays   int
	CriticalDaysCeiling  int
	WarningDaysCeiling   int
	MaxCriticalsNotified int

	// Notification webhook; empty means notifications are a no-op
	NotifyWebhookURL string
}

// Load loads configuration from environment variables
func Load() *Config {
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "postgres")
		dbPassword := getEnv("DB_PASSWORD", "")
		dbName := getEnv("DB_NAME", "channel_sync")
		dbSSLMode := getEnv("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)
	}

	config := &Config{
		Port:        getEnv("PORT", "8099"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: databaseURL,

		GCPProjectID: getEnv("GCP_PROJECT_ID", ""),

		SyncBatchSize:       getEnvAsInt("SYNC_BATCH_SIZE", 500),
		SyncMaxRetries:      getEnvAsInt("SYNC_MAX_RETRIES", 3),
		SyncTimeout:         getEnvAsDuration("SYNC_TIMEOUT", 60*time.Minute),
		DefaultLookbackDays: getEnvAsInt("DEFAULT_LOOKBACK_DAYS", 30),
		FullResyncDays:      getEnvAsInt("FULL_RESYNC_DAYS", 365),

		VisibilityWait: getEnvAsDuration("STAGING_VISIBILITY_WAIT", 90*time.Second),

		PageDelay:          getEnvAsDuration("PAGE_DELAY", 1*time.Second),
		RateLimitCooldown:  getEnvAsDuration("RATE_LIMIT_COOLDOWN", 30*time.Second),
		ReportPollInterval: getEnvAsDuration("REPORT_POLL_INTERVAL", 10*time.Second),
		ReportPollTimeout:  getEnvAsDuration("REPORT_POLL_TIMEOUT", 10*time.Minute),

		ForecastWindowDays:   getEnvAsInt("FORECAST_WINDOW_DAYS", 30),
		CriticalDaysCeiling:  getEnvAsInt("CRITICAL_DAYS_CEILING", 7),
		WarningDaysCeiling:   getEnvAsInt("WARNING_DAYS_CEILING", 14),
		MaxCriticalsNotified: getEnvAsInt("MAX_CRITICALS_NOTIFIED", 10),

		NotifyWebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
	}

	// Validate required fields
	if config.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	if config.ReportPollInterval < 10*time.Second {
		log.Printf("Warning: REPORT_POLL_INTERVAL below 10s floor, clamping")
		config.ReportPollInterval = 10 * time.Second
	}

	if config.GCPProjectID == "" {
		log.Println("Warning: GCP_PROJECT_ID not set, secrets management will be disabled")
	}

	return config
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
