package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8099", cfg.Port)
	assert.Equal(t, 500, cfg.SyncBatchSize)
	assert.Equal(t, 3, cfg.SyncMaxRetries)
	assert.Equal(t, 30, cfg.DefaultLookbackDays)
	assert.Equal(t, 90*time.Second, cfg.VisibilityWait)
	assert.Equal(t, time.Second, cfg.PageDelay)
	assert.Equal(t, 30*time.Second, cfg.RateLimitCooldown)
	assert.Equal(t, 7, cfg.CriticalDaysCeiling)
	assert.Equal(t, 14, cfg.WarningDaysCeiling)
	assert.Equal(t, 10, cfg.MaxCriticalsNotified)
	assert.NotEmpty(t, cfg.DatabaseURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SYNC_BATCH_SIZE", "250")
	t.Setenv("STAGING_VISIBILITY_WAIT", "2m")
	t.Setenv("NOTIFY_WEBHOOK_URL", "https://hooks.example.com/T123")

	cfg := Load()

	assert.Equal(t, 250, cfg.SyncBatchSize)
	assert.Equal(t, 2*time.Minute, cfg.VisibilityWait)
	assert.Equal(t, "https://hooks.example.com/T123", cfg.NotifyWebhookURL)
}

func TestLoadClampsReportPollInterval(t *testing.T) {
	t.Setenv("REPORT_POLL_INTERVAL", "1s")

	cfg := Load()

	assert.Equal(t, 10*time.Second, cfg.ReportPollInterval)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SYNC_MAX_RETRIES", "lots")
	t.Setenv("PAGE_DELAY", "soon")

	cfg := Load()

	assert.Equal(t, 3, cfg.SyncMaxRetries)
	assert.Equal(t, time.Second, cfg.PageDelay)
}
