package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertSeverity classifies a stockout alert
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "CRITICAL"
	SeverityWarning  AlertSeverity = "WARNING"
)

// StockoutAlert is one persisted forecaster result row, one per master SKU
// per forecast run.
type StockoutAlert struct {
	ID    uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RunID *uuid.UUID `gorm:"type:uuid;index:idx_stockout_alerts_run" json:"runId,omitempty"`

	MasterSKU string        `gorm:"type:varchar(255);not null;index:idx_stockout_alerts_sku" json:"masterSku"`
	Severity  AlertSeverity `gorm:"type:varchar(20);not null;index:idx_stockout_alerts_severity" json:"severity"`

	// Forecast inputs and outputs
	DailyAvgSales     float64 `gorm:"type:decimal(12,4)" json:"dailyAvgSales"`
	AvailableQuantity int     `gorm:"default:0" json:"availableQuantity"`
	InboundQuantity   int     `gorm:"default:0" json:"inboundQuantity"`
	DaysUntilStockout int     `gorm:"default:0" json:"daysUntilStockout"`
	SuggestedReorder  int     `gorm:"default:0" json:"suggestedReorder"`
	Depleted          bool    `gorm:"default:false" json:"depleted"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_stockout_alerts_created" json:"createdAt"`
}

// TableName specifies the table name for StockoutAlert
func (StockoutAlert) TableName() string {
	return "stockout_alerts"
}
