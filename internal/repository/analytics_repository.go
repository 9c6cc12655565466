package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"channel-sync-service/internal/models"
)

// SKUSales is aggregate sales for one master SKU over a trailing window
type SKUSales struct {
	SKU       string `json:"sku"`
	TotalSold int    `json:"totalSold"`
}

// SKUStock is aggregate stock for one master SKU across all locations
type SKUStock struct {
	SKU       string `json:"sku"`
	Available int    `json:"available"`
	Inbound   int    `json:"inbound"`
}

// AnalyticsRepository provides the cross-channel aggregates the forecaster
// consumes
type AnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// SalesSince returns units sold per master SKU for orders placed at or after
// the cutoff. Cancelled orders are excluded; all channels count.
func (r *AnalyticsRepository) SalesSince(ctx context.Context, cutoff time.Time) ([]SKUSales, error) {
	var sales []SKUSales
	err := r.db.WithContext(ctx).
		Table("order_line_items AS li").
		Select("li.sku AS sku, SUM(li.quantity) AS total_sold").
		Joins("JOIN orders o ON o.order_id = li.order_id AND o.channel = li.channel").
		Where("o.ordered_at >= ?", cutoff).
		Where("o.fulfillment_status <> ?", models.FulfillmentCancelled).
		Where("li.sku <> ''").
		Group("li.sku").
		Scan(&sales).Error
	return sales, err
}

// StockLevels returns available and inbound stock per master SKU summed
// across locations
func (r *AnalyticsRepository) StockLevels(ctx context.Context) ([]SKUStock, error) {
	var stock []SKUStock
	err := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Select("sku, SUM(available_quantity) AS available, SUM(inbound_quantity) AS inbound").
		Group("sku").
		Scan(&stock).Error
	return stock, err
}
