package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"channel-sync-service/internal/models"
)

// AlertRepository handles database operations for stockout alerts
type AlertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// CreateBatch persists one forecast run's alerts
func (r *AlertRepository) CreateBatch(ctx context.Context, alerts []models.StockoutAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(alerts, 100).Error
}

// GetByRun retrieves all alerts produced by one run
func (r *AlertRepository) GetByRun(ctx context.Context, runID uuid.UUID) ([]models.StockoutAlert, error) {
	var alerts []models.StockoutAlert
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("days_until_stockout ASC").
		Find(&alerts).Error
	return alerts, err
}

// List retrieves alerts with pagination and filtering
func (r *AlertRepository) List(ctx context.Context, opts AlertListOptions) ([]models.StockoutAlert, int64, error) {
	var alerts []models.StockoutAlert
	var total int64

	query := r.db.WithContext(ctx).Model(&models.StockoutAlert{})

	if opts.Severity != "" {
		query = query.Where("severity = ?", opts.Severity)
	}
	if opts.MasterSKU != "" {
		query = query.Where("master_sku = ?", opts.MasterSKU)
	}

	// Get total count
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Apply pagination and ordering
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}
	query = query.Order("created_at DESC, days_until_stockout ASC")

	if err := query.Find(&alerts).Error; err != nil {
		return nil, 0, err
	}

	return alerts, total, nil
}

// AlertListOptions contains options for listing alerts
type AlertListOptions struct {
	Severity  string
	MasterSKU string
	Limit     int
	Offset    int
}
