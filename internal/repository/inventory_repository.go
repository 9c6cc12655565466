package repository

import (
	"context"

	"gorm.io/gorm"

	"channel-sync-service/internal/models"
)

// InventoryRepository handles read access to merged inventory records. All
// writes go through the staging merge; nothing here mutates stock.
type InventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// GetBySKU retrieves all location rows for one master SKU
func (r *InventoryRepository) GetBySKU(ctx context.Context, sku string) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("location ASC").
		Find(&records).Error
	return records, err
}

// List retrieves inventory records with pagination and filtering
func (r *InventoryRepository) List(ctx context.Context, opts InventoryListOptions) ([]models.InventoryRecord, int64, error) {
	var records []models.InventoryRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&models.InventoryRecord{})

	if opts.SKU != "" {
		query = query.Where("sku = ?", opts.SKU)
	}
	if opts.Location != "" {
		query = query.Where("location = ?", opts.Location)
	}
	if opts.Channel != "" {
		query = query.Where("channel = ?", opts.Channel)
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
	query = query.Order("sku ASC, location ASC")

	if err := query.Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// InventoryListOptions contains options for listing inventory records
type InventoryListOptions struct {
	SKU      string
	Location string
	Channel  string
	Limit    int
	Offset   int
}
