package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"channel-sync-service/internal/models"
)

// SKUMappingRepository handles database operations for SKU mappings
type SKUMappingRepository struct {
	db *gorm.DB
}

// NewSKUMappingRepository creates a new SKU mapping repository
func NewSKUMappingRepository(db *gorm.DB) *SKUMappingRepository {
	return &SKUMappingRepository{db: db}
}

// Create creates a new SKU mapping
func (r *SKUMappingRepository) Create(ctx context.Context, mapping *models.SKUMapping) error {
	return r.db.WithContext(ctx).Create(mapping).Error
}

// GetByID retrieves a mapping by ID
func (r *SKUMappingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SKUMapping, error) {
	var mapping models.SKUMapping
	err := r.db.WithContext(ctx).First(&mapping, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// GetByChannelSKU retrieves the mapping for one channel-local SKU
func (r *SKUMappingRepository) GetByChannelSKU(ctx context.Context, channel models.ChannelType, channelSKU string) (*models.SKUMapping, error) {
	var mapping models.SKUMapping
	err := r.db.WithContext(ctx).
		Where("channel = ? AND channel_sku = ?", channel, channelSKU).
		First(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// ListByChannel retrieves all mappings for a channel. The resolver loads
// this once per run as its lookup snapshot.
func (r *SKUMappingRepository) ListByChannel(ctx context.Context, channel models.ChannelType) ([]models.SKUMapping, error) {
	var mappings []models.SKUMapping
	err := r.db.WithContext(ctx).
		Where("channel = ?", channel).
		Find(&mappings).Error
	return mappings, err
}

// Upsert creates or replaces the mapping for (channel, channel_sku)
func (r *SKUMappingRepository) Upsert(ctx context.Context, mapping *models.SKUMapping) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "channel"}, {Name: "channel_sku"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"master_sku", "is_case_product", "units_per_case", "updated_at",
			}),
		}).
		Create(mapping).Error
}

// Update updates an existing mapping
func (r *SKUMappingRepository) Update(ctx context.Context, mapping *models.SKUMapping) error {
	return r.db.WithContext(ctx).Save(mapping).Error
}

// Delete deletes a mapping
func (r *SKUMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.SKUMapping{}, "id = ?", id).Error
}

// List retrieves mappings with pagination and filtering
func (r *SKUMappingRepository) List(ctx context.Context, opts MappingListOptions) ([]models.SKUMapping, int64, error) {
	var mappings []models.SKUMapping
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SKUMapping{})

	if opts.Channel != "" {
		query = query.Where("channel = ?", opts.Channel)
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
	query = query.Order("channel ASC, channel_sku ASC")

	if err := query.Find(&mappings).Error; err != nil {
		return nil, 0, err
	}

	return mappings, total, nil
}

// MappingListOptions contains options for listing SKU mappings
type MappingListOptions struct {
	Channel   string
	MasterSKU string
	Limit     int
	Offset    int
}
