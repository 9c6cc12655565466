package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"channel-sync-service/internal/models"
)

// AccountRepository handles database operations for channel accounts
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new channel account
func (r *AccountRepository) Create(ctx context.Context, account *models.ChannelAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ChannelAccount, error) {
	var account models.ChannelAccount
	err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByName retrieves an account by its unique name
func (r *AccountRepository) GetByName(ctx context.Context, accountName string) (*models.ChannelAccount, error) {
	var account models.ChannelAccount
	err := r.db.WithContext(ctx).
		Where("account_name = ?", accountName).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByChannel retrieves all accounts for a channel type
func (r *AccountRepository) GetByChannel(ctx context.Context, channel models.ChannelType) ([]models.ChannelAccount, error) {
	var accounts []models.ChannelAccount
	err := r.db.WithContext(ctx).
		Where("channel = ?", channel).
		Order("created_at DESC").
		Find(&accounts).Error
	return accounts, err
}

// GetActive retrieves all active accounts
func (r *AccountRepository) GetActive(ctx context.Context) ([]models.ChannelAccount, error) {
	var accounts []models.ChannelAccount
	err := r.db.WithContext(ctx).
		Where("status = ?", models.AccountConnected).
		Order("account_name ASC").
		Find(&accounts).Error
	return accounts, err
}

// Update updates an existing account
func (r *AccountRepository) Update(ctx context.Context, account *models.ChannelAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// UpdateStatus updates the account status
func (r *AccountRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.AccountStatus, lastError string) error {
	updates := map[string]interface{}{
		"status":     status,
		"last_error": lastError,
	}
	if status == models.AccountError {
		updates["error_count"] = gorm.Expr("error_count + 1")
	}
	return r.db.WithContext(ctx).
		Model(&models.ChannelAccount{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateLastSync records a successful sync and clears the error state
func (r *AccountRepository) UpdateLastSync(ctx context.Context, id uuid.UUID, syncedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ChannelAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_sync_at": syncedAt,
			"last_error":   "",
			"error_count":  0,
		}).Error
}

// Delete soft-deletes an account
func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ChannelAccount{}, "id = ?", id).Error
}

// List retrieves accounts with pagination and filtering
func (r *AccountRepository) List(ctx context.Context, opts AccountListOptions) ([]models.ChannelAccount, int64, error) {
	var accounts []models.ChannelAccount
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ChannelAccount{})

	if opts.Channel != "" {
		query = query.Where("channel = ?", opts.Channel)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
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
	query = query.Order("created_at DESC")

	if err := query.Find(&accounts).Error; err != nil {
		return nil, 0, err
	}

	return accounts, total, nil
}

// AccountListOptions contains options for listing accounts
type AccountListOptions struct {
	Channel string
	Status  string
	Limit   int
	Offset  int
}
