package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChannelType represents the supported upstream channel platforms
type ChannelType string

const (
	ChannelMarketplace ChannelType = "MARKETPLACE"
	ChannelStorefront  ChannelType = "STOREFRONT"
	ChannelPOS         ChannelType = "POS"
	ChannelWarehouse   ChannelType = "WAREHOUSE"
)

// AccountStatus represents the status of a channel account
type AccountStatus string

const (
	AccountPending      AccountStatus = "PENDING"
	AccountConnected    AccountStatus = "CONNECTED"
	AccountDisconnected AccountStatus = "DISCONNECTED"
	AccountError        AccountStatus = "ERROR"
)

// JSONB custom type for PostgreSQL JSONB
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONB) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(j))
}

func (j *JSONB) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*j = JSONB(m)
	return nil
}

// ChannelAccount represents one configured account on an upstream channel
type ChannelAccount struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AccountName string      `gorm:"type:varchar(255);not null;uniqueIndex:idx_channel_accounts_name" json:"accountName"`
	ChannelType ChannelType `gorm:"type:varchar(50);not null;index:idx_channel_accounts_type" json:"channelType"`
	DisplayName string      `gorm:"type:varchar(255);not null" json:"displayName"`

	// Account Status
	Status    AccountStatus `gorm:"type:varchar(50);not null;default:'PENDING';index:idx_channel_accounts_status" json:"status"`
	IsEnabled bool          `gorm:"default:true" json:"isEnabled"`

	// Channel-specific identifiers
	ExternalStoreID string `gorm:"type:varchar(255)" json:"externalStoreId,omitempty"`
	BaseURL         string `gorm:"type:varchar(500)" json:"baseUrl,omitempty"`

	// GCP Secret Manager reference for credentials
	SecretReference string     `gorm:"type:varchar(500)" json:"-"`
	TokenExpiresAt  *time.Time `json:"tokenExpiresAt,omitempty"`

	// Canonicalization defaults (non-sensitive)
	DefaultCurrency string `gorm:"type:varchar(3);default:'USD'" json:"defaultCurrency"`
	Config          JSONB  `gorm:"type:jsonb;default:'{}'" json:"config,omitempty"`

	// Metadata
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
	LastError  string     `gorm:"type:text" json:"lastError,omitempty"`
	ErrorCount int        `gorm:"default:0" json:"errorCount"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
	CreatedBy string    `gorm:"type:varchar(255)" json:"createdBy,omitempty"`

	// Relationships
	SyncRuns []SyncRun `gorm:"foreignKey:AccountID" json:"syncRuns,omitempty"`
}

// TableName specifies the table name for ChannelAccount
func (ChannelAccount) TableName() string {
	return "channel_accounts"
}
