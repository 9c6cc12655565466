package models

import (
	"time"

	"github.com/google/uuid"
)

// SKUMapping maps a channel-local SKU to the master SKU used in the durable
// store. When IsCaseProduct is true, channel quantities are tracked in
// multi-unit packs and must be multiplied by UnitsPerCase before being
// treated as unit inventory.
type SKUMapping struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	Channel    ChannelType `gorm:"type:varchar(50);not null;uniqueIndex:idx_sku_mappings_channel_sku" json:"channel"`
	ChannelSKU string      `gorm:"type:varchar(255);not null;uniqueIndex:idx_sku_mappings_channel_sku" json:"channelSku"`

	MasterSKU     string `gorm:"type:varchar(255);not null;index:idx_sku_mappings_master" json:"masterSku"`
	IsCaseProduct bool   `gorm:"default:false" json:"isCaseProduct"`
	UnitsPerCase  int    `gorm:"default:1" json:"unitsPerCase"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
	CreatedBy string    `gorm:"type:varchar(255)" json:"createdBy,omitempty"`
}

// TableName specifies the table name for SKUMapping
func (SKUMapping) TableName() string {
	return "sku_mappings"
}
