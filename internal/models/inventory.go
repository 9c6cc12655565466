package models

import (
	"time"

	"github.com/google/uuid"
)

// LocationType represents the type of inventory location
type LocationType string

const (
	LocationFulfillmentCenter  LocationType = "FULFILLMENT_CENTER"
	LocationExternalWarehouse  LocationType = "EXTERNAL_WAREHOUSE"
	LocationMarketplaceManaged LocationType = "MARKETPLACE_MANAGED"
)

// InventorySyncStatus represents the sync state of an inventory row
type InventorySyncStatus string

const (
	InventorySynced InventorySyncStatus = "SYNCED"
	InventoryStale  InventorySyncStatus = "STALE"
	InventoryError  InventorySyncStatus = "ERROR"
)

// InventoryRecord represents stock for one master SKU at one location.
// (SKU, Location) is the natural key. SKU is always the master SKU after
// resolution; the pre-resolution channel SKU and pre-expansion quantity are
// retained in OriginalSKU/OriginalQuantity for auditability.
type InventoryRecord struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	// Natural key
	SKU      string `gorm:"type:varchar(255);not null;uniqueIndex:idx_inventory_natural_key" json:"sku"`
	Location string `gorm:"type:varchar(255);not null;uniqueIndex:idx_inventory_natural_key" json:"location"`

	LocationType LocationType `gorm:"type:varchar(50);not null;default:'EXTERNAL_WAREHOUSE'" json:"locationType"`
	Channel      ChannelType  `gorm:"type:varchar(50);not null;index:idx_inventory_channel" json:"channel"`

	// Quantities (unit inventory, after case expansion)
	AvailableQuantity int `gorm:"default:0" json:"availableQuantity"`
	ReservedQuantity  int `gorm:"default:0" json:"reservedQuantity"`
	InboundQuantity   int `gorm:"default:0" json:"inboundQuantity"`
	TotalQuantity     int `gorm:"default:0" json:"totalQuantity"`

	// Pre-conversion audit values
	OriginalSKU      string `gorm:"type:varchar(255)" json:"originalSku,omitempty"`
	OriginalQuantity int    `gorm:"default:0" json:"originalQuantity"`
	UnitsPerCase     int    `gorm:"default:1" json:"unitsPerCase"`

	SyncStatus    InventorySyncStatus `gorm:"type:varchar(50);default:'SYNCED'" json:"syncStatus"`
	LastUpdatedAt time.Time           `gorm:"not null" json:"lastUpdatedAt"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for InventoryRecord
func (InventoryRecord) TableName() string {
	return "inventory_records"
}
