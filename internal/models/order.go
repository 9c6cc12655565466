package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentPending        PaymentStatus = "PENDING"
	PaymentAuthorized     PaymentStatus = "AUTHORIZED"
	PaymentPaid           PaymentStatus = "PAID"
	PaymentPartiallyPaid  PaymentStatus = "PARTIALLY_PAID"
	PaymentRefunded       PaymentStatus = "REFUNDED"
	PaymentUnknownStatus  PaymentStatus = "UNKNOWN"
)

// FulfillmentStatus represents the fulfillment state of an order
type FulfillmentStatus string

const (
	FulfillmentUnfulfilled FulfillmentStatus = "UNFULFILLED"
	FulfillmentPartial     FulfillmentStatus = "PARTIAL"
	FulfillmentFulfilled   FulfillmentStatus = "FULFILLED"
	FulfillmentCancelled   FulfillmentStatus = "CANCELLED"
)

// Order is a canonical order row. (OrderID, Channel) is the natural key:
// the merge phase updates mutable fields for matched keys and never inserts
// a second row for the same pair.
type Order struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	// Natural key
	OrderID string      `gorm:"type:varchar(255);not null;uniqueIndex:idx_orders_natural_key" json:"orderId"`
	Channel ChannelType `gorm:"type:varchar(50);not null;uniqueIndex:idx_orders_natural_key" json:"channel"`

	AccountName string `gorm:"type:varchar(255);not null;index:idx_orders_account" json:"accountName"`
	OrderNumber string `gorm:"type:varchar(100)" json:"orderNumber"`

	// Timestamps from the channel
	OrderedAt   time.Time  `gorm:"not null;index:idx_orders_ordered_at" json:"orderedAt"`
	FulfilledAt *time.Time `json:"fulfilledAt,omitempty"`

	// Customer and shipping (display fields only, "any value" on collapse)
	CustomerName       string `gorm:"type:varchar(255)" json:"customerName"`
	ShippingRegion     string `gorm:"type:varchar(100)" json:"shippingRegion,omitempty"`
	ShippingCity       string `gorm:"type:varchar(100)" json:"shippingCity,omitempty"`
	ShippingPostalCode string `gorm:"type:varchar(20)" json:"shippingPostalCode,omitempty"`

	// Amounts
	SubtotalAmount decimal.Decimal `gorm:"type:decimal(12,2)" json:"subtotalAmount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2)" json:"taxAmount"`
	ShippingAmount decimal.Decimal `gorm:"type:decimal(12,2)" json:"shippingAmount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2)" json:"totalAmount"`
	Currency       string          `gorm:"type:varchar(3);not null" json:"currency"`

	// Status
	PaymentStatus     PaymentStatus     `gorm:"type:varchar(50);default:'UNKNOWN'" json:"paymentStatus"`
	FulfillmentStatus FulfillmentStatus `gorm:"type:varchar(50);default:'UNFULFILLED'" json:"fulfillmentStatus"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "orders"
}

// OrderLineItem is a canonical order line row keyed by
// (OrderID, Channel, LineItemID).
type OrderLineItem struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	// Natural key
	OrderID    string      `gorm:"type:varchar(255);not null;uniqueIndex:idx_order_line_items_natural_key" json:"orderId"`
	Channel    ChannelType `gorm:"type:varchar(50);not null;uniqueIndex:idx_order_line_items_natural_key" json:"channel"`
	LineItemID string      `gorm:"type:varchar(255);not null;uniqueIndex:idx_order_line_items_natural_key" json:"lineItemId"`

	SKU         string `gorm:"type:varchar(255);index:idx_order_line_items_sku" json:"sku"`
	ProductName string `gorm:"type:varchar(500)" json:"productName"`

	Quantity            int `gorm:"not null" json:"quantity"`
	QuantityFulfilled   int `gorm:"default:0" json:"quantityFulfilled"`
	QuantityUnfulfilled int `gorm:"default:0" json:"quantityUnfulfilled"`

	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2)" json:"unitPrice"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2)" json:"lineTotal"`
	Currency  string          `gorm:"type:varchar(3);not null" json:"currency"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for OrderLineItem
func (OrderLineItem) TableName() string {
	return "order_line_items"
}
