package channels

import (
	"context"
	"fmt"
	"time"

	"channel-sync-service/internal/models"
)

// ChannelClient defines the interface that all channel connectors must
// implement. A connector authenticates against one upstream API, paginates
// over an extraction window and yields raw channel-native records. No
// channel-side duplicate suppression is assumed; downstream merge keys
// provide idempotence.
type ChannelClient interface {
	// GetType returns the channel type
	GetType() models.ChannelType

	// Initialize sets up the client with credentials
	Initialize(ctx context.Context, credentials map[string]interface{}) error

	// TestConnection verifies the connection is working
	TestConnection(ctx context.Context) error

	// FetchOrders returns one page of raw order records for the window.
	// An empty NextCursor with HasMore=false terminates the sequence.
	FetchOrders(ctx context.Context, opts *OrderListOptions) (*OrdersPage, error)

	// FetchInventory returns one page of raw inventory records
	FetchInventory(ctx context.Context, opts *ListOptions) (*InventoryPage, error)
}

// ListOptions contains common pagination options
type ListOptions struct {
	Limit  int
	Cursor string
}

// OrderListOptions extends ListOptions with the extraction window
type OrderListOptions struct {
	ListOptions
	WindowStart time.Time
	WindowEnd   time.Time
}

// OrdersPage contains one page of raw order records
type OrdersPage struct {
	Orders     []RawOrder
	NextCursor string
	HasMore    bool
	// SubWindow is set by time-windowed connectors: the 1-based index of the
	// sub-window this page came from, 0 for cursor-only connectors.
	SubWindow int
}

// InventoryPage contains one page of raw inventory records
type InventoryPage struct {
	Records    []RawInventory
	NextCursor string
	HasMore    bool
	SubWindow  int
}

// RawOrder is an order record as the channel delivered it. Amount fields are
// kept as the channel's strings; the canonicalizer owns decimal parsing and
// defaulting. Report-style channels may emit several RawOrders for one
// logical order (one per report row); the staging merge collapses them.
type RawOrder struct {
	OrderID     string
	OrderNumber string

	OrderedAt   time.Time
	FulfilledAt *time.Time

	CustomerName       string
	ShippingRegion     string
	ShippingCity       string
	ShippingPostalCode string

	SubtotalAmount string
	TaxAmount      string
	ShippingAmount string
	TotalAmount    string
	Currency       string

	PaymentStatus     string
	FulfillmentStatus string

	LineItems []RawLineItem
}

// RawLineItem is a line item record as the channel delivered it
type RawLineItem struct {
	LineItemID  string
	SKU         string
	ProductName string

	Quantity            int
	QuantityFulfilled   int
	QuantityUnfulfilled int

	UnitPrice string
	LineTotal string
}

// RawInventory is an inventory record as the channel delivered it. SKU is
// the channel-local SKU; quantities are in the channel's packaging unit.
type RawInventory struct {
	ChannelSKU   string
	Location     string
	LocationType models.LocationType

	AvailableQuantity int
	ReservedQuantity  int
	InboundQuantity   int

	UpdatedAt time.Time
}

// APIError is a channel error carrying the upstream status code and body so
// callers can surface it verbatim.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: upstream returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsRateLimited reports whether the upstream signalled too many requests
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// UnsupportedChannelError is returned when a channel type is not supported
type UnsupportedChannelError struct {
	ChannelType string
}

func (e *UnsupportedChannelError) Error() string {
	return "unsupported channel: " + e.ChannelType
}
