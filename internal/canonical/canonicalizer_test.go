package canonical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-sync-service/internal/channels"
	"channel-sync-service/internal/models"
)

func newTestCanonicalizer(channel models.ChannelType) *Canonicalizer {
	resolver := NewSKUResolver([]models.SKUMapping{
		{Channel: channel, ChannelSKU: "CH-WIDGET", MasterSKU: "WIDGET", UnitsPerCase: 1},
		{Channel: channel, ChannelSKU: "CH-WIDGET-CASE", MasterSKU: "WIDGET", IsCaseProduct: true, UnitsPerCase: 12},
	})
	return NewCanonicalizer(channel, "test-account", "USD", resolver)
}

func TestCanonicalizeOrderBasic(t *testing.T) {
	c := newTestCanonicalizer(models.ChannelStorefront)
	orderedAt := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	order, items, err := c.CanonicalizeOrder(channels.RawOrder{
		OrderID:           "1001",
		OrderNumber:       "#1001",
		OrderedAt:         orderedAt,
		CustomerName:      "Ada Lovelace",
		SubtotalAmount:    "20.00",
		TaxAmount:         "1.60",
		ShippingAmount:    "4.99",
		TotalAmount:       "26.59",
		Currency:          "usd",
		PaymentStatus:     "paid",
		FulfillmentStatus: "fulfilled",
		LineItems: []channels.RawLineItem{
			{LineItemID: "li-1", SKU: "CH-WIDGET", Quantity: 2, UnitPrice: "10.00", LineTotal: "20.00"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "1001", order.OrderID)
	assert.Equal(t, models.ChannelStorefront, order.Channel)
	assert.Equal(t, "test-account", order.AccountName)
	assert.Equal(t, "26.59", order.TotalAmount.StringFixed(2))
	assert.Equal(t, "USD", order.Currency)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
	assert.Equal(t, models.FulfillmentFulfilled, order.FulfillmentStatus)

	require.Len(t, items, 1)
	assert.Equal(t, "WIDGET", items[0].SKU)
	assert.Equal(t, "1001", items[0].OrderID)
	assert.Equal(t, "20.00", items[0].LineTotal.StringFixed(2))
}

func TestCanonicalizeOrderReconstructsTotal(t *testing.T) {
	c := newTestCanonicalizer(models.ChannelMarketplace)

	order, _, err := c.CanonicalizeOrder(channels.RawOrder{
		OrderID:        "111-222",
		OrderedAt:      time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		SubtotalAmount: "19.98",
		TaxAmount:      "1.50",
		ShippingAmount: "4.99",
	})

	require.NoError(t, err)
	assert.Equal(t, "26.47", order.TotalAmount.StringFixed(2))
}

func TestCanonicalizeOrderDefaults(t *testing.T) {
	c := newTestCanonicalizer(models.ChannelPOS)

	order, _, err := c.CanonicalizeOrder(channels.RawOrder{
		OrderID:   "S-1",
		OrderedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.Equal(t, "Guest", order.CustomerName)
	assert.Equal(t, "USD", order.Currency)
	assert.True(t, order.TotalAmount.IsZero())
	assert.Equal(t, models.PaymentUnknownStatus, order.PaymentStatus)
	assert.Equal(t, models.FulfillmentUnfulfilled, order.FulfillmentStatus)
}

func TestCanonicalizeOrderLineTotalFromUnitPrice(t *testing.T) {
	c := newTestCanonicalizer(models.ChannelStorefront)

	_, items, err := c.CanonicalizeOrder(channels.RawOrder{
		OrderID:   "1002",
		OrderedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		LineItems: []channels.RawLineItem{
			{LineItemID: "li-1", SKU: "CH-WIDGET", Quantity: 3, UnitPrice: "9.99"},
		},
	})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "29.97", items[0].LineTotal.StringFixed(2))
}

func TestCanonicalizeOrderThousandsSeparator(t *testing.T) {
	c := newTestCanonicalizer(models.ChannelStorefront)

	order, _, err := c.CanonicalizeOrder(channels.RawOrder{
		OrderID:     "1003",
		OrderedAt:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		TotalAmount: "1,249.50",
	})

	require.NoError(t, err)
	assert.Equal(t, "1249.50", order.TotalAmount.StringFixed(2))
}

func TestCanonicalizeOrderRejectsMalformed(t *testing.T) {
	c := newTestCanonicalizer(models.ChannelStorefront)
	orderedAt := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	_, _, err := c.CanonicalizeOrder(channels.RawOrder{OrderedAt: orderedAt})
	assert.ErrorContains(t, err, "order id")

	_, _, err = c.CanonicalizeOrder(channels.RawOrder{OrderID: "1004"})
	assert.ErrorContains(t, err, "timestamp")

	_, _, err = c.CanonicalizeOrder(channels.RawOrder{
		OrderID:     "1005",
		OrderedAt:   orderedAt,
		TotalAmount: "twelve dollars",
	})
	assert.ErrorContains(t, err, "bad total")

	_, _, err = c.CanonicalizeOrder(channels.RawOrder{
		OrderID:   "1006",
		OrderedAt: orderedAt,
		LineItems: []channels.RawLineItem{{SKU: "CH-WIDGET", Quantity: 1}},
	})
	assert.ErrorContains(t, err, "line item without an id")
}

func TestCanonicalizeInventoryCaseExpansion(t *testing.T) {
	c := newTestCanonicalizer(models.ChannelWarehouse)
	updatedAt := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	record, err := c.CanonicalizeInventory(channels.RawInventory{
		ChannelSKU:        "CH-WIDGET-CASE",
		Location:          "3PL East",
		LocationType:      models.LocationExternalWarehouse,
		AvailableQuantity: 5,
		ReservedQuantity:  1,
		InboundQuantity:   2,
		UpdatedAt:         updatedAt,
	})

	require.NoError(t, err)
	assert.Equal(t, "WIDGET", record.SKU)
	assert.Equal(t, 60, record.AvailableQuantity)
	assert.Equal(t, 12, record.ReservedQuantity)
	assert.Equal(t, 24, record.InboundQuantity)
	assert.Equal(t, 72, record.TotalQuantity)

	// Pre-conversion values are kept for auditing
	assert.Equal(t, "CH-WIDGET-CASE", record.OriginalSKU)
	assert.Equal(t, 5, record.OriginalQuantity)
	assert.Equal(t, 12, record.UnitsPerCase)
	assert.Equal(t, updatedAt, record.LastUpdatedAt)
}

func TestCanonicalizeInventoryUnmappedSKU(t *testing.T) {
	c := newTestCanonicalizer(models.ChannelWarehouse)

	record, err := c.CanonicalizeInventory(channels.RawInventory{
		ChannelSKU:        "UNKNOWN-SKU",
		Location:          "3PL West",
		AvailableQuantity: 7,
	})

	require.NoError(t, err)
	assert.Equal(t, "UNKNOWN-SKU", record.SKU)
	assert.Equal(t, 7, record.AvailableQuantity)
	assert.Equal(t, 1, record.UnitsPerCase)
	assert.False(t, record.LastUpdatedAt.IsZero())
}

func TestCanonicalizeInventoryRejectsMalformed(t *testing.T) {
	c := newTestCanonicalizer(models.ChannelWarehouse)

	_, err := c.CanonicalizeInventory(channels.RawInventory{Location: "3PL East"})
	assert.ErrorContains(t, err, "sku")

	_, err = c.CanonicalizeInventory(channels.RawInventory{ChannelSKU: "CH-WIDGET"})
	assert.ErrorContains(t, err, "location")
}

func TestNormalizeStatuses(t *testing.T) {
	assert.Equal(t, models.PaymentPaid, normalizePaymentStatus("Shipped"))
	assert.Equal(t, models.PaymentPending, normalizePaymentStatus("payment_pending"))
	assert.Equal(t, models.PaymentRefunded, normalizePaymentStatus("partially_refunded"))
	assert.Equal(t, models.PaymentUnknownStatus, normalizePaymentStatus("something new"))

	assert.Equal(t, models.FulfillmentFulfilled, normalizeFulfillmentStatus("DELIVERED"))
	assert.Equal(t, models.FulfillmentPartial, normalizeFulfillmentStatus("partially_shipped"))
	assert.Equal(t, models.FulfillmentCancelled, normalizeFulfillmentStatus("canceled"))
	assert.Equal(t, models.FulfillmentUnfulfilled, normalizeFulfillmentStatus(""))
}
