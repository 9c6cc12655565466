package canonical

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"channel-sync-service/internal/channels"
	"channel-sync-service/internal/models"
)

// guestCustomerName is used when the channel omits the buyer's name
const guestCustomerName = "Guest"

// Canonicalizer converts raw channel records into canonical rows for one
// account. Conversion is per-record: a malformed record returns an error and
// is skipped by the caller without aborting the batch.
type Canonicalizer struct {
	channel         models.ChannelType
	accountName     string
	defaultCurrency string
	resolver        *SKUResolver
}

// NewCanonicalizer creates a canonicalizer for one channel account
func NewCanonicalizer(channel models.ChannelType, accountName, defaultCurrency string, resolver *SKUResolver) *Canonicalizer {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &Canonicalizer{
		channel:         channel,
		accountName:     accountName,
		defaultCurrency: defaultCurrency,
		resolver:        resolver,
	}
}

// CanonicalizeOrder converts one raw order and its line items. Line item SKUs
// are resolved to master SKUs; amounts are parsed into exact decimals. When
// the channel delivers no combined total it is reconstructed from the parts.
func (c *Canonicalizer) CanonicalizeOrder(raw channels.RawOrder) (*models.Order, []models.OrderLineItem, error) {
	if raw.OrderID == "" {
		return nil, nil, fmt.Errorf("order without an order id")
	}
	if raw.OrderedAt.IsZero() {
		return nil, nil, fmt.Errorf("order %s has no order timestamp", raw.OrderID)
	}

	subtotal, err := parseAmount(raw.SubtotalAmount)
	if err != nil {
		return nil, nil, fmt.Errorf("order %s: bad subtotal: %w", raw.OrderID, err)
	}
	tax, err := parseAmount(raw.TaxAmount)
	if err != nil {
		return nil, nil, fmt.Errorf("order %s: bad tax: %w", raw.OrderID, err)
	}
	shipping, err := parseAmount(raw.ShippingAmount)
	if err != nil {
		return nil, nil, fmt.Errorf("order %s: bad shipping: %w", raw.OrderID, err)
	}
	total, err := parseAmount(raw.TotalAmount)
	if err != nil {
		return nil, nil, fmt.Errorf("order %s: bad total: %w", raw.OrderID, err)
	}
	if raw.TotalAmount == "" {
		total = subtotal.Add(tax).Add(shipping)
	}

	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if currency == "" {
		currency = c.defaultCurrency
	}

	customerName := strings.TrimSpace(raw.CustomerName)
	if customerName == "" {
		customerName = guestCustomerName
	}

	order := &models.Order{
		OrderID:            raw.OrderID,
		Channel:            c.channel,
		AccountName:        c.accountName,
		OrderNumber:        raw.OrderNumber,
		OrderedAt:          raw.OrderedAt.UTC(),
		CustomerName:       customerName,
		ShippingRegion:     raw.ShippingRegion,
		ShippingCity:       raw.ShippingCity,
		ShippingPostalCode: raw.ShippingPostalCode,
		SubtotalAmount:     subtotal,
		TaxAmount:          tax,
		ShippingAmount:     shipping,
		TotalAmount:        total,
		Currency:           currency,
		PaymentStatus:      normalizePaymentStatus(raw.PaymentStatus),
		FulfillmentStatus:  normalizeFulfillmentStatus(raw.FulfillmentStatus),
	}
	if raw.FulfilledAt != nil {
		utc := raw.FulfilledAt.UTC()
		order.FulfilledAt = &utc
	}

	lineItems := make([]models.OrderLineItem, 0, len(raw.LineItems))
	for _, item := range raw.LineItems {
		if item.LineItemID == "" {
			return nil, nil, fmt.Errorf("order %s has a line item without an id", raw.OrderID)
		}

		unitPrice, err := parseAmount(item.UnitPrice)
		if err != nil {
			return nil, nil, fmt.Errorf("order %s line %s: bad unit price: %w", raw.OrderID, item.LineItemID, err)
		}
		lineTotal, err := parseAmount(item.LineTotal)
		if err != nil {
			return nil, nil, fmt.Errorf("order %s line %s: bad line total: %w", raw.OrderID, item.LineItemID, err)
		}
		if item.LineTotal == "" {
			lineTotal = unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		}

		resolution := c.resolver.Resolve(c.channel, item.SKU)

		lineItems = append(lineItems, models.OrderLineItem{
			OrderID:             raw.OrderID,
			Channel:             c.channel,
			LineItemID:          item.LineItemID,
			SKU:                 resolution.MasterSKU,
			ProductName:         item.ProductName,
			Quantity:            item.Quantity,
			QuantityFulfilled:   item.QuantityFulfilled,
			QuantityUnfulfilled: item.QuantityUnfulfilled,
			UnitPrice:           unitPrice,
			LineTotal:           lineTotal,
			Currency:            currency,
		})
	}

	return order, lineItems, nil
}

// CanonicalizeInventory converts one raw inventory record. Case-pack
// quantities are expanded to unit counts; the pre-conversion SKU and
// quantity are retained for auditing.
func (c *Canonicalizer) CanonicalizeInventory(raw channels.RawInventory) (*models.InventoryRecord, error) {
	if raw.ChannelSKU == "" {
		return nil, fmt.Errorf("inventory record without a sku")
	}
	if raw.Location == "" {
		return nil, fmt.Errorf("inventory record for %s without a location", raw.ChannelSKU)
	}

	resolution := c.resolver.Resolve(c.channel, raw.ChannelSKU)

	available := raw.AvailableQuantity * resolution.UnitsPerCase
	reserved := raw.ReservedQuantity * resolution.UnitsPerCase
	inbound := raw.InboundQuantity * resolution.UnitsPerCase

	lastUpdated := raw.UpdatedAt.UTC()
	if raw.UpdatedAt.IsZero() {
		lastUpdated = time.Now().UTC()
	}

	locationType := raw.LocationType
	if locationType == "" {
		locationType = models.LocationExternalWarehouse
	}

	return &models.InventoryRecord{
		SKU:               resolution.MasterSKU,
		Location:          raw.Location,
		LocationType:      locationType,
		Channel:           c.channel,
		AvailableQuantity: available,
		ReservedQuantity:  reserved,
		InboundQuantity:   inbound,
		TotalQuantity:     available + reserved,
		OriginalSKU:       raw.ChannelSKU,
		OriginalQuantity:  raw.AvailableQuantity,
		UnitsPerCase:      resolution.UnitsPerCase,
		SyncStatus:        models.InventorySynced,
		LastUpdatedAt:     lastUpdated,
	}, nil
}

// parseAmount parses a channel amount string into an exact decimal. Empty
// strings are treated as zero; thousands separators are stripped first.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// normalizePaymentStatus maps channel payment states onto the canonical set.
// Unrecognized states map to UNKNOWN rather than failing the record.
func normalizePaymentStatus(s string) models.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "payment_pending":
		return models.PaymentPending
	case "authorized":
		return models.PaymentAuthorized
	case "paid", "captured", "shipped", "completed":
		return models.PaymentPaid
	case "partially_paid":
		return models.PaymentPartiallyPaid
	case "refunded", "partially_refunded", "voided":
		return models.PaymentRefunded
	default:
		return models.PaymentUnknownStatus
	}
}

// normalizeFulfillmentStatus maps channel fulfillment states onto the
// canonical set. Channels report "no fulfillment yet" as an empty value.
func normalizeFulfillmentStatus(s string) models.FulfillmentStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fulfilled", "shipped", "delivered", "complete":
		return models.FulfillmentFulfilled
	case "partial", "partially_fulfilled", "partially_shipped":
		return models.FulfillmentPartial
	case "cancelled", "canceled":
		return models.FulfillmentCancelled
	default:
		return models.FulfillmentUnfulfilled
	}
}
