package repository

import (
	"context"
	"fmt"
	"regexp"

	"gorm.io/gorm"

	"channel-sync-service/internal/models"
	"channel-sync-service/internal/staging"
)

// Staging tokens are generated internally but still validated before being
// interpolated into table names.
var stagingTokenPattern = regexp.MustCompile(`^[0-9]{14}_[0-9a-f]{8}$`)

// StagingRepository implements the staging store interfaces on PostgreSQL.
// Staging tables are created per run with LIKE so their layout always tracks
// the canonical tables; the merge statements collapse duplicate natural keys
// with GROUP BY and upsert with ON CONFLICT on the natural key index.
type StagingRepository struct {
	db *gorm.DB
}

// NewStagingRepository creates a new staging repository
func NewStagingRepository(db *gorm.DB) *StagingRepository {
	return &StagingRepository{db: db}
}

// CreateOrderStaging creates the run-scoped staging tables for orders and
// line items
func (r *StagingRepository) CreateOrderStaging(ctx context.Context, token string) error {
	if err := validateToken(token); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Exec(fmt.Sprintf(
		`CREATE TABLE %s (LIKE orders INCLUDING DEFAULTS)`, orderStagingTable(token),
	)).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(fmt.Sprintf(
		`CREATE TABLE %s (LIKE order_line_items INCLUDING DEFAULTS)`, lineItemStagingTable(token),
	)).Error
}

// InsertOrderBatch bulk-inserts one batch of orders into the staging table
func (r *StagingRepository) InsertOrderBatch(ctx context.Context, token string, orders []models.Order) error {
	if err := validateToken(token); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Table(orderStagingTable(token)).Create(&orders).Error
}

// InsertLineItemBatch bulk-inserts one batch of line items into the staging
// table
func (r *StagingRepository) InsertLineItemBatch(ctx context.Context, token string, items []models.OrderLineItem) error {
	if err := validateToken(token); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Table(lineItemStagingTable(token)).Create(&items).Error
}

// MergeOrders merges staged orders into the canonical table. Duplicate
// (order_id, channel) rows collapse into one: amounts sum, descriptive
// fields take any value.
func (r *StagingRepository) MergeOrders(ctx context.Context, token string) (*staging.MergeCounts, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO orders (
			order_id, channel, account_name, order_number, ordered_at, fulfilled_at,
			customer_name, shipping_region, shipping_city, shipping_postal_code,
			subtotal_amount, tax_amount, shipping_amount, total_amount, currency,
			payment_status, fulfillment_status
		)
		SELECT
			s.order_id, s.channel, min(s.account_name), min(s.order_number),
			min(s.ordered_at), min(s.fulfilled_at),
			min(s.customer_name), min(s.shipping_region), min(s.shipping_city), min(s.shipping_postal_code),
			sum(s.subtotal_amount), sum(s.tax_amount), sum(s.shipping_amount), sum(s.total_amount),
			min(s.currency), min(s.payment_status), min(s.fulfillment_status)
		FROM %s s
		GROUP BY s.order_id, s.channel
		ON CONFLICT (order_id, channel) DO UPDATE SET
			account_name = EXCLUDED.account_name,
			order_number = EXCLUDED.order_number,
			ordered_at = EXCLUDED.ordered_at,
			fulfilled_at = EXCLUDED.fulfilled_at,
			customer_name = EXCLUDED.customer_name,
			shipping_region = EXCLUDED.shipping_region,
			shipping_city = EXCLUDED.shipping_city,
			shipping_postal_code = EXCLUDED.shipping_postal_code,
			subtotal_amount = EXCLUDED.subtotal_amount,
			tax_amount = EXCLUDED.tax_amount,
			shipping_amount = EXCLUDED.shipping_amount,
			total_amount = EXCLUDED.total_amount,
			currency = EXCLUDED.currency,
			payment_status = EXCLUDED.payment_status,
			fulfillment_status = EXCLUDED.fulfillment_status,
			updated_at = now()
		RETURNING (xmax = 0) AS inserted`, orderStagingTable(token))

	return r.runMerge(ctx, query)
}

// MergeLineItems merges staged line items into the canonical table.
// Duplicate (order_id, channel, line_item_id) rows collapse: quantities and
// line totals sum.
func (r *StagingRepository) MergeLineItems(ctx context.Context, token string) (*staging.MergeCounts, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO order_line_items (
			order_id, channel, line_item_id, sku, product_name,
			quantity, quantity_fulfilled, quantity_unfulfilled,
			unit_price, line_total, currency
		)
		SELECT
			s.order_id, s.channel, s.line_item_id, min(s.sku), min(s.product_name),
			sum(s.quantity), sum(s.quantity_fulfilled), sum(s.quantity_unfulfilled),
			min(s.unit_price), sum(s.line_total), min(s.currency)
		FROM %s s
		GROUP BY s.order_id, s.channel, s.line_item_id
		ON CONFLICT (order_id, channel, line_item_id) DO UPDATE SET
			sku = EXCLUDED.sku,
			product_name = EXCLUDED.product_name,
			quantity = EXCLUDED.quantity,
			quantity_fulfilled = EXCLUDED.quantity_fulfilled,
			quantity_unfulfilled = EXCLUDED.quantity_unfulfilled,
			unit_price = EXCLUDED.unit_price,
			line_total = EXCLUDED.line_total,
			currency = EXCLUDED.currency,
			updated_at = now()
		RETURNING (xmax = 0) AS inserted`, lineItemStagingTable(token))

	return r.runMerge(ctx, query)
}

// DropOrderStaging drops the run-scoped order staging tables
func (r *StagingRepository) DropOrderStaging(ctx context.Context, token string) error {
	if err := validateToken(token); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Exec(fmt.Sprintf(
		`DROP TABLE IF EXISTS %s`, lineItemStagingTable(token),
	)).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(fmt.Sprintf(
		`DROP TABLE IF EXISTS %s`, orderStagingTable(token),
	)).Error
}

// CreateInventoryStaging creates the run-scoped staging table for inventory
func (r *StagingRepository) CreateInventoryStaging(ctx context.Context, token string) error {
	if err := validateToken(token); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(fmt.Sprintf(
		`CREATE TABLE %s (LIKE inventory_records INCLUDING DEFAULTS)`, inventoryStagingTable(token),
	)).Error
}

// InsertInventoryBatch bulk-inserts one batch of inventory records into the
// staging table
func (r *StagingRepository) InsertInventoryBatch(ctx context.Context, token string, records []models.InventoryRecord) error {
	if err := validateToken(token); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Table(inventoryStagingTable(token)).Create(&records).Error
}

// MergeInventory merges staged inventory into the canonical table. Duplicate
// (sku, location) rows collapse: quantities sum, the freshest channel
// timestamp wins.
func (r *StagingRepository) MergeInventory(ctx context.Context, token string) (*staging.MergeCounts, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO inventory_records (
			sku, location, location_type, channel,
			available_quantity, reserved_quantity, inbound_quantity, total_quantity,
			original_sku, original_quantity, units_per_case,
			sync_status, last_updated_at
		)
		SELECT
			s.sku, s.location, min(s.location_type), min(s.channel),
			sum(s.available_quantity), sum(s.reserved_quantity), sum(s.inbound_quantity), sum(s.total_quantity),
			min(s.original_sku), sum(s.original_quantity), min(s.units_per_case),
			min(s.sync_status), max(s.last_updated_at)
		FROM %s s
		GROUP BY s.sku, s.location
		ON CONFLICT (sku, location) DO UPDATE SET
			location_type = EXCLUDED.location_type,
			channel = EXCLUDED.channel,
			available_quantity = EXCLUDED.available_quantity,
			reserved_quantity = EXCLUDED.reserved_quantity,
			inbound_quantity = EXCLUDED.inbound_quantity,
			total_quantity = EXCLUDED.total_quantity,
			original_sku = EXCLUDED.original_sku,
			original_quantity = EXCLUDED.original_quantity,
			units_per_case = EXCLUDED.units_per_case,
			sync_status = EXCLUDED.sync_status,
			last_updated_at = EXCLUDED.last_updated_at,
			updated_at = now()
		RETURNING (xmax = 0) AS inserted`, inventoryStagingTable(token))

	return r.runMerge(ctx, query)
}

// DropInventoryStaging drops the run-scoped inventory staging table
func (r *StagingRepository) DropInventoryStaging(ctx context.Context, token string) error {
	if err := validateToken(token); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(fmt.Sprintf(
		`DROP TABLE IF EXISTS %s`, inventoryStagingTable(token),
	)).Error
}

// runMerge executes a merge statement and splits the affected rows into
// inserts and updates. Postgres reports xmax = 0 for freshly inserted rows.
func (r *StagingRepository) runMerge(ctx context.Context, query string) (*staging.MergeCounts, error) {
	rows, err := r.db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := &staging.MergeCounts{}
	for rows.Next() {
		var inserted bool
		if err := rows.Scan(&inserted); err != nil {
			return nil, err
		}
		if inserted {
			counts.Inserted++
		} else {
			counts.Updated++
		}
	}
	return counts, rows.Err()
}

func validateToken(token string) error {
	if !stagingTokenPattern.MatchString(token) {
		return fmt.Errorf("invalid staging token %q", token)
	}
	return nil
}

func orderStagingTable(token string) string {
	return "staging_orders_" + token
}

func lineItemStagingTable(token string) string {
	return "staging_order_line_items_" + token
}

func inventoryStagingTable(token string) string {
	return "staging_inventory_" + token
}
