package staging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"channel-sync-service/internal/models"
)

// MergeCounts reports the outcome of one set-based merge statement
type MergeCounts struct {
	Inserted int64
	Updated  int64
}

// OrderStore is the staging surface for order data. Implementations create a
// run-scoped pair of staging tables, bulk-insert into them and merge them
// into the canonical tables with one set-based statement each.
type OrderStore interface {
	CreateOrderStaging(ctx context.Context, token string) error
	InsertOrderBatch(ctx context.Context, token string, orders []models.Order) error
	InsertLineItemBatch(ctx context.Context, token string, items []models.OrderLineItem) error
	MergeOrders(ctx context.Context, token string) (*MergeCounts, error)
	MergeLineItems(ctx context.Context, token string) (*MergeCounts, error)
	DropOrderStaging(ctx context.Context, token string) error
}

// InventoryStore is the staging surface for inventory data
type InventoryStore interface {
	CreateInventoryStaging(ctx context.Context, token string) error
	InsertInventoryBatch(ctx context.Context, token string, records []models.InventoryRecord) error
	MergeInventory(ctx context.Context, token string) (*MergeCounts, error)
	DropInventoryStaging(ctx context.Context, token string) error
}

// Result summarizes one pipeline pass
type Result struct {
	RowsStaged int
	Inserted   int64
	Updated    int64
}

// Pipeline executes the staged-merge protocol: create run-scoped staging
// tables, bulk-write in fixed-size batches, hold for the write-visibility
// wait, merge set-based, then drop the staging tables no matter what. The
// wait is a correctness primitive for the merge reading its own staged
// writes, not a tunable performance knob.
type Pipeline struct {
	orderStore     OrderStore
	inventoryStore InventoryStore
	batchSize      int
	visibilityWait time.Duration
}

// NewPipeline creates a pipeline over the given staging stores
func NewPipeline(orderStore OrderStore, inventoryStore InventoryStore, batchSize int, visibilityWait time.Duration) *Pipeline {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Pipeline{
		orderStore:     orderStore,
		inventoryStore: inventoryStore,
		batchSize:      batchSize,
		visibilityWait: visibilityWait,
	}
}

// NewToken returns a run-scoped staging token. Timestamp plus random suffix
// keeps concurrent runs from ever sharing a staging table.
func NewToken() string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102150405"), suffix)
}

// RunOrders stages and merges one batch of canonical orders and line items.
// Staging tables are dropped unconditionally, including on merge failure.
func (p *Pipeline) RunOrders(ctx context.Context, token string, orders []models.Order, items []models.OrderLineItem) (*Result, error) {
	if len(orders) == 0 && len(items) == 0 {
		return &Result{}, nil
	}

	if err := p.orderStore.CreateOrderStaging(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to create order staging tables: %w", err)
	}
	defer p.cleanup(token, "orders", p.orderStore.DropOrderStaging)

	for start := 0; start < len(orders); start += p.batchSize {
		end := min(start+p.batchSize, len(orders))
		if err := p.orderStore.InsertOrderBatch(ctx, token, orders[start:end]); err != nil {
			return nil, fmt.Errorf("failed to stage orders: %w", err)
		}
	}
	for start := 0; start < len(items); start += p.batchSize {
		end := min(start+p.batchSize, len(items))
		if err := p.orderStore.InsertLineItemBatch(ctx, token, items[start:end]); err != nil {
			return nil, fmt.Errorf("failed to stage line items: %w", err)
		}
	}

	if err := p.waitForVisibility(ctx); err != nil {
		return nil, err
	}

	orderCounts, err := p.orderStore.MergeOrders(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to merge orders: %w", err)
	}
	itemCounts, err := p.orderStore.MergeLineItems(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to merge line items: %w", err)
	}

	return &Result{
		RowsStaged: len(orders) + len(items),
		Inserted:   orderCounts.Inserted + itemCounts.Inserted,
		Updated:    orderCounts.Updated + itemCounts.Updated,
	}, nil
}

// RunInventory stages and merges one batch of canonical inventory records
func (p *Pipeline) RunInventory(ctx context.Context, token string, records []models.InventoryRecord) (*Result, error) {
	if len(records) == 0 {
		return &Result{}, nil
	}

	if err := p.inventoryStore.CreateInventoryStaging(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to create inventory staging table: %w", err)
	}
	defer p.cleanup(token, "inventory", p.inventoryStore.DropInventoryStaging)

	for start := 0; start < len(records); start += p.batchSize {
		end := min(start+p.batchSize, len(records))
		if err := p.inventoryStore.InsertInventoryBatch(ctx, token, records[start:end]); err != nil {
			return nil, fmt.Errorf("failed to stage inventory: %w", err)
		}
	}

	if err := p.waitForVisibility(ctx); err != nil {
		return nil, err
	}

	counts, err := p.inventoryStore.MergeInventory(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to merge inventory: %w", err)
	}

	return &Result{
		RowsStaged: len(records),
		Inserted:   counts.Inserted,
		Updated:    counts.Updated,
	}, nil
}

// waitForVisibility holds the fixed interval between the last staged write
// and the merge read
func (p *Pipeline) waitForVisibility(ctx context.Context) error {
	if p.visibilityWait <= 0 {
		return nil
	}

	logrus.WithField("wait", p.visibilityWait.String()).Debug("Holding for staged write visibility")
	timer := time.NewTimer(p.visibilityWait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// cleanup drops staging tables on a background context so cancellation of
// the run never strands them. Drop failures are logged, not propagated.
func (p *Pipeline) cleanup(token, kind string, drop func(context.Context, string) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := drop(ctx, token); err != nil {
		logrus.WithFields(logrus.Fields{
			"staging_token": token,
			"kind":          kind,
		}).WithError(err).Error("Failed to drop staging tables")
	}
}
