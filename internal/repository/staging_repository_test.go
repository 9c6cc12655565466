package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"channel-sync-service/internal/staging"
)

func TestValidateToken(t *testing.T) {
	assert.NoError(t, validateToken("20250501120000_1a2b3c4d"))
	assert.NoError(t, validateToken(staging.NewToken()))

	assert.Error(t, validateToken(""))
	assert.Error(t, validateToken("20250501120000"))
	assert.Error(t, validateToken("20250501120000_XYZ12345"))
	assert.Error(t, validateToken("orders; DROP TABLE orders--"))
	assert.Error(t, validateToken("20250501120000_1a2b3c4d_extra"))
}

func TestStagingTableNames(t *testing.T) {
	token := "20250501120000_1a2b3c4d"

	assert.Equal(t, "staging_orders_"+token, orderStagingTable(token))
	assert.Equal(t, "staging_order_line_items_"+token, lineItemStagingTable(token))
	assert.Equal(t, "staging_inventory_"+token, inventoryStagingTable(token))
}

func TestStagingMethodsRejectBadToken(t *testing.T) {
	repo := NewStagingRepository(nil)
	ctx := context.Background()

	assert.Error(t, repo.CreateOrderStaging(ctx, "bad token"))
	assert.Error(t, repo.CreateInventoryStaging(ctx, "bad token"))
	assert.Error(t, repo.DropOrderStaging(ctx, "bad token"))
	assert.Error(t, repo.DropInventoryStaging(ctx, "bad token"))

	_, err := repo.MergeOrders(ctx, "bad token")
	assert.Error(t, err)
	_, err = repo.MergeInventory(ctx, "bad token")
	assert.Error(t, err)
}
