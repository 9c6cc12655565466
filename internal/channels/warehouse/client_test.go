package warehouse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-sync-service/internal/channels"
	"channel-sync-service/internal/models"
)

func TestFetchOrdersUnsupported(t *testing.T) {
	client := &WarehouseClient{}

	_, err := client.FetchOrders(context.Background(), &channels.OrderListOptions{})

	var unsupported *channels.UnsupportedChannelError
	require.True(t, errors.As(err, &unsupported))
	assert.Contains(t, unsupported.ChannelType, "WAREHOUSE")
}

func TestFetchInventoryPaginates(t *testing.T) {
	var cursors []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "/api/inventory", r.URL.Path)

		cursor := r.URL.Query().Get("cursor")
		cursors = append(cursors, cursor)
		if cursor == "" {
			w.Write([]byte(`{"items":[{"sku":"PALLET-1","warehouse":"3PL East","available":12,"reserved":2,"inbound":6,"updated_at":"2025-05-01T00:00:00Z"}],"next_cursor":"c2"}`))
			return
		}
		w.Write([]byte(`{"items":[{"sku":"PALLET-2","warehouse":"3PL East","available":3}]}`))
	}))
	defer server.Close()

	client := NewWarehouseClient(&channels.ThrottleConfig{Cooldown: time.Millisecond, MaxRetries: 1})
	require.NoError(t, client.Initialize(context.Background(), map[string]interface{}{
		"api_key":  "secret",
		"base_url": server.URL,
	}))

	page1, err := client.FetchInventory(context.Background(), &channels.ListOptions{})
	require.NoError(t, err)
	require.Len(t, page1.Records, 1)
	assert.Equal(t, "PALLET-1", page1.Records[0].ChannelSKU)
	assert.Equal(t, models.LocationExternalWarehouse, page1.Records[0].LocationType)
	assert.Equal(t, 12, page1.Records[0].AvailableQuantity)
	assert.Equal(t, 2, page1.Records[0].ReservedQuantity)
	assert.Equal(t, 6, page1.Records[0].InboundQuantity)
	assert.True(t, page1.HasMore)

	page2, err := client.FetchInventory(context.Background(), &channels.ListOptions{Cursor: page1.NextCursor})
	require.NoError(t, err)
	assert.False(t, page2.HasMore)
	assert.Equal(t, []string{"", "c2"}, cursors)
}

func TestInitializeRequiresCredentials(t *testing.T) {
	client := NewWarehouseClient(nil)

	err := client.Initialize(context.Background(), map[string]interface{}{"api_key": "k"})
	assert.ErrorContains(t, err, "base_url")

	err = client.Initialize(context.Background(), map[string]interface{}{"base_url": "http://wh.local"})
	assert.ErrorContains(t, err, "api_key")
}
