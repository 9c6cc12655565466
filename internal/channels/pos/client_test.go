package pos

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-sync-service/internal/channels"
)

func testClient(t *testing.T, handler http.Handler) *POSClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewPOSClient(&channels.ThrottleConfig{
		PageDelay:  0,
		Cooldown:   time.Millisecond,
		MaxRetries: 1,
	})
	err := client.Initialize(context.Background(), map[string]interface{}{
		"api_key":  "test-key",
		"base_url": server.URL,
	})
	require.NoError(t, err)
	return client
}

func TestFetchOrdersWalksSubWindows(t *testing.T) {
	windowStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.Add(45 * 24 * time.Hour)

	var requestedFrom []string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Api-Key test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/sales", r.URL.Path)
		requestedFrom = append(requestedFrom, r.URL.Query().Get("from"))
		w.Write([]byte(`{"sales":[{"sale_id":"S-1","receipt_no":"R-1","sold_at":"2025-03-02T09:00:00Z","total":"12.50","lines":[{"line_no":1,"sku":"COLA","quantity":3,"unit_price":"2.50","line_total":"7.50"}]}]}`))
	}))

	opts := &channels.OrderListOptions{WindowStart: windowStart, WindowEnd: windowEnd}

	// 45 days slice into a full 30-day sub-window plus a truncated one
	page1, err := client.FetchOrders(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, page1.SubWindow)
	assert.True(t, page1.HasMore)
	assert.Equal(t, "1", page1.NextCursor)

	opts.Cursor = page1.NextCursor
	page2, err := client.FetchOrders(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, page2.SubWindow)
	assert.False(t, page2.HasMore)
	assert.Empty(t, page2.NextCursor)

	require.Len(t, requestedFrom, 2)
	assert.Equal(t, windowStart.Format(time.RFC3339), requestedFrom[0])
	assert.Equal(t, windowStart.Add(30*24*time.Hour).Format(time.RFC3339), requestedFrom[1])
}

func TestFetchOrdersRejectsInvalidCursor(t *testing.T) {
	client := &POSClient{}
	opts := &channels.OrderListOptions{
		ListOptions: channels.ListOptions{Cursor: "99"},
		WindowStart: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	}

	_, err := client.FetchOrders(context.Background(), opts)
	assert.ErrorContains(t, err, "invalid sub-window cursor")
}

func TestFetchOrdersDecodesLegacyPayload(t *testing.T) {
	// Older terminal firmware exports Windows-1252; 0xE9 is é
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{\"sales\":[{\"sale_id\":\"S-2\",\"sold_at\":\"2025-03-02T09:00:00Z\",\"store_city\":\"Montr\xe9al\",\"total\":\"5.00\"}]}"))
	}))

	page, err := client.FetchOrders(context.Background(), &channels.OrderListOptions{
		WindowStart: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, "Montréal", page.Orders[0].ShippingCity)
}

func TestFetchInventoryMapsStock(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/stock", r.URL.Path)
		w.Write([]byte(`{"stock":[{"sku":"COLA","store_name":"Downtown","on_hand":24,"updated_at":"2025-03-01T08:00:00Z"}],"next_page":"2"}`))
	}))

	page, err := client.FetchInventory(context.Background(), &channels.ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "COLA", page.Records[0].ChannelSKU)
	assert.Equal(t, "Downtown", page.Records[0].Location)
	assert.Equal(t, 24, page.Records[0].AvailableQuantity)
	assert.True(t, page.HasMore)
	assert.Equal(t, "2", page.NextCursor)
}

func TestConvertSale(t *testing.T) {
	soldAt := time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC)
	raw := convertSale(posSale{
		SaleID:    "S-9",
		ReceiptNo: "R-9",
		SoldAt:    soldAt,
		Subtotal:  "10.00",
		Tax:       "0.80",
		Total:     "10.80",
		Currency:  "usd",
		Lines: []posSaleLine{
			{LineNo: 1, SKU: "COLA", Name: "Cola 12oz", Quantity: 2, UnitPrice: "2.00", LineTotal: "4.00"},
			{LineNo: 2, SKU: "CHIPS", Name: "Chips", Quantity: 1, UnitPrice: "6.00", LineTotal: "6.00"},
		},
	})

	// Register sales are settled at the counter
	assert.Equal(t, "paid", raw.PaymentStatus)
	assert.Equal(t, "fulfilled", raw.FulfillmentStatus)
	require.NotNil(t, raw.FulfilledAt)
	assert.Equal(t, soldAt, *raw.FulfilledAt)

	require.Len(t, raw.LineItems, 2)
	assert.Equal(t, "1", raw.LineItems[0].LineItemID)
	assert.Equal(t, 2, raw.LineItems[0].QuantityFulfilled)
}
