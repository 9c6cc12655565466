package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-sync-service/internal/models"
)

func TestNotifierDisabledWithoutURL(t *testing.T) {
	notifier := NewWebhookNotifier("")

	assert.False(t, notifier.Enabled())
	err := notifier.NotifyStockouts(context.Background(), []models.StockoutAlert{{MasterSKU: "A"}}, 1, 0)
	assert.NoError(t, err)
}

func TestNotifyStockoutsDeliversPayload(t *testing.T) {
	var received stockoutPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	criticals := []models.StockoutAlert{
		{MasterSKU: "WIDGET", DaysUntilStockout: 2, AvailableQuantity: 4, SuggestedReorder: 56, DailyAvgSales: 2.0},
		{MasterSKU: "GADGET", Depleted: true, SuggestedReorder: 30, DailyAvgSales: 1.0},
	}

	err := notifier.NotifyStockouts(context.Background(), criticals, 5, 3)

	require.NoError(t, err)
	assert.Equal(t, "Stockout forecast: 5 critical, 3 warning", received.Text)
	assert.Equal(t, 5, received.CriticalCount)
	assert.Equal(t, 3, received.WarningCount)
	require.Len(t, received.Criticals, 2)
	assert.Equal(t, "WIDGET", received.Criticals[0].SKU)
	assert.True(t, received.Criticals[1].Depleted)
	assert.False(t, received.GeneratedAt.IsZero())
}

func TestNotifyStockoutsSkipsEmptyForecast(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	err := notifier.NotifyStockouts(context.Background(), nil, 0, 0)

	require.NoError(t, err)
	assert.False(t, called)
}

func TestNotifyStockoutsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream offline"))
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	err := notifier.NotifyStockouts(context.Background(), nil, 2, 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream offline")
}
