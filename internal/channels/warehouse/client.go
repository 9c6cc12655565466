package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"channel-sync-service/internal/channels"
	"channel-sync-service/internal/models"
)

// WarehouseClient implements ChannelClient for external warehouse inventory
// APIs. Warehouses expose stock only; order extraction is not supported.
// Stock may be tracked in case packs; the SKU resolver owns the expansion.
type WarehouseClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	throttler  *channels.Throttler
}

// NewWarehouseClient creates a new warehouse inventory API client
func NewWarehouseClient(throttle *channels.ThrottleConfig) *WarehouseClient {
	return &WarehouseClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		throttler:  channels.NewThrottler(throttle),
	}
}

// GetType returns the channel type
func (c *WarehouseClient) GetType() models.ChannelType {
	return models.ChannelWarehouse
}

// Initialize sets up the client with credentials
func (c *WarehouseClient) Initialize(ctx context.Context, credentials map[string]interface{}) error {
	apiKey, ok := credentials["api_key"].(string)
	if !ok || apiKey == "" {
		return fmt.Errorf("missing api_key")
	}
	c.apiKey = apiKey

	baseURL, ok := credentials["base_url"].(string)
	if !ok || baseURL == "" {
		return fmt.Errorf("missing base_url")
	}
	c.baseURL = baseURL

	return nil
}

// TestConnection verifies the connection is working
func (c *WarehouseClient) TestConnection(ctx context.Context) error {
	_, err := c.doRequest(ctx, "/api/ping", nil)
	return err
}

// FetchOrders is not supported for warehouse channels
func (c *WarehouseClient) FetchOrders(ctx context.Context, opts *channels.OrderListOptions) (*channels.OrdersPage, error) {
	return nil, &channels.UnsupportedChannelError{ChannelType: "WAREHOUSE orders"}
}

// FetchInventory fetches one page of warehouse stock
func (c *WarehouseClient) FetchInventory(ctx context.Context, opts *channels.ListOptions) (*channels.InventoryPage, error) {
	params := url.Values{}
	if opts.Limit > 0 {
		params.Set("per_page", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		params.Set("cursor", opts.Cursor)
	}

	body, err := c.doRequest(ctx, "/api/inventory", params)
	if err != nil {
		return nil, err
	}

	var response struct {
		Items []struct {
			SKU       string    `json:"sku"`
			Warehouse string    `json:"warehouse"`
			Available int       `json:"available"`
			Reserved  int       `json:"reserved"`
			Inbound   int       `json:"inbound"`
			UpdatedAt time.Time `json:"updated_at"`
		} `json:"items"`
		NextCursor string `json:"next_cursor"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse inventory response: %w", err)
	}

	records := make([]channels.RawInventory, 0, len(response.Items))
	for _, item := range response.Items {
		records = append(records, channels.RawInventory{
			ChannelSKU:        item.SKU,
			Location:          item.Warehouse,
			LocationType:      models.LocationExternalWarehouse,
			AvailableQuantity: item.Available,
			ReservedQuantity:  item.Reserved,
			InboundQuantity:   item.Inbound,
			UpdatedAt:         item.UpdatedAt,
		})
	}

	return &channels.InventoryPage{
		Records:    records,
		NextCursor: response.NextCursor,
		HasMore:    response.NextCursor != "",
	}, nil
}

// doRequest executes a throttled request against the warehouse API
func (c *WarehouseClient) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	body, _, err := c.throttler.Do(ctx, "warehouse GET "+path, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Api-Key", c.apiKey)
		return c.httpClient.Do(req)
	})
	return body, err
}
