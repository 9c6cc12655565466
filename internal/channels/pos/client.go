package pos

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

// The point-of-sale API rejects unbounded date ranges, so the extraction
// window is split into fixed-size sub-windows requested independently.
const posWindowSize = 30 * 24 * time.Hour

// POSClient implements ChannelClient for point-of-sale deployments. The API
// is key-authenticated and returns one complete batch per bounded range.
// Exports from older terminal firmware arrive Windows-1252 encoded, so
// payloads go through the text decoding fallback before parsing.
type POSClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	registerID string
	throttler  *channels.Throttler
}

// NewPOSClient creates a new point-of-sale API client
func NewPOSClient(throttle *channels.ThrottleConfig) *POSClient {
	return &POSClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		throttler:  channels.NewThrottler(throttle),
	}
}

// GetType returns the channel type
func (c *POSClient) GetType() models.ChannelType {
	return models.ChannelPOS
}

// Initialize sets up the client with credentials
func (c *POSClient) Initialize(ctx context.Context, credentials map[string]interface{}) error {
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

	if registerID, ok := credentials["register_id"].(string); ok {
		c.registerID = registerID
	}

	return nil
}

// TestConnection verifies the connection is working
func (c *POSClient) TestConnection(ctx context.Context) error {
	_, err := c.doRequest(ctx, "/v1/status", nil)
	return err
}

// FetchOrders fetches one sub-window of sales per call; the cursor carries
// the index of the next sub-window.
func (c *POSClient) FetchOrders(ctx context.Context, opts *channels.OrderListOptions) (*channels.OrdersPage, error) {
	windows := channels.SliceWindow(opts.WindowStart, opts.WindowEnd, posWindowSize)
	if len(windows) == 0 {
		return &channels.OrdersPage{}, nil
	}

	idx := 0
	if opts.Cursor != "" {
		parsed, err := strconv.Atoi(opts.Cursor)
		if err != nil || parsed < 0 || parsed >= len(windows) {
			return nil, fmt.Errorf("invalid sub-window cursor %q", opts.Cursor)
		}
		idx = parsed
	}
	window := windows[idx]

	params := url.Values{}
	params.Set("from", window.Start.Format(time.RFC3339))
	params.Set("to", window.End.Format(time.RFC3339))
	if c.registerID != "" {
		params.Set("register_id", c.registerID)
	}

	document, err := c.doRequest(ctx, "/v1/sales", params)
	if err != nil {
		return nil, err
	}

	var response struct {
		Sales []posSale `json:"sales"`
	}
	if err := json.Unmarshal([]byte(document), &response); err != nil {
		return nil, fmt.Errorf("failed to parse sales response: %w", err)
	}

	orders := make([]channels.RawOrder, 0, len(response.Sales))
	for _, sale := range response.Sales {
		orders = append(orders, convertSale(sale))
	}

	page := &channels.OrdersPage{
		Orders:    orders,
		SubWindow: idx + 1,
	}
	if idx+1 < len(windows) {
		page.NextCursor = strconv.Itoa(idx + 1)
		page.HasMore = true
	}
	return page, nil
}

// FetchInventory fetches current stock counts from the register backend
func (c *POSClient) FetchInventory(ctx context.Context, opts *channels.ListOptions) (*channels.InventoryPage, error) {
	params := url.Values{}
	if c.registerID != "" {
		params.Set("register_id", c.registerID)
	}
	if opts.Cursor != "" {
		params.Set("page", opts.Cursor)
	}

	document, err := c.doRequest(ctx, "/v1/stock", params)
	if err != nil {
		return nil, err
	}

	var response struct {
		Stock []struct {
			SKU       string    `json:"sku"`
			StoreName string    `json:"store_name"`
			OnHand    int       `json:"on_hand"`
			UpdatedAt time.Time `json:"updated_at"`
		} `json:"stock"`
		NextPage string `json:"next_page"`
	}
	if err := json.Unmarshal([]byte(document), &response); err != nil {
		return nil, fmt.Errorf("failed to parse stock response: %w", err)
	}

	records := make([]channels.RawInventory, 0, len(response.Stock))
	for _, s := range response.Stock {
		records = append(records, channels.RawInventory{
			ChannelSKU:        s.SKU,
			Location:          s.StoreName,
			LocationType:      models.LocationFulfillmentCenter,
			AvailableQuantity: s.OnHand,
			UpdatedAt:         s.UpdatedAt,
		})
	}

	return &channels.InventoryPage{
		Records:    records,
		NextCursor: response.NextPage,
		HasMore:    response.NextPage != "",
	}, nil
}

// doRequest executes a throttled request and runs the payload through the
// encoding fallback
func (c *POSClient) doRequest(ctx context.Context, path string, params url.Values) (string, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	body, _, err := c.throttler.Do(ctx, "pos GET "+path, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Api-Key "+c.apiKey)
		return c.httpClient.Do(req)
	})
	if err != nil {
		return "", err
	}

	return channels.DecodeText(body, "pos "+path), nil
}

// POS data structures
type posSale struct {
	SaleID      string        `json:"sale_id"`
	ReceiptNo   string        `json:"receipt_no"`
	SoldAt      time.Time     `json:"sold_at"`
	CashierName string        `json:"cashier_name"`
	StoreRegion string        `json:"store_region"`
	StoreCity   string        `json:"store_city"`
	Subtotal    string        `json:"subtotal"`
	Tax         string        `json:"tax"`
	Total       string        `json:"total"`
	Currency    string        `json:"currency"`
	Tendered    string        `json:"tendered"`
	Lines       []posSaleLine `json:"lines"`
}

type posSaleLine struct {
	LineNo    int    `json:"line_no"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

// convertSale maps a register sale to the raw record shape. A POS sale is
// paid and fulfilled at the counter; the combined total comes directly from
// the receipt.
func convertSale(sale posSale) channels.RawOrder {
	soldAt := sale.SoldAt
	order := channels.RawOrder{
		OrderID:           sale.SaleID,
		OrderNumber:       sale.ReceiptNo,
		OrderedAt:         soldAt,
		FulfilledAt:       &soldAt,
		CustomerName:      sale.CashierName,
		ShippingRegion:    sale.StoreRegion,
		ShippingCity:      sale.StoreCity,
		SubtotalAmount:    sale.Subtotal,
		TaxAmount:         sale.Tax,
		TotalAmount:       sale.Total,
		Currency:          sale.Currency,
		PaymentStatus:     "paid",
		FulfillmentStatus: "fulfilled",
	}

	for _, line := range sale.Lines {
		order.LineItems = append(order.LineItems, channels.RawLineItem{
			LineItemID:        strconv.Itoa(line.LineNo),
			SKU:               line.SKU,
			ProductName:       line.Name,
			Quantity:          line.Quantity,
			QuantityFulfilled: line.Quantity,
			UnitPrice:         line.UnitPrice,
			LineTotal:         line.LineTotal,
		})
	}

	return order
}
