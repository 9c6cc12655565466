package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"channel-sync-service/internal/channels"
	"channel-sync-service/internal/models"
)

const apiVersion = "2024-01"

// StorefrontClient implements ChannelClient for hosted storefront APIs. The
// upstream paginates with an opaque continuation token carried in the Link
// header; absence of a rel="next" relation terminates the sequence.
type StorefrontClient struct {
	httpClient  *http.Client
	storeURL    string
	accessToken string
	throttler   *channels.Throttler
}

// NewStorefrontClient creates a new storefront Admin API client
func NewStorefrontClient(throttle *channels.ThrottleConfig) *StorefrontClient {
	return &StorefrontClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		throttler:  channels.NewThrottler(throttle),
	}
}

// GetType returns the channel type
func (c *StorefrontClient) GetType() models.ChannelType {
	return models.ChannelStorefront
}

// Initialize sets up the client with credentials
func (c *StorefrontClient) Initialize(ctx context.Context, credentials map[string]interface{}) error {
	store, ok := credentials["store"].(string)
	if !ok || store == "" {
		return fmt.Errorf("missing store name")
	}
	if strings.HasPrefix(store, "http://") || strings.HasPrefix(store, "https://") {
		c.storeURL = strings.TrimSuffix(store, "/")
	} else {
		c.storeURL = fmt.Sprintf("https://%s", store)
	}

	accessToken, ok := credentials["access_token"].(string)
	if !ok || accessToken == "" {
		return fmt.Errorf("missing access_token")
	}
	c.accessToken = accessToken

	return nil
}

// TestConnection verifies the connection is working
func (c *StorefrontClient) TestConnection(ctx context.Context) error {
	_, _, err := c.doRequest(ctx, "GET", "/shop.json", nil)
	return err
}

// FetchOrders fetches one page of orders
func (c *StorefrontClient) FetchOrders(ctx context.Context, opts *channels.OrderListOptions) (*channels.OrdersPage, error) {
	params := url.Values{}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	} else {
		params.Set("limit", "250")
	}
	if opts.Cursor != "" {
		// The upstream rejects filter params alongside a continuation token
		params.Set("page_info", opts.Cursor)
	} else {
		if !opts.WindowStart.IsZero() {
			params.Set("created_at_min", opts.WindowStart.Format(time.RFC3339))
		}
		if !opts.WindowEnd.IsZero() {
			params.Set("created_at_max", opts.WindowEnd.Format(time.RFC3339))
		}
		params.Set("status", "any")
	}

	body, headers, err := c.doRequest(ctx, "GET", "/orders.json", params)
	if err != nil {
		return nil, err
	}

	var response struct {
		Orders []storefrontOrder `json:"orders"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse orders response: %w", err)
	}

	orders := make([]channels.RawOrder, 0, len(response.Orders))
	for _, o := range response.Orders {
		orders = append(orders, convertOrder(o))
	}

	nextCursor, hasMore := parseLinkPagination(headers.Get("Link"))

	return &channels.OrdersPage{
		Orders:     orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// FetchInventory fetches one page of inventory levels
func (c *StorefrontClient) FetchInventory(ctx context.Context, opts *channels.ListOptions) (*channels.InventoryPage, error) {
	params := url.Values{}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	} else {
		params.Set("limit", "250")
	}
	if opts.Cursor != "" {
		params.Set("page_info", opts.Cursor)
	}

	body, headers, err := c.doRequest(ctx, "GET", "/inventory_levels.json", params)
	if err != nil {
		return nil, err
	}

	var response struct {
		InventoryLevels []struct {
			SKU          string    `json:"sku"`
			LocationID   int64     `json:"location_id"`
			LocationName string    `json:"location_name"`
			Available    int       `json:"available"`
			Incoming     int       `json:"incoming"`
			UpdatedAt    time.Time `json:"updated_at"`
		} `json:"inventory_levels"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse inventory response: %w", err)
	}

	records := make([]channels.RawInventory, 0, len(response.InventoryLevels))
	for _, level := range response.InventoryLevels {
		location := level.LocationName
		if location == "" {
			location = strconv.FormatInt(level.LocationID, 10)
		}
		records = append(records, channels.RawInventory{
			ChannelSKU:        level.SKU,
			Location:          location,
			LocationType:      models.LocationFulfillmentCenter,
			AvailableQuantity: level.Available,
			InboundQuantity:   level.Incoming,
			UpdatedAt:         level.UpdatedAt,
		})
	}

	nextCursor, hasMore := parseLinkPagination(headers.Get("Link"))

	return &channels.InventoryPage{
		Records:    records,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// doRequest executes a throttled request against the storefront API
func (c *StorefrontClient) doRequest(ctx context.Context, method, path string, params url.Values) ([]byte, http.Header, error) {
	endpoint := fmt.Sprintf("%s/admin/api/%s%s", c.storeURL, apiVersion, path)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	return c.throttler.Do(ctx, "storefront "+method+" "+path, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Access-Token", c.accessToken)
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	})
}

// Storefront data structures
type storefrontOrder struct {
	ID                int64                `json:"id"`
	Name              string               `json:"name"`
	Currency          string               `json:"currency"`
	TotalPrice        string               `json:"total_price"`
	SubtotalPrice     string               `json:"subtotal_price"`
	TotalTax          string               `json:"total_tax"`
	TotalShipping     string               `json:"total_shipping"`
	FinancialStatus   string               `json:"financial_status"`
	FulfillmentStatus string               `json:"fulfillment_status"`
	LineItems         []storefrontLineItem `json:"line_items"`
	ShippingAddress   *storefrontAddress   `json:"shipping_address"`
	Customer          *storefrontCustomer  `json:"customer"`
	CreatedAt         time.Time            `json:"created_at"`
	ProcessedAt       *time.Time           `json:"processed_at"`
}

type storefrontLineItem struct {
	ID                  int64  `json:"id"`
	Title               string `json:"title"`
	SKU                 string `json:"sku"`
	Quantity            int    `json:"quantity"`
	FulfillableQuantity int    `json:"fulfillable_quantity"`
	Price               string `json:"price"`
}

type storefrontAddress struct {
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
}

type storefrontCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// convertOrder maps a storefront order to the raw record shape. The
// storefront provides a combined total directly; it is passed through
// untouched rather than reconstructed.
func convertOrder(o storefrontOrder) channels.RawOrder {
	order := channels.RawOrder{
		OrderID:           strconv.FormatInt(o.ID, 10),
		OrderNumber:       o.Name,
		OrderedAt:         o.CreatedAt,
		FulfilledAt:       o.ProcessedAt,
		SubtotalAmount:    o.SubtotalPrice,
		TaxAmount:         o.TotalTax,
		ShippingAmount:    o.TotalShipping,
		TotalAmount:       o.TotalPrice,
		Currency:          o.Currency,
		PaymentStatus:     o.FinancialStatus,
		FulfillmentStatus: o.FulfillmentStatus,
	}

	if o.Customer != nil {
		order.CustomerName = strings.TrimSpace(o.Customer.FirstName + " " + o.Customer.LastName)
	}
	if o.ShippingAddress != nil {
		order.ShippingRegion = o.ShippingAddress.Province
		order.ShippingCity = o.ShippingAddress.City
		order.ShippingPostalCode = o.ShippingAddress.Zip
	}

	for _, item := range o.LineItems {
		order.LineItems = append(order.LineItems, channels.RawLineItem{
			LineItemID:          strconv.FormatInt(item.ID, 10),
			SKU:                 item.SKU,
			ProductName:         item.Title,
			Quantity:            item.Quantity,
			QuantityFulfilled:   item.Quantity - item.FulfillableQuantity,
			QuantityUnfulfilled: item.FulfillableQuantity,
			UnitPrice:           item.Price,
		})
	}

	return order
}

// parseLinkPagination extracts the continuation token from a Link header.
// Format: <url>; rel="next", <url>; rel="previous"
func parseLinkPagination(linkHeader string) (string, bool) {
	if linkHeader == "" {
		return "", false
	}
	parts := strings.Split(linkHeader, ",")
	for _, part := range parts {
		if strings.Contains(part, `rel="next"`) {
			urlPart := strings.TrimSpace(strings.Split(part, ";")[0])
			urlPart = strings.Trim(urlPart, "<>")
			if parsedURL, err := url.Parse(urlPart); err == nil {
				if token := parsedURL.Query().Get("page_info"); token != "" {
					return token, true
				}
			}
		}
	}
	return "", false
}
