package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"channel-sync-service/internal/channels"
	"channel-sync-service/internal/models"
)

const (
	// Regional API endpoints
	naEndpoint = "https://sellerapi-na.example.com"
	euEndpoint = "https://sellerapi-eu.example.com"
	feEndpoint = "https://sellerapi-fe.example.com"

	// OAuth token endpoint
	tokenEndpoint = "https://auth.example.com/o2/token"

	ordersReportType = "FLAT_FILE_ALL_ORDERS_BY_ORDER_DATE"

	// The reports API rejects ranges wider than 30 days, so the extraction
	// window is sliced and each sub-window runs its own request/poll/download
	// cycle.
	reportWindowSize = 30 * 24 * time.Hour
)

// MarketplaceClient implements ChannelClient for report-style marketplace
// seller APIs: order extraction submits a report generation request, polls
// until the report is done and downloads the resulting document.
type MarketplaceClient struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	refreshToken string
	accessToken  string
	tokenExpiry  time.Time
	sellerID     string
	throttler    *channels.Throttler
	poller       *channels.ReportPoller
}

// NewMarketplaceClient creates a new marketplace seller API client
func NewMarketplaceClient(throttle *channels.ThrottleConfig, pollInterval, pollTimeout time.Duration) *MarketplaceClient {
	return &MarketplaceClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		throttler:  channels.NewThrottler(throttle),
		poller:     channels.NewReportPoller(pollInterval, pollTimeout),
	}
}

// GetType returns the channel type
func (c *MarketplaceClient) GetType() models.ChannelType {
	return models.ChannelMarketplace
}

// Initialize sets up the client with credentials
func (c *MarketplaceClient) Initialize(ctx context.Context, credentials map[string]interface{}) error {
	if clientID, ok := credentials["client_id"].(string); ok {
		c.clientID = clientID
	} else {
		return fmt.Errorf("missing client_id")
	}

	if clientSecret, ok := credentials["client_secret"].(string); ok {
		c.clientSecret = clientSecret
	} else {
		return fmt.Errorf("missing client_secret")
	}

	if refreshToken, ok := credentials["refresh_token"].(string); ok {
		c.refreshToken = refreshToken
	} else {
		return fmt.Errorf("missing refresh_token")
	}

	if sellerID, ok := credentials["seller_id"].(string); ok {
		c.sellerID = sellerID
	} else {
		return fmt.Errorf("missing seller_id")
	}

	region := "na"
	if r, ok := credentials["region"].(string); ok {
		region = r
	}
	c.baseURL = regionalEndpoint(region)

	if endpoint, ok := credentials["endpoint"].(string); ok && endpoint != "" {
		c.baseURL = endpoint
	}

	if c.accessToken == "" || time.Now().After(c.tokenExpiry.Add(-5*time.Minute)) {
		if err := c.refreshAccessToken(ctx); err != nil {
			return fmt.Errorf("failed to obtain access token: %w", err)
		}
	}

	return nil
}

// TestConnection verifies the connection is working
func (c *MarketplaceClient) TestConnection(ctx context.Context) error {
	_, _, err := c.doRequest(ctx, "GET", "/sellers/v1/participations", nil)
	return err
}

// refreshAccessToken refreshes the OAuth access token
func (c *MarketplaceClient) refreshAccessToken(ctx context.Context) error {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", c.refreshToken)
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", tokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &channels.APIError{Op: "token refresh", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return err
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return nil
}

// FetchOrders extracts one sub-window of order report rows per call. The
// cursor is the index of the next sub-window; a report timeout fails that
// sub-window only.
func (c *MarketplaceClient) FetchOrders(ctx context.Context, opts *channels.OrderListOptions) (*channels.OrdersPage, error) {
	windows := channels.SliceWindow(opts.WindowStart, opts.WindowEnd, reportWindowSize)
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

	orders, err := c.extractWindow(ctx, window)
	if err != nil {
		return nil, err
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

// extractWindow runs one submit/poll/download cycle for a bounded range
func (c *MarketplaceClient) extractWindow(ctx context.Context, window channels.Window) ([]channels.RawOrder, error) {
	reportID, err := c.submitReport(ctx, window)
	if err != nil {
		return nil, err
	}

	documentID, err := c.poller.Await(ctx, "orders report", func(ctx context.Context) (channels.ReportState, string, error) {
		return c.checkReport(ctx, reportID)
	})
	if err != nil {
		return nil, err
	}

	document, err := c.downloadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	return parseOrderReport(document), nil
}

// submitReport requests report generation for a bounded range
func (c *MarketplaceClient) submitReport(ctx context.Context, window channels.Window) (string, error) {
	payload, _ := json.Marshal(map[string]string{
		"reportType":    ordersReportType,
		"sellerId":      c.sellerID,
		"dataStartTime": window.Start.Format(time.RFC3339),
		"dataEndTime":   window.End.Format(time.RFC3339),
	})

	body, _, err := c.doRequestWithBody(ctx, "POST", "/reports/v1/reports", payload)
	if err != nil {
		return "", err
	}

	var resp struct {
		ReportID string `json:"reportId"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse report submission: %w", err)
	}
	if resp.ReportID == "" {
		return "", fmt.Errorf("report submission returned no report id")
	}
	return resp.ReportID, nil
}

// checkReport fetches the processing state of a submitted report
func (c *MarketplaceClient) checkReport(ctx context.Context, reportID string) (channels.ReportState, string, error) {
	body, _, err := c.doRequest(ctx, "GET", "/reports/v1/reports/"+reportID, nil)
	if err != nil {
		return "", "", err
	}

	var resp struct {
		ProcessingStatus string `json:"processingStatus"`
		ReportDocumentID string `json:"reportDocumentId"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", fmt.Errorf("failed to parse report status: %w", err)
	}

	switch resp.ProcessingStatus {
	case "DONE":
		return channels.ReportDone, resp.ReportDocumentID, nil
	case "FATAL":
		return channels.ReportFailed, "", nil
	case "CANCELLED":
		return channels.ReportCancelled, "", nil
	case "IN_PROGRESS":
		return channels.ReportProcessing, "", nil
	default:
		return channels.ReportQueued, "", nil
	}
}

// downloadDocument fetches and decodes the generated report document.
// Documents from older seller accounts arrive Windows-1252 encoded.
func (c *MarketplaceClient) downloadDocument(ctx context.Context, documentID string) (string, error) {
	body, _, err := c.doRequest(ctx, "GET", "/reports/v1/documents/"+documentID, nil)
	if err != nil {
		return "", err
	}
	return channels.DecodeText(body, "orders report document"), nil
}

// FetchInventory fetches one page of managed inventory summaries
func (c *MarketplaceClient) FetchInventory(ctx context.Context, opts *channels.ListOptions) (*channels.InventoryPage, error) {
	params := url.Values{}
	params.Set("sellerId", c.sellerID)
	if opts.Cursor != "" {
		params.Set("nextToken", opts.Cursor)
	}

	body, _, err := c.doRequest(ctx, "GET", "/inventory/v1/summaries", params)
	if err != nil {
		return nil, err
	}

	var response struct {
		Summaries []struct {
			SellerSKU      string    `json:"sellerSku"`
			FulfillableQty int       `json:"fulfillableQuantity"`
			ReservedQty    int       `json:"reservedQuantity"`
			InboundQty     int       `json:"inboundQuantity"`
			LastUpdated    time.Time `json:"lastUpdatedTime"`
		} `json:"inventorySummaries"`
		Pagination struct {
			NextToken string `json:"nextToken"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse inventory response: %w", err)
	}

	records := make([]channels.RawInventory, 0, len(response.Summaries))
	for _, s := range response.Summaries {
		records = append(records, channels.RawInventory{
			ChannelSKU:        s.SellerSKU,
			Location:          "marketplace-fulfillment",
			LocationType:      models.LocationMarketplaceManaged,
			AvailableQuantity: s.FulfillableQty,
			ReservedQuantity:  s.ReservedQty,
			InboundQuantity:   s.InboundQty,
			UpdatedAt:         s.LastUpdated,
		})
	}

	return &channels.InventoryPage{
		Records:    records,
		NextCursor: response.Pagination.NextToken,
		HasMore:    response.Pagination.NextToken != "",
	}, nil
}

// doRequest executes a throttled GET-style request
func (c *MarketplaceClient) doRequest(ctx context.Context, method, path string, params url.Values) ([]byte, http.Header, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	return c.throttler.Do(ctx, "marketplace "+method+" "+path, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		return c.httpClient.Do(req)
	})
}

// doRequestWithBody executes a throttled request with a JSON payload
func (c *MarketplaceClient) doRequestWithBody(ctx context.Context, method, path string, payload []byte) ([]byte, http.Header, error) {
	endpoint := c.baseURL + path

	return c.throttler.Do(ctx, "marketplace "+method+" "+path, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(string(payload)))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	})
}

// parseOrderReport parses a tab-separated order report. Each report row is
// one line item; one logical order spans several rows, each emitted as its
// own RawOrder so the staging merge can collapse them by order id.
func parseOrderReport(document string) []channels.RawOrder {
	lines := strings.Split(strings.ReplaceAll(document, "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return nil
	}

	cols := map[string]int{}
	for i, name := range strings.Split(lines[0], "\t") {
		cols[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var orders []channels.RawOrder
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		row := strings.Split(line, "\t")

		orderedAt, _ := time.Parse(time.RFC3339, field(row, "purchase-date"))
		quantity, _ := strconv.Atoi(field(row, "quantity"))
		itemPrice := field(row, "item-price")

		order := channels.RawOrder{
			OrderID:            field(row, "order-id"),
			OrderNumber:        field(row, "order-id"),
			OrderedAt:          orderedAt,
			CustomerName:       field(row, "buyer-name"),
			ShippingRegion:     field(row, "ship-state"),
			ShippingCity:       field(row, "ship-city"),
			ShippingPostalCode: field(row, "ship-postal-code"),
			SubtotalAmount:     itemPrice,
			TaxAmount:          field(row, "item-tax"),
			ShippingAmount:     field(row, "shipping-price"),
			// No combined total in report rows; the canonical total is
			// reconstructed as subtotal + tax + shipping.
			Currency:          field(row, "currency"),
			PaymentStatus:     field(row, "payment-status"),
			FulfillmentStatus: field(row, "item-status"),
			LineItems: []channels.RawLineItem{{
				LineItemID:  field(row, "order-item-id"),
				SKU:         field(row, "sku"),
				ProductName: field(row, "product-name"),
				Quantity:    quantity,
				UnitPrice:   unitPriceFromLineTotal(itemPrice, quantity),
				LineTotal:   itemPrice,
			}},
		}
		orders = append(orders, order)
	}
	return orders
}

// unitPriceFromLineTotal derives a per-unit price from the report's
// item-price column, which carries the line total rather than a unit price
func unitPriceFromLineTotal(lineTotal string, quantity int) string {
	if quantity <= 1 {
		return lineTotal
	}
	total, err := decimal.NewFromString(lineTotal)
	if err != nil {
		return ""
	}
	return total.Div(decimal.NewFromInt(int64(quantity))).Round(2).String()
}

// regionalEndpoint maps a region code to its API endpoint
func regionalEndpoint(region string) string {
	switch strings.ToLower(region) {
	case "eu":
		return euEndpoint
	case "fe":
		return feEndpoint
	default:
		return naEndpoint
	}
}
