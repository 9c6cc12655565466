package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"channel-sync-service/internal/models"
)

// WebhookNotifier posts stockout summaries to a configured webhook. An empty
// URL disables delivery; callers never need to check.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether a webhook URL is configured
func (n *WebhookNotifier) Enabled() bool {
	return n.url != ""
}

// stockoutPayload is the webhook message body
type stockoutPayload struct {
	Text          string          `json:"text"`
	Criticals     []stockoutEntry `json:"criticals"`
	CriticalCount int             `json:"criticalCount"`
	WarningCount  int             `json:"warningCount"`
	GeneratedAt   time.Time       `json:"generatedAt"`
}

type stockoutEntry struct {
	SKU               string  `json:"sku"`
	DaysUntilStockout int     `json:"daysUntilStockout"`
	Depleted          bool    `json:"depleted"`
	AvailableQuantity int     `json:"availableQuantity"`
	InboundQuantity   int     `json:"inboundQuantity"`
	SuggestedReorder  int     `json:"suggestedReorder"`
	DailyAvgSales     float64 `json:"dailyAvgSales"`
}

// NotifyStockouts delivers one summary message: the most urgent critical
// alerts in full, warnings as a count only. Criticals beyond the caller's
// cap are expected to be trimmed before this call.
func (n *WebhookNotifier) NotifyStockouts(ctx context.Context, criticals []models.StockoutAlert, totalCriticals, warningCount int) error {
	if !n.Enabled() {
		return nil
	}
	if totalCriticals == 0 && warningCount == 0 {
		return nil
	}

	entries := make([]stockoutEntry, 0, len(criticals))
	for _, alert := range criticals {
		entries = append(entries, stockoutEntry{
			SKU:               alert.MasterSKU,
			DaysUntilStockout: alert.DaysUntilStockout,
			Depleted:          alert.Depleted,
			AvailableQuantity: alert.AvailableQuantity,
			InboundQuantity:   alert.InboundQuantity,
			SuggestedReorder:  alert.SuggestedReorder,
			DailyAvgSales:     alert.DailyAvgSales,
		})
	}

	payload := stockoutPayload{
		Text:          fmt.Sprintf("Stockout forecast: %d critical, %d warning", totalCriticals, warningCount),
		Criticals:     entries,
		CriticalCount: totalCriticals,
		WarningCount:  warningCount,
		GeneratedAt:   time.Now().UTC(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(snippet))
	}

	logrus.WithFields(logrus.Fields{
		"criticals": totalCriticals,
		"warnings":  warningCount,
	}).Info("Stockout notification delivered")
	return nil
}
