package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"channel-sync-service/internal/config"
	"channel-sync-service/internal/models"
	"channel-sync-service/internal/notify"
	"channel-sync-service/internal/repository"
)

// ForecastService projects days-until-stockout per master SKU from trailing
// sales velocity and current merged stock, persists the resulting alerts and
// notifies the most urgent criticals.
type ForecastService struct {
	analyticsRepo *repository.AnalyticsRepository
	alertRepo     *repository.AlertRepository
	notifier      *notify.WebhookNotifier
	config        *config.Config
}

// NewForecastService creates a new forecast service
func NewForecastService(
	analyticsRepo *repository.AnalyticsRepository,
	alertRepo *repository.AlertRepository,
	notifier *notify.WebhookNotifier,
	cfg *config.Config,
) *ForecastService {
	return &ForecastService{
		analyticsRepo: analyticsRepo,
		alertRepo:     alertRepo,
		notifier:      notifier,
		config:        cfg,
	}
}

// ForecastResult summarizes one forecast run
type ForecastResult struct {
	Alerts    []models.StockoutAlert `json:"alerts"`
	Criticals int                    `json:"criticals"`
	Warnings  int                    `json:"warnings"`
	SKUsSeen  int                    `json:"skusSeen"`
}

// Run computes the forecast over the trailing sales window. Only SKUs with
// sales in the window are considered; a SKU nobody bought cannot stock out
// on this model.
func (s *ForecastService) Run(ctx context.Context, runID *uuid.UUID) (*ForecastResult, error) {
	windowDays := s.config.ForecastWindowDays
	cutoff := time.Now().UTC().AddDate(0, 0, -windowDays)

	sales, err := s.analyticsRepo.SalesSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales velocity: %w", err)
	}

	stock, err := s.analyticsRepo.StockLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock levels: %w", err)
	}
	stockBySKU := make(map[string]repository.SKUStock, len(stock))
	for _, st := range stock {
		stockBySKU[st.SKU] = st
	}

	result := &ForecastResult{SKUsSeen: len(sales)}
	for _, sale := range sales {
		if sale.TotalSold <= 0 {
			continue
		}

		dailyAvg := float64(sale.TotalSold) / float64(windowDays)
		st := stockBySKU[sale.SKU]

		alert := s.classify(sale.SKU, dailyAvg, st.Available, st.Inbound, windowDays)
		if alert == nil {
			continue
		}
		alert.RunID = runID

		result.Alerts = append(result.Alerts, *alert)
		if alert.Severity == models.SeverityCritical {
			result.Criticals++
		} else {
			result.Warnings++
		}
	}

	// Most urgent first
	sort.Slice(result.Alerts, func(i, j int) bool {
		return result.Alerts[i].DaysUntilStockout < result.Alerts[j].DaysUntilStockout
	})

	if err := s.alertRepo.CreateBatch(ctx, result.Alerts); err != nil {
		return nil, fmt.Errorf("failed to persist alerts: %w", err)
	}

	if err := s.notify(ctx, result); err != nil {
		// Notification failure does not invalidate the persisted forecast
		logrus.WithError(err).Error("Failed to deliver stockout notification")
	}

	logrus.WithFields(logrus.Fields{
		"skus":      result.SKUsSeen,
		"criticals": result.Criticals,
		"warnings":  result.Warnings,
	}).Info("Stockout forecast completed")

	return result, nil
}

// classify produces the alert for one SKU, or nil when stock comfortably
// covers the horizon. Depleted stock is always critical regardless of the
// day ceilings.
func (s *ForecastService) classify(sku string, dailyAvg float64, available, inbound, windowDays int) *models.StockoutAlert {
	alert := &models.StockoutAlert{
		MasterSKU:         sku,
		DailyAvgSales:     dailyAvg,
		AvailableQuantity: available,
		InboundQuantity:   inbound,
	}

	if available <= 0 {
		alert.Severity = models.SeverityCritical
		alert.Depleted = true
		alert.DaysUntilStockout = 0
	} else {
		days := int(math.Floor(float64(available) / dailyAvg))
		alert.DaysUntilStockout = days

		switch {
		case days <= s.config.CriticalDaysCeiling:
			alert.Severity = models.SeverityCritical
		case days <= s.config.WarningDaysCeiling:
			alert.Severity = models.SeverityWarning
		default:
			return nil
		}
	}

	// Cover one full window of demand beyond what is on hand or on the way
	reorder := int(math.Ceil(dailyAvg*float64(windowDays))) - available - inbound
	if reorder < 0 {
		reorder = 0
	}
	alert.SuggestedReorder = reorder

	return alert
}

// notify sends the capped critical list plus warning count
func (s *ForecastService) notify(ctx context.Context, result *ForecastResult) error {
	if s.notifier == nil || !s.notifier.Enabled() {
		return nil
	}

	criticals := make([]models.StockoutAlert, 0, s.config.MaxCriticalsNotified)
	for _, alert := range result.Alerts {
		if alert.Severity != models.SeverityCritical {
			continue
		}
		criticals = append(criticals, alert)
		if len(criticals) == s.config.MaxCriticalsNotified {
			break
		}
	}

	return s.notifier.NotifyStockouts(ctx, criticals, result.Criticals, result.Warnings)
}

// ListAlerts lists persisted alerts
func (s *ForecastService) ListAlerts(ctx context.Context, opts *repository.AlertListOptions) ([]models.StockoutAlert, int64, error) {
	if opts == nil {
		opts = &repository.AlertListOptions{Limit: 100}
	}
	return s.alertRepo.List(ctx, *opts)
}

// GetRunAlerts lists the alerts produced by one run
func (s *ForecastService) GetRunAlerts(ctx context.Context, runID uuid.UUID) ([]models.StockoutAlert, error) {
	return s.alertRepo.GetByRun(ctx, runID)
}
