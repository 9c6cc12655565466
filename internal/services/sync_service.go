package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"channel-sync-service/internal/canonical"
	"channel-sync-service/internal/channels"
	"channel-sync-service/internal/channels/marketplace"
	"channel-sync-service/internal/channels/pos"
	"channel-sync-service/internal/channels/storefront"
	"channel-sync-service/internal/channels/warehouse"
	"channel-sync-service/internal/config"
	"channel-sync-service/internal/models"
	"channel-sync-service/internal/repository"
	"channel-sync-service/internal/secrets"
	"channel-sync-service/internal/staging"
)

// SyncService orchestrates channel synchronization runs: extract raw records
// from the channel, canonicalize, then stage and merge into the durable
// tables.
type SyncService struct {
	syncRepo      repository.SyncRepositoryInterface
	accountRepo   *repository.AccountRepository
	mappingRepo   *repository.SKUMappingRepository
	pipeline      *staging.Pipeline
	secretManager *secrets.GCPSecretManager
	config        *config.Config
	activeRuns    map[uuid.UUID]context.CancelFunc
	mu            sync.RWMutex
	guard         *RunGuard
}

// NewSyncService creates a new sync service
func NewSyncService(
	syncRepo repository.SyncRepositoryInterface,
	accountRepo *repository.AccountRepository,
	mappingRepo *repository.SKUMappingRepository,
	pipeline *staging.Pipeline,
	secretManager *secrets.GCPSecretManager,
	cfg *config.Config,
) *SyncService {
	return &SyncService{
		syncRepo:      syncRepo,
		accountRepo:   accountRepo,
		mappingRepo:   mappingRepo,
		pipeline:      pipeline,
		secretManager: secretManager,
		config:        cfg,
		activeRuns:    make(map[uuid.UUID]context.CancelFunc),
		guard:         NewRunGuard(DefaultRunConcurrencyConfig()),
	}
}

// SetRunGuard sets the concurrency guard
func (s *SyncService) SetRunGuard(guard *RunGuard) {
	s.guard = guard
}

// CreateRunRequest contains the data for starting a new sync run
type CreateRunRequest struct {
	AccountID    uuid.UUID          `json:"accountId"`
	SyncType     models.SyncType    `json:"syncType"`
	LookbackDays int                `json:"lookbackDays,omitempty"`
	FullResync   bool               `json:"fullResync,omitempty"`
	TriggeredBy  models.TriggerType `json:"triggeredBy"`
	CreatedBy    string             `json:"createdBy,omitempty"`
}

// CreateRun creates and starts a new sync run
func (s *SyncService) CreateRun(ctx context.Context, req *CreateRunRequest) (*models.SyncRun, error) {
	account, err := s.accountRepo.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("account not found: %w", err)
	}
	if account.Status != models.AccountConnected {
		return nil, fmt.Errorf("account is not connected")
	}
	if !account.IsEnabled {
		return nil, fmt.Errorf("account is disabled")
	}

	// Check for active runs
	activeRuns, err := s.syncRepo.GetActiveRuns(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if len(activeRuns) > 0 {
		return nil, fmt.Errorf("a sync run is already active for this account")
	}

	// Check concurrency limits
	if s.guard != nil && !s.guard.CanAcceptRun(req.AccountID.String()) {
		return nil, fmt.Errorf("concurrency limit reached")
	}

	lookbackDays := req.LookbackDays
	if lookbackDays <= 0 {
		lookbackDays = s.config.DefaultLookbackDays
	}
	if req.FullResync {
		lookbackDays = s.config.FullResyncDays
	}

	now := time.Now().UTC()
	run := &models.SyncRun{
		ID:           uuid.New(),
		AccountID:    req.AccountID,
		Channel:      account.ChannelType,
		SyncType:     req.SyncType,
		Status:       models.RunStatusRunning,
		LookbackDays: lookbackDays,
		WindowStart:  now.AddDate(0, 0, -lookbackDays),
		WindowEnd:    now,
		FullResync:   req.FullResync,
		StagingToken: staging.NewToken(),
		TriggeredBy:  req.TriggeredBy,
		CreatedBy:    req.CreatedBy,
		StartedAt:    &now,
	}
	run.SetCounts(&models.RunCounts{})

	if err := s.syncRepo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	// Start sync in background
	runCtx, cancel := context.WithTimeout(context.Background(), s.config.SyncTimeout)
	s.mu.Lock()
	s.activeRuns[run.ID] = cancel
	s.mu.Unlock()

	go s.runSync(runCtx, run, account)

	return run, nil
}

// GetRun retrieves a sync run by ID
func (s *SyncService) GetRun(ctx context.Context, id uuid.UUID) (*models.SyncRun, error) {
	return s.syncRepo.GetRunByID(ctx, id)
}

// ListRuns lists sync runs
func (s *SyncService) ListRuns(ctx context.Context, opts *repository.RunListOptions) ([]models.SyncRun, int64, error) {
	if opts == nil {
		opts = &repository.RunListOptions{}
	}
	return s.syncRepo.ListRuns(ctx, *opts)
}

// CancelRun cancels a running sync run
func (s *SyncService) CancelRun(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	cancel, exists := s.activeRuns[id]
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("run not found or not running")
	}

	cancel()
	return s.syncRepo.UpdateRunStatus(ctx, id, models.RunStatusCancelled, "Cancelled by user")
}

// GetRunLogs retrieves logs for a sync run
func (s *SyncService) GetRunLogs(ctx context.Context, runID uuid.UUID, opts *repository.LogListOptions) ([]models.SyncRunLog, error) {
	if opts == nil {
		opts = &repository.LogListOptions{Limit: 100}
	}
	return s.syncRepo.GetRunLogs(ctx, runID, *opts)
}

// GetStats retrieves sync run statistics
func (s *SyncService) GetStats(ctx context.Context, accountID *uuid.UUID) (*repository.RunStats, error) {
	return s.syncRepo.GetRunStats(ctx, accountID)
}

// GetConcurrencyStats reports the run guard's current slot usage
func (s *SyncService) GetConcurrencyStats() map[string]interface{} {
	return s.guard.GetStats()
}

// runSync executes the sync run
func (s *SyncService) runSync(ctx context.Context, run *models.SyncRun, account *models.ChannelAccount) {
	defer func() {
		s.mu.Lock()
		delete(s.activeRuns, run.ID)
		s.mu.Unlock()
	}()

	release, acquired := s.guard.TryAcquire(run.AccountID.String())
	if !acquired {
		s.failRun(run.ID, "Concurrency limit reached")
		return
	}
	defer func() {
		release()
		s.guard.Cleanup()
	}()

	s.logEvent(ctx, run.ID, models.LogLevelInfo, "Sync run started", models.JSONB{
		"syncType":    string(run.SyncType),
		"windowStart": run.WindowStart,
		"windowEnd":   run.WindowEnd,
	})

	client, err := s.initializeClient(ctx, account)
	if err != nil {
		s.failRun(run.ID, fmt.Sprintf("Failed to initialize client: %v", err))
		return
	}

	// One mapping snapshot per run
	mappings, err := s.mappingRepo.ListByChannel(ctx, account.ChannelType)
	if err != nil {
		s.failRun(run.ID, fmt.Sprintf("Failed to load SKU mappings: %v", err))
		return
	}
	resolver := canonical.NewSKUResolver(mappings)
	canonicalizer := canonical.NewCanonicalizer(account.ChannelType, account.AccountName, account.DefaultCurrency, resolver)

	counts := &models.RunCounts{}
	var syncErr error
	switch run.SyncType {
	case models.SyncTypeOrders:
		syncErr = s.syncOrders(ctx, run, client, canonicalizer, counts)
	case models.SyncTypeInventory:
		syncErr = s.syncInventory(ctx, run, client, canonicalizer, counts)
	case models.SyncTypeFull:
		if syncErr = s.syncOrders(ctx, run, client, canonicalizer, counts); syncErr == nil {
			syncErr = s.syncInventory(ctx, run, client, canonicalizer, counts)
		}
	default:
		syncErr = fmt.Errorf("unsupported sync type: %s", run.SyncType)
	}

	counts.UnmappedSKUs = resolver.UnmappedCount()
	_ = s.syncRepo.UpdateRunCounts(context.Background(), run.ID, counts)

	if syncErr != nil {
		if ctx.Err() != nil {
			_ = s.syncRepo.UpdateRunStatus(context.Background(), run.ID, models.RunStatusCancelled, "Cancelled")
			return
		}
		s.failRun(run.ID, syncErr.Error())
		return
	}

	_ = s.syncRepo.UpdateRunStatus(context.Background(), run.ID, models.RunStatusCompleted, "")
	s.logEvent(context.Background(), run.ID, models.LogLevelInfo, "Sync run completed", models.JSONB{
		"recordsFetched": counts.RecordsFetched,
		"rowsStaged":     counts.RowsStaged,
		"rowsInserted":   counts.RowsInserted,
		"rowsUpdated":    counts.RowsUpdated,
		"rowsSkipped":    counts.RowsSkipped,
		"unmappedSkus":   counts.UnmappedSKUs,
	})

	_ = s.accountRepo.UpdateLastSync(context.Background(), account.ID, time.Now().UTC())
}

// syncOrders extracts, canonicalizes and merges orders for the run window.
// A report timeout on one sub-window stops extraction but the records
// already collected are still staged and merged before the run fails;
// natural-key idempotence makes the re-run safe.
func (s *SyncService) syncOrders(ctx context.Context, run *models.SyncRun, client channels.ChannelClient, canonicalizer *canonical.Canonicalizer, counts *models.RunCounts) error {
	s.logEvent(ctx, run.ID, models.LogLevelInfo, "Starting order extraction", nil)

	var orders []models.Order
	var items []models.OrderLineItem
	var cursor string
	var fetchErr error

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		page, err := client.FetchOrders(ctx, &channels.OrderListOptions{
			ListOptions: channels.ListOptions{Cursor: cursor},
			WindowStart: run.WindowStart,
			WindowEnd:   run.WindowEnd,
		})
		if err != nil {
			if errors.Is(err, channels.ErrReportTimeout) {
				s.logEvent(ctx, run.ID, models.LogLevelError, "Report timed out, merging partial results", models.JSONB{
					"error": err.Error(),
				})
				fetchErr = err
				break
			}
			return fmt.Errorf("failed to fetch orders: %w", err)
		}

		counts.RecordsFetched += len(page.Orders)
		counts.PagesProcessed++
		if page.SubWindow > counts.SubWindowsProcessed {
			counts.SubWindowsProcessed = page.SubWindow
		}

		for _, raw := range page.Orders {
			order, lineItems, err := canonicalizer.CanonicalizeOrder(raw)
			if err != nil {
				counts.RowsSkipped++
				s.logEvent(ctx, run.ID, models.LogLevelError, "Skipping malformed order", models.JSONB{
					"orderId": raw.OrderID,
					"error":   err.Error(),
				})
				continue
			}
			orders = append(orders, *order)
			items = append(items, lineItems...)
		}

		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	result, err := s.pipeline.RunOrders(ctx, run.StagingToken, orders, items)
	if err != nil {
		return fmt.Errorf("order merge failed: %w", err)
	}
	counts.RowsStaged += result.RowsStaged
	counts.RowsInserted += int(result.Inserted)
	counts.RowsUpdated += int(result.Updated)

	s.logEvent(ctx, run.ID, models.LogLevelInfo, "Order extraction completed", models.JSONB{
		"orders":    len(orders),
		"lineItems": len(items),
	})

	if fetchErr != nil {
		return fmt.Errorf("order extraction incomplete: %w", fetchErr)
	}
	return nil
}

// syncInventory extracts, canonicalizes and merges inventory
func (s *SyncService) syncInventory(ctx context.Context, run *models.SyncRun, client channels.ChannelClient, canonicalizer *canonical.Canonicalizer, counts *models.RunCounts) error {
	s.logEvent(ctx, run.ID, models.LogLevelInfo, "Starting inventory extraction", nil)

	var records []models.InventoryRecord
	var cursor string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		page, err := client.FetchInventory(ctx, &channels.ListOptions{Cursor: cursor})
		if err != nil {
			var unsupported *channels.UnsupportedChannelError
			if errors.As(err, &unsupported) {
				s.logEvent(ctx, run.ID, models.LogLevelInfo, "Channel does not expose inventory, skipping", nil)
				return nil
			}
			return fmt.Errorf("failed to fetch inventory: %w", err)
		}

		counts.RecordsFetched += len(page.Records)
		counts.PagesProcessed++

		for _, raw := range page.Records {
			record, err := canonicalizer.CanonicalizeInventory(raw)
			if err != nil {
				counts.RowsSkipped++
				s.logEvent(ctx, run.ID, models.LogLevelError, "Skipping malformed inventory record", models.JSONB{
					"sku":   raw.ChannelSKU,
					"error": err.Error(),
				})
				continue
			}
			records = append(records, *record)
		}

		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	result, err := s.pipeline.RunInventory(ctx, run.StagingToken, records)
	if err != nil {
		return fmt.Errorf("inventory merge failed: %w", err)
	}
	counts.RowsStaged += result.RowsStaged
	counts.RowsInserted += int(result.Inserted)
	counts.RowsUpdated += int(result.Updated)

	s.logEvent(ctx, run.ID, models.LogLevelInfo, "Inventory extraction completed", models.JSONB{
		"records": len(records),
	})

	return nil
}

// initializeClient creates and initializes a channel client
func (s *SyncService) initializeClient(ctx context.Context, account *models.ChannelAccount) (channels.ChannelClient, error) {
	if s.secretManager == nil {
		return nil, fmt.Errorf("secret manager not configured")
	}

	secret, err := s.secretManager.GetSecret(ctx, account.SecretReference)
	if err != nil {
		return nil, err
	}

	client, err := newChannelClient(account.ChannelType, s.config)
	if err != nil {
		return nil, err
	}

	if err := client.Initialize(ctx, secret.Credentials); err != nil {
		return nil, err
	}

	return client, nil
}

// newChannelClient creates a channel client based on the channel type
func newChannelClient(channelType models.ChannelType, cfg *config.Config) (channels.ChannelClient, error) {
	throttle := &channels.ThrottleConfig{
		PageDelay:  cfg.PageDelay,
		Cooldown:   cfg.RateLimitCooldown,
		MaxRetries: cfg.SyncMaxRetries,
	}

	switch channelType {
	case models.ChannelMarketplace:
		return marketplace.NewMarketplaceClient(throttle, cfg.ReportPollInterval, cfg.ReportPollTimeout), nil
	case models.ChannelStorefront:
		return storefront.NewStorefrontClient(throttle), nil
	case models.ChannelPOS:
		return pos.NewPOSClient(throttle), nil
	case models.ChannelWarehouse:
		return warehouse.NewWarehouseClient(throttle), nil
	default:
		return nil, &channels.UnsupportedChannelError{ChannelType: string(channelType)}
	}
}

// failRun marks a run as failed
func (s *SyncService) failRun(runID uuid.UUID, message string) {
	_ = s.syncRepo.UpdateRunStatus(context.Background(), runID, models.RunStatusFailed, message)
	s.logEvent(context.Background(), runID, models.LogLevelError, message, nil)
}

// logEvent creates a run log entry
func (s *SyncService) logEvent(ctx context.Context, runID uuid.UUID, level models.LogLevel, message string, data models.JSONB) {
	log := &models.SyncRunLog{
		ID:      uuid.New(),
		RunID:   runID,
		Level:   level,
		Message: message,
		Data:    data,
	}
	_ = s.syncRepo.CreateLog(ctx, log)
}
