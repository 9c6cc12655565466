package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"channel-sync-service/internal/canonical"
	"channel-sync-service/internal/channels"
	"channel-sync-service/internal/models"
	"channel-sync-service/internal/repository"
	"channel-sync-service/internal/staging"
)

// MockSyncRepository is a mock implementation of SyncRepositoryInterface
type MockSyncRepository struct {
	mock.Mock
}

var _ repository.SyncRepositoryInterface = (*MockSyncRepository)(nil)

func (m *MockSyncRepository) CreateRun(ctx context.Context, run *models.SyncRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockSyncRepository) GetRunByID(ctx context.Context, id uuid.UUID) (*models.SyncRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncRun), args.Error(1)
}

func (m *MockSyncRepository) UpdateRun(ctx context.Context, run *models.SyncRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockSyncRepository) UpdateRunStatus(ctx context.Context, id uuid.UUID, status models.RunStatus, errorMessage string) error {
	args := m.Called(ctx, id, status, errorMessage)
	return args.Error(0)
}

func (m *MockSyncRepository) UpdateRunCounts(ctx context.Context, id uuid.UUID, counts *models.RunCounts) error {
	args := m.Called(ctx, id, counts)
	return args.Error(0)
}

func (m *MockSyncRepository) ListRuns(ctx context.Context, opts repository.RunListOptions) ([]models.SyncRun, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.SyncRun), args.Get(1).(int64), args.Error(2)
}

func (m *MockSyncRepository) GetActiveRuns(ctx context.Context, accountID uuid.UUID) ([]models.SyncRun, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SyncRun), args.Error(1)
}

func (m *MockSyncRepository) CreateLog(ctx context.Context, log *models.SyncRunLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockSyncRepository) GetRunLogs(ctx context.Context, runID uuid.UUID, opts repository.LogListOptions) ([]models.SyncRunLog, error) {
	args := m.Called(ctx, runID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SyncRunLog), args.Error(1)
}

func (m *MockSyncRepository) GetRunStats(ctx context.Context, accountID *uuid.UUID) (*repository.RunStats, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.RunStats), args.Error(1)
}

// stubChannelClient serves pre-built pages in order and records the cursor of
// every fetch. Once the pages run out it returns ordersErr.
type stubChannelClient struct {
	orderPages []*channels.OrdersPage
	ordersErr  error
	invPages   []*channels.InventoryPage
	invErr     error

	orderCursors []string
	invCursors   []string
}

var _ channels.ChannelClient = (*stubChannelClient)(nil)

func (c *stubChannelClient) GetType() models.ChannelType { return models.ChannelStorefront }

func (c *stubChannelClient) Initialize(ctx context.Context, credentials map[string]interface{}) error {
	return nil
}

func (c *stubChannelClient) TestConnection(ctx context.Context) error { return nil }

func (c *stubChannelClient) FetchOrders(ctx context.Context, opts *channels.OrderListOptions) (*channels.OrdersPage, error) {
	c.orderCursors = append(c.orderCursors, opts.Cursor)
	if len(c.orderPages) == 0 {
		return nil, c.ordersErr
	}
	page := c.orderPages[0]
	c.orderPages = c.orderPages[1:]
	return page, nil
}

func (c *stubChannelClient) FetchInventory(ctx context.Context, opts *channels.ListOptions) (*channels.InventoryPage, error) {
	c.invCursors = append(c.invCursors, opts.Cursor)
	if c.invErr != nil {
		return nil, c.invErr
	}
	if len(c.invPages) == 0 {
		return &channels.InventoryPage{}, nil
	}
	page := c.invPages[0]
	c.invPages = c.invPages[1:]
	return page, nil
}

// captureOrderStore counts what the pipeline stages and merges
type captureOrderStore struct {
	ordersStaged int
	itemsStaged  int
	mergeCalls   int
	dropCalls    int
}

var _ staging.OrderStore = (*captureOrderStore)(nil)

func (s *captureOrderStore) CreateOrderStaging(ctx context.Context, token string) error { return nil }

func (s *captureOrderStore) InsertOrderBatch(ctx context.Context, token string, orders []models.Order) error {
	s.ordersStaged += len(orders)
	return nil
}

func (s *captureOrderStore) InsertLineItemBatch(ctx context.Context, token string, items []models.OrderLineItem) error {
	s.itemsStaged += len(items)
	return nil
}

func (s *captureOrderStore) MergeOrders(ctx context.Context, token string) (*staging.MergeCounts, error) {
	s.mergeCalls++
	return &staging.MergeCounts{Inserted: int64(s.ordersStaged)}, nil
}

func (s *captureOrderStore) MergeLineItems(ctx context.Context, token string) (*staging.MergeCounts, error) {
	return &staging.MergeCounts{Inserted: int64(s.itemsStaged)}, nil
}

func (s *captureOrderStore) DropOrderStaging(ctx context.Context, token string) error {
	s.dropCalls++
	return nil
}

type captureInventoryStore struct {
	createCalls   int
	recordsStaged int
	mergeCalls    int
}

var _ staging.InventoryStore = (*captureInventoryStore)(nil)

func (s *captureInventoryStore) CreateInventoryStaging(ctx context.Context, token string) error {
	s.createCalls++
	return nil
}

func (s *captureInventoryStore) InsertInventoryBatch(ctx context.Context, token string, records []models.InventoryRecord) error {
	s.recordsStaged += len(records)
	return nil
}

func (s *captureInventoryStore) MergeInventory(ctx context.Context, token string) (*staging.MergeCounts, error) {
	s.mergeCalls++
	return &staging.MergeCounts{Inserted: int64(s.recordsStaged)}, nil
}

func (s *captureInventoryStore) DropInventoryStaging(ctx context.Context, token string) error {
	return nil
}

func newTestSyncService(orderStore *captureOrderStore, invStore *captureInventoryStore) *SyncService {
	repo := &MockSyncRepository{}
	repo.On("CreateLog", mock.Anything, mock.Anything).Return(nil)

	return &SyncService{
		syncRepo:   repo,
		pipeline:   staging.NewPipeline(orderStore, invStore, 500, 0),
		activeRuns: make(map[uuid.UUID]context.CancelFunc),
		guard:      NewRunGuard(DefaultRunConcurrencyConfig()),
	}
}

func newTestRun(syncType models.SyncType) *models.SyncRun {
	now := time.Now().UTC()
	return &models.SyncRun{
		ID:           uuid.New(),
		AccountID:    uuid.New(),
		Channel:      models.ChannelStorefront,
		SyncType:     syncType,
		Status:       models.RunStatusRunning,
		WindowStart:  now.AddDate(0, 0, -30),
		WindowEnd:    now,
		StagingToken: staging.NewToken(),
	}
}

func newTestSyncCanonicalizer() *canonical.Canonicalizer {
	return canonical.NewCanonicalizer(models.ChannelStorefront, "Test Store", "USD", canonical.NewSKUResolver(nil))
}

// rawOrders builds n well-formed orders; the first malformed of them get an
// empty order id so canonicalization rejects them.
func rawOrders(n, malformed int) []channels.RawOrder {
	orders := make([]channels.RawOrder, 0, n)
	for i := 0; i < n; i++ {
		order := channels.RawOrder{
			OrderID:     fmt.Sprintf("ord-%d", i),
			OrderedAt:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			TotalAmount: "10.00",
			Currency:    "USD",
			LineItems: []channels.RawLineItem{
				{LineItemID: fmt.Sprintf("li-%d", i), SKU: "SKU-1", Quantity: 1, UnitPrice: "10.00"},
			},
		}
		if i < malformed {
			order.OrderID = ""
		}
		orders = append(orders, order)
	}
	return orders
}

func TestSyncOrdersIsolatesMalformedRecords(t *testing.T) {
	orderStore := &captureOrderStore{}
	service := newTestSyncService(orderStore, &captureInventoryStore{})
	run := newTestRun(models.SyncTypeOrders)

	client := &stubChannelClient{
		orderPages: []*channels.OrdersPage{
			{Orders: rawOrders(100, 3)},
		},
	}

	counts := &models.RunCounts{}
	err := service.syncOrders(context.Background(), run, client, newTestSyncCanonicalizer(), counts)

	require.NoError(t, err)
	assert.Equal(t, 100, counts.RecordsFetched)
	assert.Equal(t, 3, counts.RowsSkipped)
	assert.Equal(t, 97, orderStore.ordersStaged)
	assert.Equal(t, 97, orderStore.itemsStaged)
	assert.Equal(t, 1, orderStore.mergeCalls)
}

func TestSyncOrdersAccumulatesAcrossPages(t *testing.T) {
	orderStore := &captureOrderStore{}
	service := newTestSyncService(orderStore, &captureInventoryStore{})
	run := newTestRun(models.SyncTypeOrders)

	client := &stubChannelClient{
		orderPages: []*channels.OrdersPage{
			{Orders: rawOrders(250, 0), NextCursor: "page-2", HasMore: true},
			{Orders: rawOrders(40, 0), HasMore: false},
		},
	}

	counts := &models.RunCounts{}
	err := service.syncOrders(context.Background(), run, client, newTestSyncCanonicalizer(), counts)

	require.NoError(t, err)
	assert.Equal(t, 290, counts.RecordsFetched)
	assert.Equal(t, 2, counts.PagesProcessed)
	assert.Equal(t, 290, orderStore.ordersStaged)

	// The loop stops on HasMore=false and threads the cursor through
	require.Equal(t, []string{"", "page-2"}, client.orderCursors)
}

func TestSyncOrdersMergesPartialOnReportTimeout(t *testing.T) {
	orderStore := &captureOrderStore{}
	service := newTestSyncService(orderStore, &captureInventoryStore{})
	run := newTestRun(models.SyncTypeOrders)

	client := &stubChannelClient{
		orderPages: []*channels.OrdersPage{
			{Orders: rawOrders(10, 0), NextCursor: "1", HasMore: true},
		},
		ordersErr: fmt.Errorf("report generation: %w", channels.ErrReportTimeout),
	}

	counts := &models.RunCounts{}
	err := service.syncOrders(context.Background(), run, client, newTestSyncCanonicalizer(), counts)

	require.ErrorIs(t, err, channels.ErrReportTimeout)
	assert.Equal(t, 10, orderStore.ordersStaged)
	assert.Equal(t, 1, orderStore.mergeCalls)
}

func TestSyncOrdersFetchErrorFailsRun(t *testing.T) {
	orderStore := &captureOrderStore{}
	service := newTestSyncService(orderStore, &captureInventoryStore{})
	run := newTestRun(models.SyncTypeOrders)

	client := &stubChannelClient{
		ordersErr: &channels.APIError{Op: "list orders", StatusCode: 401, Body: "bad token"},
	}

	err := service.syncOrders(context.Background(), run, client, newTestSyncCanonicalizer(), &models.RunCounts{})

	assert.ErrorContains(t, err, "failed to fetch orders")
	assert.Equal(t, 0, orderStore.mergeCalls)
}

func TestSyncInventorySkipsUnsupportedChannel(t *testing.T) {
	invStore := &captureInventoryStore{}
	service := newTestSyncService(&captureOrderStore{}, invStore)
	run := newTestRun(models.SyncTypeInventory)

	client := &stubChannelClient{
		invErr: &channels.UnsupportedChannelError{ChannelType: "STOREFRONT"},
	}

	err := service.syncInventory(context.Background(), run, client, newTestSyncCanonicalizer(), &models.RunCounts{})

	require.NoError(t, err)
	assert.Equal(t, 0, invStore.createCalls)
}

func TestSyncInventoryPaginatesAndStages(t *testing.T) {
	invStore := &captureInventoryStore{}
	service := newTestSyncService(&captureOrderStore{}, invStore)
	run := newTestRun(models.SyncTypeInventory)

	now := time.Now().UTC()
	client := &stubChannelClient{
		invPages: []*channels.InventoryPage{
			{
				Records: []channels.RawInventory{
					{ChannelSKU: "SKU-1", Location: "main", AvailableQuantity: 5, UpdatedAt: now},
				},
				NextCursor: "2",
				HasMore:    true,
			},
			{
				Records: []channels.RawInventory{
					{ChannelSKU: "SKU-2", Location: "main", AvailableQuantity: 7, UpdatedAt: now},
				},
			},
		},
	}

	counts := &models.RunCounts{}
	err := service.syncInventory(context.Background(), run, client, newTestSyncCanonicalizer(), counts)

	require.NoError(t, err)
	assert.Equal(t, 2, counts.RecordsFetched)
	assert.Equal(t, 2, counts.PagesProcessed)
	assert.Equal(t, 2, invStore.recordsStaged)
	assert.Equal(t, 1, invStore.mergeCalls)
	assert.Equal(t, []string{"", "2"}, client.invCursors)
}

func TestGetConcurrencyStats(t *testing.T) {
	service := newTestSyncService(&captureOrderStore{}, &captureInventoryStore{})

	release, ok := service.guard.TryAcquire("acct-1")
	require.True(t, ok)
	defer release()

	stats := service.GetConcurrencyStats()
	assert.Equal(t, 1, stats["totalActiveRuns"])
}
