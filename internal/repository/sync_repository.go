package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"channel-sync-service/internal/models"
)

// SyncRepositoryInterface defines the sync run persistence operations
type SyncRepositoryInterface interface {
	CreateRun(ctx context.Context, run *models.SyncRun) error
	GetRunByID(ctx context.Context, id uuid.UUID) (*models.SyncRun, error)
	UpdateRun(ctx context.Context, run *models.SyncRun) error
	UpdateRunStatus(ctx context.Context, id uuid.UUID, status models.RunStatus, errorMessage string) error
	UpdateRunCounts(ctx context.Context, id uuid.UUID, counts *models.RunCounts) error
	ListRuns(ctx context.Context, opts RunListOptions) ([]models.SyncRun, int64, error)
	GetActiveRuns(ctx context.Context, accountID uuid.UUID) ([]models.SyncRun, error)
	CreateLog(ctx context.Context, log *models.SyncRunLog) error
	GetRunLogs(ctx context.Context, runID uuid.UUID, opts LogListOptions) ([]models.SyncRunLog, error)
	GetRunStats(ctx context.Context, accountID *uuid.UUID) (*RunStats, error)
}

// SyncRepository handles database operations for sync runs
type SyncRepository struct {
	db *gorm.DB
}

var _ SyncRepositoryInterface = (*SyncRepository)(nil)

// NewSyncRepository creates a new sync repository
func NewSyncRepository(db *gorm.DB) *SyncRepository {
	return &SyncRepository{db: db}
}

// CreateRun creates a new sync run
func (r *SyncRepository) CreateRun(ctx context.Context, run *models.SyncRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// GetRunByID retrieves a sync run by ID
func (r *SyncRepository) GetRunByID(ctx context.Context, id uuid.UUID) (*models.SyncRun, error) {
	var run models.SyncRun
	err := r.db.WithContext(ctx).
		Preload("Account").
		First(&run, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// UpdateRun updates an existing sync run
func (r *SyncRepository) UpdateRun(ctx context.Context, run *models.SyncRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// UpdateRunStatus updates the run status
func (r *SyncRepository) UpdateRunStatus(ctx context.Context, id uuid.UUID, status models.RunStatus, errorMessage string) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": errorMessage,
		"updated_at":    time.Now(),
	}
	if status == models.RunStatusRunning {
		now := time.Now()
		updates["started_at"] = &now
	}
	if status == models.RunStatusCompleted || status == models.RunStatusFailed || status == models.RunStatusCancelled {
		now := time.Now()
		updates["completed_at"] = &now
	}
	return r.db.WithContext(ctx).
		Model(&models.SyncRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateRunCounts updates the result counts for a run
func (r *SyncRepository) UpdateRunCounts(ctx context.Context, id uuid.UUID, counts *models.RunCounts) error {
	countsJSON := models.JSONB{
		"recordsFetched":      counts.RecordsFetched,
		"rowsStaged":          counts.RowsStaged,
		"rowsInserted":        counts.RowsInserted,
		"rowsUpdated":         counts.RowsUpdated,
		"rowsSkipped":         counts.RowsSkipped,
		"unmappedSkus":        counts.UnmappedSKUs,
		"pagesProcessed":      counts.PagesProcessed,
		"subWindowsProcessed": counts.SubWindowsProcessed,
	}
	return r.db.WithContext(ctx).
		Model(&models.SyncRun{}).
		Where("id = ?", id).
		Update("counts", countsJSON).Error
}

// ListRuns retrieves sync runs with pagination and filtering
func (r *SyncRepository) ListRuns(ctx context.Context, opts RunListOptions) ([]models.SyncRun, int64, error) {
	var runs []models.SyncRun
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SyncRun{})

	if opts.AccountID != uuid.Nil {
		query = query.Where("account_id = ?", opts.AccountID)
	}
	if opts.Channel != "" {
		query = query.Where("channel = ?", opts.Channel)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.SyncType != "" {
		query = query.Where("sync_type = ?", opts.SyncType)
	}

	// Get total count
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Apply pagination and ordering
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}
	query = query.Order("created_at DESC")
	query = query.Preload("Account")

	if err := query.Find(&runs).Error; err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}

// GetActiveRuns retrieves pending or running runs for an account
func (r *SyncRepository) GetActiveRuns(ctx context.Context, accountID uuid.UUID) ([]models.SyncRun, error) {
	var runs []models.SyncRun
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status IN ?", accountID, []models.RunStatus{
			models.RunStatusPending,
			models.RunStatusRunning,
		}).
		Find(&runs).Error
	return runs, err
}

// CreateLog creates a run log entry
func (r *SyncRepository) CreateLog(ctx context.Context, log *models.SyncRunLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// GetRunLogs retrieves logs for a sync run
func (r *SyncRepository) GetRunLogs(ctx context.Context, runID uuid.UUID, opts LogListOptions) ([]models.SyncRunLog, error) {
	var logs []models.SyncRunLog
	query := r.db.WithContext(ctx).
		Where("run_id = ?", runID)

	if opts.Level != "" {
		query = query.Where("level = ?", opts.Level)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	err := query.Order("created_at DESC").Find(&logs).Error
	return logs, err
}

// GetRunStats retrieves run statistics, optionally scoped to one account
func (r *SyncRepository) GetRunStats(ctx context.Context, accountID *uuid.UUID) (*RunStats, error) {
	stats := &RunStats{}

	query := r.db.WithContext(ctx).Model(&models.SyncRun{})
	if accountID != nil {
		query = query.Where("account_id = ?", *accountID)
	}

	// Total runs
	if err := query.Count(&stats.TotalRuns).Error; err != nil {
		return nil, err
	}

	// Runs by status
	var statusCounts []struct {
		Status string
		Count  int64
	}
	statusQuery := r.db.WithContext(ctx).Model(&models.SyncRun{}).
		Select("status, count(*) as count")
	if accountID != nil {
		statusQuery = statusQuery.Where("account_id = ?", *accountID)
	}
	if err := statusQuery.Group("status").Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch models.RunStatus(sc.Status) {
		case models.RunStatusCompleted:
			stats.CompletedRuns = sc.Count
		case models.RunStatusFailed:
			stats.FailedRuns = sc.Count
		case models.RunStatusRunning:
			stats.RunningRuns = sc.Count
		}
	}

	// Last completed run
	var lastRun models.SyncRun
	lastQuery := r.db.WithContext(ctx).
		Where("status = ?", models.RunStatusCompleted)
	if accountID != nil {
		lastQuery = lastQuery.Where("account_id = ?", *accountID)
	}
	if err := lastQuery.Order("completed_at DESC").First(&lastRun).Error; err == nil && lastRun.CompletedAt != nil {
		stats.LastRunAt = lastRun.CompletedAt
	}

	return stats, nil
}

// RunListOptions contains options for listing sync runs
type RunListOptions struct {
	AccountID uuid.UUID
	Channel   string
	Status    string
	SyncType  string
	Limit     int
	Offset    int
}

// LogListOptions contains options for listing logs
type LogListOptions struct {
	Level  string
	Limit  int
	Offset int
}

// RunStats contains sync run statistics
type RunStats struct {
	TotalRuns     int64      `json:"totalRuns"`
	CompletedRuns int64      `json:"completedRuns"`
	FailedRuns    int64      `json:"failedRuns"`
	RunningRuns   int64      `json:"runningRuns"`
	LastRunAt     *time.Time `json:"lastRunAt,omitempty"`
}
