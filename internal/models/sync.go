package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncType represents the type of data being synchronized
type SyncType string

const (
	SyncTypeFull      SyncType = "FULL"
	SyncTypeOrders    SyncType = "ORDERS"
	SyncTypeInventory SyncType = "INVENTORY"
)

// RunStatus represents the status of a sync run
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// TriggerType represents what triggered the sync run
type TriggerType string

const (
	TriggerManual    TriggerType = "MANUAL"
	TriggerScheduled TriggerType = "SCHEDULED"
)

// RunCounts tracks the result counts of a sync run
type RunCounts struct {
	RecordsFetched      int `json:"recordsFetched"`
	RowsStaged          int `json:"rowsStaged"`
	RowsInserted        int `json:"rowsInserted"`
	RowsUpdated         int `json:"rowsUpdated"`
	RowsSkipped         int `json:"rowsSkipped"`
	UnmappedSKUs        int `json:"unmappedSkus"`
	PagesProcessed      int `json:"pagesProcessed"`
	SubWindowsProcessed int `json:"subWindowsProcessed"`
}

// SyncRun represents one invocation of the synchronization pipeline
type SyncRun struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index:idx_sync_runs_account" json:"accountId"`

	Channel  ChannelType `gorm:"type:varchar(50);not null" json:"channel"`
	SyncType SyncType    `gorm:"type:varchar(50);not null" json:"syncType"`

	Status RunStatus `gorm:"type:varchar(50);not null;default:'PENDING';index:idx_sync_runs_status" json:"status"`

	// Extraction window
	LookbackDays int       `gorm:"default:30" json:"lookbackDays"`
	WindowStart  time.Time `json:"windowStart"`
	WindowEnd    time.Time `json:"windowEnd"`
	FullResync   bool      `gorm:"default:false" json:"fullResync"`

	// Staging area token for this run; staging table names derive from it
	StagingToken string `gorm:"type:varchar(100)" json:"stagingToken,omitempty"`

	// Result counts
	Counts JSONB `gorm:"type:jsonb;default:'{}'" json:"counts"`

	// Timing
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Error tracking
	ErrorMessage string `gorm:"type:text" json:"errorMessage,omitempty"`
	ErrorDetails JSONB  `gorm:"type:jsonb" json:"errorDetails,omitempty"`

	// Audit
	TriggeredBy TriggerType `gorm:"type:varchar(50)" json:"triggeredBy,omitempty"`
	CreatedBy   string      `gorm:"type:varchar(255)" json:"createdBy,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	// Relationships
	Account *ChannelAccount `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Logs    []SyncRunLog    `gorm:"foreignKey:RunID" json:"logs,omitempty"`
}

// TableName specifies the table name for SyncRun
func (SyncRun) TableName() string {
	return "sync_runs"
}

// GetCounts returns the run counts as a structured object
func (r *SyncRun) GetCounts() *RunCounts {
	counts := &RunCounts{}
	if r.Counts != nil {
		if v, ok := r.Counts["recordsFetched"].(float64); ok {
			counts.RecordsFetched = int(v)
		}
		if v, ok := r.Counts["rowsStaged"].(float64); ok {
			counts.RowsStaged = int(v)
		}
		if v, ok := r.Counts["rowsInserted"].(float64); ok {
			counts.RowsInserted = int(v)
		}
		if v, ok := r.Counts["rowsUpdated"].(float64); ok {
			counts.RowsUpdated = int(v)
		}
		if v, ok := r.Counts["rowsSkipped"].(float64); ok {
			counts.RowsSkipped = int(v)
		}
		if v, ok := r.Counts["unmappedSkus"].(float64); ok {
			counts.UnmappedSKUs = int(v)
		}
		if v, ok := r.Counts["pagesProcessed"].(float64); ok {
			counts.PagesProcessed = int(v)
		}
		if v, ok := r.Counts["subWindowsProcessed"].(float64); ok {
			counts.SubWindowsProcessed = int(v)
		}
	}
	return counts
}

// SetCounts sets the run counts from a structured object
func (r *SyncRun) SetCounts(counts *RunCounts) {
	r.Counts = JSONB{
		"recordsFetched":      counts.RecordsFetched,
		"rowsStaged":          counts.RowsStaged,
		"rowsInserted":        counts.RowsInserted,
		"rowsUpdated":         counts.RowsUpdated,
		"rowsSkipped":         counts.RowsSkipped,
		"unmappedSkus":        counts.UnmappedSKUs,
		"pagesProcessed":      counts.PagesProcessed,
		"subWindowsProcessed": counts.SubWindowsProcessed,
	}
}

// LogLevel represents the severity level of a run log entry
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// SyncRunLog represents a log entry for a sync run
type SyncRunLog struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RunID uuid.UUID `gorm:"type:uuid;not null;index:idx_sync_run_logs_run" json:"runId"`

	Level   LogLevel `gorm:"type:varchar(20);not null;default:'info';index:idx_sync_run_logs_level" json:"level"`
	Message string   `gorm:"type:text;not null" json:"message"`
	Data    JSONB    `gorm:"type:jsonb;default:'{}'" json:"data,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName specifies the table name for SyncRunLog
func (SyncRunLog) TableName() string {
	return "sync_run_logs"
}
