package state

import "time"

type RunLogState string

const (
	Started RunLogState = "STARTED"
	Success RunLogState = "SUCCESS"
	Aborted RunLogState = "ABORTED"
	Failed  RunLogState = "FAILED"
)

type Base struct {
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

type RunLog struct {
	RunID                 string      `json:"run_id" db:"run_id" gorm:"primaryKey;type:varchar(36)"`
	TotalTablesForThisRun int         `json:"total_tables_for_run" db:"total_tables_for_run"`
	Status                RunLogState `json:"status" db:"status" gorm:"type:varchar(50)"`
	ErrMsg                string      `json:"err_msg" db:"err_msg"`
	Base
}

type TableRunLog struct {
	ID          uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	ParentRunID string      `json:"parent_run_id" db:"parent_run_id" gorm:"type:varchar(36);index"`
	TableName   string      `json:"table_name" db:"table_name" gorm:"type:varchar(255)"`
	RowWritten  int         `json:"rows_written_target" db:"rows_written_target"`
	Status      RunLogState `json:"status" db:"status" gorm:"type:varchar(50)"`
	ErrMsg      string      `json:"err_msg" db:"err_msg"`
	Base
}

// TableOffset : last committed offset of a table, one row per table name
type TableOffset struct {
	TableName string `json:"table_name" db:"table_name" gorm:"primaryKey;type:varchar(255)"`
	Offset    int    `json:"offset" db:"row_offset" gorm:"column:row_offset"`
	RunID     string `json:"run_id" db:"run_id" gorm:"type:varchar(36)"`
	Base
}

// OffsetLedger : explicit record of how far each table got
type OffsetLedger interface {
	CommitOffset(tableName string, offset int, runID string) error
	// LastOffset returns false when the table was never committed
	LastOffset(tableName string) (int, bool, error)
}

type Manager interface {
	OffsetLedger
	// This should sort by most recent first
	GetLastRun() (*RunLog, error)
	// GetRunLog : GetRunLog get a specific run log
	GetRunLog(runID string) (*RunLog, error)
	GetTableRunLogs(runID string) ([]*TableRunLog, error)
	// InitRunLog : start a run log
	InitRunLog(runID string, totalTableCount int) error
	FailedRunLog(runID string, err error) error
	PassedRunLog(runID string) error
	InitTableRunLog(runID string, tableName string) error
	FailedTableRun(runID string, tableName string, err error) error
	PassedTableRun(runID string, tableName string, rowsWritten int) error
	DidTableFailForRun(runID string) (bool, error)
	// OnShutDownEv : moves a started run to aborted
	OnShutDownEv() error
}
