package state

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type GormManager struct {
	DB *gorm.DB
}

// NewSqliteGormManager : ledger stored in a sqlite file at path
func NewSqliteGormManager(path string) (*GormManager, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("Could not open state db %s : %w", path, err)
	}
	m, err := NewGormManager(db)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite takes one writer at a time, table workers share this handle
	sqlDB.SetMaxOpenConns(1)
	return m, nil
}

// NewGormManager : migrates the ledger tables on db
func NewGormManager(db *gorm.DB) (*GormManager, error) {
	if err := db.AutoMigrate(&RunLog{}, &TableRunLog{}, &TableOffset{}); err != nil {
		return nil, fmt.Errorf("Could not migrate %w", err)
	}
	return &GormManager{DB: db}, nil
}

func (m *GormManager) Close() error {
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (m *GormManager) OnShutDownEv() error {
	run, err := m.GetLastRun()
	if err != nil || run == nil || run.Status != Started {
		return err
	}
	return m.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&RunLog{}).Where("run_id = ? AND status = ?", run.RunID, Started).Updates(RunLog{
			Status: Aborted,
			Base:   Base{UpdatedAt: currentTime()},
		}).Error
		if err != nil {
			return err
		}
		return tx.Model(&TableRunLog{}).Where("parent_run_id = ? AND status = ?", run.RunID, Started).Update("status", Aborted).Error
	})
}

func (m *GormManager) GetLastRun() (*RunLog, error) {
	var lastRun RunLog
	err := m.DB.Order("created_at desc").First(&lastRun).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lastRun, nil
}

func (m *GormManager) GetRunLog(runID string) (*RunLog, error) {
	var runLog RunLog
	if err := m.DB.Where("run_id = ?", runID).First(&runLog).Error; err != nil {
		return nil, err
	}
	return &runLog, nil
}

func (m *GormManager) GetTableRunLogs(runID string) ([]*TableRunLog, error) {
	var tableRunLogs []*TableRunLog
	err := m.DB.Where("parent_run_id = ?", runID).Order("id asc").Find(&tableRunLogs).Error
	return tableRunLogs, err
}

func (m *GormManager) InitRunLog(runID string, totalTableCount int) error {
	return m.DB.Create(&RunLog{
		RunID:                 runID,
		TotalTablesForThisRun: totalTableCount,
		Status:                Started,
		Base:                  Base{CreatedAt: currentTime(), UpdatedAt: currentTime()},
	}).Error
}

func (m *GormManager) FailedRunLog(runID string, err error) error {
	return m.updateRunStatus(runID, Failed, err)
}

func (m *GormManager) PassedRunLog(runID string) error {
	return m.updateRunStatus(runID, Success, nil)
}

func (m *GormManager) InitTableRunLog(runID string, tableName string) error {
	return m.DB.Create(&TableRunLog{
		ParentRunID: runID,
		TableName:   tableName,
		Status:      Started,
		Base:        Base{CreatedAt: currentTime(), UpdatedAt: currentTime()},
	}).Error
}

func (m *GormManager) FailedTableRun(runID string, tableName string, err error) error {
	return m.updateTableRunStatus(runID, tableName, Failed, 0, err)
}

func (m *GormManager) PassedTableRun(runID string, tableName string, rowsWritten int) error {
	return m.updateTableRunStatus(runID, tableName, Success, rowsWritten, nil)
}

func (m *GormManager) DidTableFailForRun(runID string) (bool, error) {
	var failedTableRunLogs int64
	err := m.DB.Model(&TableRunLog{}).Where("parent_run_id = ? AND status = ?", runID, Failed).Count(&failedTableRunLogs).Error
	return failedTableRunLogs > 0, err
}

func (m *GormManager) CommitOffset(tableName string, offset int, runID string) error {
	return m.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "table_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"row_offset", "run_id", "updated_at"}),
	}).Create(&TableOffset{
		TableName: tableName,
		Offset:    offset,
		RunID:     runID,
		Base:      Base{CreatedAt: currentTime(), UpdatedAt: currentTime()},
	}).Error
}

func (m *GormManager) LastOffset(tableName string) (int, bool, error) {
	var off TableOffset
	err := m.DB.Where("table_name = ?", tableName).First(&off).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return off.Offset, true, nil
}

func (m *GormManager) updateRunStatus(runID string, status RunLogState, err error) error {
	var errMsg string
	if err != nil {
		errMsg = err.Error()
	}
	return m.DB.Transaction(func(tx *gorm.DB) error {
		errTx := tx.Model(&RunLog{}).Where("run_id = ?", runID).Updates(RunLog{
			Status: status,
			ErrMsg: errMsg,
			Base:   Base{UpdatedAt: currentTime()},
		}).Error
		if errTx != nil {
			return errTx
		}
		if status == Failed {
			return tx.Model(&TableRunLog{}).Where("parent_run_id = ? AND status = ?", runID, Started).Update("status", Aborted).Error
		}
		return nil
	})
}

// the started row is the current occurrence when a table is listed twice
func (m *GormManager) updateTableRunStatus(runID string, tableName string, status RunLogState, rows int, err error) error {
	var errMsg string
	if err != nil {
		errMsg = err.Error()
	}
	return m.DB.Model(&TableRunLog{}).
		Where("parent_run_id = ? AND table_name = ? AND status = ?", runID, tableName, Started).
		Updates(&TableRunLog{
			Status:     status,
			ErrMsg:     errMsg,
			RowWritten: rows,
			Base:       Base{UpdatedAt: currentTime()},
		}).Error
}

func currentTime() *time.Time {
	now := time.Now()
	return &now
}
