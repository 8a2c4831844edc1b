package state

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *GormManager {
	t.Helper()
	m, err := NewSqliteGormManager(filepath.Join(t.TempDir(), "state.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestGetLastRunEmpty(t *testing.T) {
	m := newTestManager(t)

	run, err := m.GetLastRun()

	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestRunLifecycle(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.InitRunLog("run-1", 2))
	require.NoError(t, m.InitTableRunLog("run-1", "FC01000"))
	require.NoError(t, m.PassedTableRun("run-1", "FC01000", 120))
	require.NoError(t, m.InitTableRunLog("run-1", "FC02000"))
	require.NoError(t, m.FailedTableRun("run-1", "FC02000", errors.New("boom")))

	failed, err := m.DidTableFailForRun("run-1")
	require.NoError(t, err)
	assert.True(t, failed)

	require.NoError(t, m.FailedRunLog("run-1", errors.New("1 table failed")))

	run, err := m.GetRunLog("run-1")
	require.NoError(t, err)
	assert.Equal(t, Failed, run.Status)
	assert.Equal(t, "1 table failed", run.ErrMsg)
	assert.Equal(t, 2, run.TotalTablesForThisRun)

	logs, err := m.GetTableRunLogs("run-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "FC01000", logs[0].TableName)
	assert.Equal(t, Success, logs[0].Status)
	assert.Equal(t, 120, logs[0].RowWritten)
	assert.Equal(t, Failed, logs[1].Status)
	assert.Equal(t, "boom", logs[1].ErrMsg)
}

func TestDuplicateTableOccurrencesAreTrackedSeparately(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.InitRunLog("run-1", 2))

	require.NoError(t, m.InitTableRunLog("run-1", "FC03100"))
	require.NoError(t, m.PassedTableRun("run-1", "FC03100", 50))
	require.NoError(t, m.InitTableRunLog("run-1", "FC03100"))
	require.NoError(t, m.PassedTableRun("run-1", "FC03100", 0))

	logs, err := m.GetTableRunLogs("run-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, 50, logs[0].RowWritten)
	assert.Equal(t, 0, logs[1].RowWritten)
	assert.Equal(t, Success, logs[1].Status)
}

func TestOnShutDownEvAbortsStartedRun(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.InitRunLog("run-1", 1))
	require.NoError(t, m.InitTableRunLog("run-1", "FC01000"))

	require.NoError(t, m.OnShutDownEv())

	run, err := m.GetLastRun()
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, Aborted, run.Status)

	logs, err := m.GetTableRunLogs("run-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, Aborted, logs[0].Status)
}

func TestOnShutDownEvLeavesFinishedRunAlone(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.InitRunLog("run-1", 0))
	require.NoError(t, m.PassedRunLog("run-1"))

	require.NoError(t, m.OnShutDownEv())

	run, err := m.GetRunLog("run-1")
	require.NoError(t, err)
	assert.Equal(t, Success, run.Status)
}

func TestOffsetLedger(t *testing.T) {
	m := newTestManager(t)

	_, ok, err := m.LastOffset("FC11000")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.CommitOffset("FC11000", 10000, "run-1"))
	require.NoError(t, m.CommitOffset("FC11000", 20000, "run-1"))
	require.NoError(t, m.CommitOffset("FC11100", 5, "run-1"))

	off, ok, err := m.LastOffset("FC11000")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 20000, off)

	off, ok, err = m.LastOffset("FC11100")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, off)
}
