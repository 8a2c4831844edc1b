package migrate

import (
	"errors"

	"github.com/baderkha/fb-bronze/pkg/migrate/sink"
	"github.com/baderkha/fb-bronze/pkg/migrate/table"
)

// failure kinds, match with errors.Is
var (
	ErrSourceUnavailable = table.ErrSourceUnavailable
	ErrSchemaProbeFailed = table.ErrSchemaProbeFailed
	ErrSinkUnavailable   = sink.ErrSinkUnavailable
	ErrBulkAppendFailed  = sink.ErrBulkAppendFailed
	ErrRowAppendFailed   = sink.ErrRowAppendFailed
	// ErrTableMigrationFailed : a table could not be migrated, the run moved on to the next one
	ErrTableMigrationFailed = errors.New("table migration failed")
)
