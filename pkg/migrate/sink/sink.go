// Package sink writes migrated rows into the destination bronze schema.
package sink

import (
	"context"
	"errors"

	"github.com/baderkha/fb-bronze/pkg/migrate/table"
)

var (
	// ErrSinkUnavailable : the destination could not be reached or a statement failed
	ErrSinkUnavailable = errors.New("sink unavailable")
	// ErrBulkAppendFailed : a whole page could not be bulk loaded, nothing of it was committed
	ErrBulkAppendFailed = errors.New("bulk append failed")
	// ErrRowAppendFailed : a single row could not be inserted
	ErrRowAppendFailed = errors.New("row append failed")
)

// Sink : destination of a table migration. Every column is stored as text.
type Sink interface {
	// EnsureSchema creates the target schema if it is missing
	EnsureSchema(ctx context.Context) error
	// EnsureTable creates the table with every column typed as text, a no-op when it exists
	EnsureTable(ctx context.Context, desc table.Descriptor) error
	// CurrentRowCount returns how many rows the destination table holds
	CurrentRowCount(ctx context.Context, tableName string) (int, error)
	// AppendBulk loads all rows in one unit of work, on failure none of them are kept
	AppendBulk(ctx context.Context, desc table.Descriptor, rows []table.Row) error
	// AppendRow loads exactly one row in its own unit of work
	AppendRow(ctx context.Context, desc table.Descriptor, row table.Row) error
}
