package table

import (
	"context"
	"errors"
)

var (
	// ErrSourceUnavailable : the source could not be reached or the query failed on the wire
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSchemaProbeFailed : column metadata could not be derived for a table
	ErrSchemaProbeFailed = errors.New("schema probe failed")
)

// Descriptor : a table name plus its ordered column names.
// Column order is the positional mapping between source rows and destination columns.
type Descriptor struct {
	Name    string
	Columns []string
}

// Row : ordered column values, each a driver scalar or nil for NULL
type Row []any

// Page : rows read from one contiguous row number range of the source
type Page []Row

// Source : reads tables out of the origin database
type Source interface {
	// Tables lists the non system tables available at the source
	Tables(ctx context.Context) ([]string, error)
	// RowCount returns the number of rows currently in the table
	RowCount(ctx context.Context, table string) (int, error)
	// Columns probes one row of the table and returns its trimmed column names
	Columns(ctx context.Context, table string) ([]string, error)
	// ReadPage returns rows numbered offset+1 .. offset+size (1 based, inclusive).
	// An empty page means the table is exhausted.
	ReadPage(ctx context.Context, table string, offset int, size int) (Page, error)
}

// Intersect : keeps the requested names that exist in available, in requested order.
// Duplicates in requested are kept.
func Intersect(requested []string, available []string) []string {
	exists := make(map[string]struct{}, len(available))
	for _, v := range available {
		exists[v] = struct{}{}
	}
	res := make([]string, 0, len(requested))
	for _, v := range requested {
		if _, ok := exists[v]; ok {
			res = append(res, v)
		}
	}
	return res
}
