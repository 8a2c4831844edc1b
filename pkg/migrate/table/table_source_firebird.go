package table

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/baderkha/fb-bronze/pkg/migrate/table/colmap"
)

const listTablesQuery = `SELECT RDB$RELATION_NAME FROM RDB$RELATIONS WHERE RDB$SYSTEM_FLAG = 0`

// NewSourceFirebird : row source over a pooled firebird connection.
// charset is the connection charset, text blobs arrive in it undecoded.
func NewSourceFirebird(db *sql.DB, charset string) (Source, error) {
	dec, err := colmap.NewTextDecoder(charset)
	if err != nil {
		return nil, err
	}
	return &SourceFirebird{
		source: db,
		text:   dec,
	}, nil
}

// SourceFirebird : Source backed by database/sql and the firebirdsql driver.
// Connections come from the *sql.DB pool, no cursor is held across pages.
type SourceFirebird struct {
	source *sql.DB
	text   *colmap.TextDecoder
}

// QuoteIdent : quotes a firebird identifier so catalog names are matched exactly
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// PageQuery : select for rows offset+1 .. offset+size using the firebird ROWS clause
func PageQuery(table string, offset int, size int) string {
	return fmt.Sprintf("SELECT * FROM %s ROWS %d TO %d", QuoteIdent(table), offset+1, offset+size)
}

func (f *SourceFirebird) Tables(ctx context.Context) ([]string, error) {
	rows, err := f.source.QueryContext(ctx, listTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("%w : listing tables : %w", ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w : listing tables : %w", ErrSourceUnavailable, err)
		}
		res = append(res, strings.TrimSpace(name))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w : listing tables : %w", ErrSourceUnavailable, err)
	}
	return res, nil
}

func (f *SourceFirebird) RowCount(ctx context.Context, table string) (int, error) {
	var total int64
	err := f.source.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+QuoteIdent(table)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%w : counting %s : %w", ErrSourceUnavailable, table, err)
	}
	return int(total), nil
}

func (f *SourceFirebird) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := f.source.QueryContext(ctx, PageQuery(table, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("%w : probing %s : %w", ErrSourceUnavailable, table, err)
	}
	defer rows.Close()

	// the statement is described even when the table has no rows
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w : %s : %w", ErrSchemaProbeFailed, table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w : %s : no columns described", ErrSchemaProbeFailed, table)
	}
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols, nil
}

func (f *SourceFirebird) ReadPage(ctx context.Context, table string, offset int, size int) (Page, error) {
	rows, err := f.source.QueryContext(ctx, PageQuery(table, offset, size))
	if err != nil {
		return nil, fmt.Errorf("%w : reading %s at offset %d : %w", ErrSourceUnavailable, table, offset, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("%w : %s : %w", ErrSchemaProbeFailed, table, err)
	}
	kinds := make([]columnKind, len(types))
	for i, ct := range types {
		kinds[i] = kindOf(ct.DatabaseTypeName())
	}

	page := make(Page, 0, pageCapacity(size))
	for rows.Next() {
		var (
			values = make([]any, len(kinds))
			dest   = make([]any, len(kinds))
		)
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%w : scanning %s at offset %d : %w", ErrSourceUnavailable, table, offset, err)
		}
		for i, v := range values {
			values[i] = f.normalize(kinds[i], v)
		}
		page = append(page, Row(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w : reading %s at offset %d : %w", ErrSourceUnavailable, table, offset, err)
	}
	return page, nil
}

// maxPagePrealloc : rows reserved up front, larger pages grow through append
const maxPagePrealloc = 1024

func pageCapacity(size int) int {
	if size > maxPagePrealloc {
		return maxPagePrealloc
	}
	return size
}

// columnKind : how a scanned value of the column is brought to its bronze form
type columnKind int

const (
	kindOther columnKind = iota
	kindText
	kindBlob
	kindDate
	kindTime
	kindTimeTZ
	kindTimestampTZ
)

// kindOf : keyed on the driver's database type name
func kindOf(databaseTypeName string) columnKind {
	switch strings.ToUpper(databaseTypeName) {
	case "TEXT", "VARYING", "CHAR", "VARCHAR":
		return kindText
	case "BLOB":
		return kindBlob
	case "DATE":
		return kindDate
	case "TIME":
		return kindTime
	case "TIME WITH TIMEZONE", "TIME WITH TIME ZONE":
		return kindTimeTZ
	case "TIMESTAMP WITH TIMEZONE", "TIMESTAMP WITH TIME ZONE":
		return kindTimestampTZ
	default:
		return kindOther
	}
}

// normalize : CHAR/VARCHAR come back as utf-8 bytes and text blobs as a string
// still in the connection charset, both end up as utf-8 strings.
// Binary blobs stay []byte.
func (f *SourceFirebird) normalize(kind columnKind, v any) any {
	switch kind {
	case kindText:
		if b, ok := v.([]byte); ok {
			return string(b)
		}
	case kindBlob:
		if s, ok := v.(string); ok {
			if decoded, err := f.text.Decode(s); err == nil {
				return decoded
			}
		}
	case kindDate, kindTime, kindTimeTZ, kindTimestampTZ:
		t, ok := v.(time.Time)
		if !ok {
			return v
		}
		switch kind {
		case kindDate:
			return colmap.Date(t)
		case kindTime:
			return colmap.TimeOfDay(t)
		case kindTimeTZ:
			return colmap.TimeOfDayTZ(t)
		default:
			return colmap.TimestampTZ(t)
		}
	}
	return v
}
