package sink

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/baderkha/fb-bronze/pkg/migrate/table"
	"github.com/baderkha/fb-bronze/pkg/migrate/table/colmap"
)

// NewPostgres : sink writing into schema over a pgx pool
func NewPostgres(pool *pgxpool.Pool, schema string, log zerolog.Logger) *Postgres {
	return &Postgres{
		pool:   pool,
		schema: schema,
		log:    log.With().Str("component", "sink").Str("schema", schema).Logger(),
	}
}

// Postgres : Sink for a postgres bronze schema.
// Each statement runs in its own transaction on a pooled connection.
type Postgres struct {
	pool   *pgxpool.Pool
	schema string
	log    zerolog.Logger
}

// QuoteIdent : quotes a postgres identifier
func QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func qualified(schema string, tableName string) string {
	return pgx.Identifier{schema, tableName}.Sanitize()
}

// CreateSchemaSQL : idempotent schema ddl
func CreateSchemaSQL(schema string) string {
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", QuoteIdent(schema))
}

// CreateTableSQL : idempotent ddl with every column as TEXT
func CreateTableSQL(schema string, desc table.Descriptor) string {
	defs := make([]string, len(desc.Columns))
	for i, col := range desc.Columns {
		defs[i] = QuoteIdent(col) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", qualified(schema, desc.Name), strings.Join(defs, ", "))
}

// CopySQL : bulk load statement reading csv from stdin
func CopySQL(schema string, desc table.Descriptor) string {
	return fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT csv)", qualified(schema, desc.Name), columnList(desc.Columns))
}

// InsertSQL : single row insert with one placeholder per column
func InsertSQL(schema string, desc table.Descriptor) string {
	params := make([]string, len(desc.Columns))
	for i := range desc.Columns {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", qualified(schema, desc.Name), columnList(desc.Columns), strings.Join(params, ", "))
}

func columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func (p *Postgres) exec(ctx context.Context, sql string) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, sql)
		return err
	})
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if err := p.exec(ctx, CreateSchemaSQL(p.schema)); err != nil {
		return fmt.Errorf("%w : creating schema %s : %w", ErrSinkUnavailable, p.schema, err)
	}
	return nil
}

func (p *Postgres) EnsureTable(ctx context.Context, desc table.Descriptor) error {
	if err := p.exec(ctx, CreateTableSQL(p.schema, desc)); err != nil {
		return fmt.Errorf("%w : creating table %s.%s : %w", ErrSinkUnavailable, p.schema, desc.Name, err)
	}
	p.log.Debug().Str("table", desc.Name).Int("columns", len(desc.Columns)).Msg("table ensured")
	return nil
}

func (p *Postgres) CurrentRowCount(ctx context.Context, tableName string) (int, error) {
	var count int64
	err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+qualified(p.schema, tableName)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w : counting %s.%s : %w", ErrSinkUnavailable, p.schema, tableName, err)
	}
	return int(count), nil
}

func (p *Postgres) AppendBulk(ctx context.Context, desc table.Descriptor, rows []table.Row) error {
	payload, err := EncodeCSV(len(desc.Columns), rows)
	if err != nil {
		return fmt.Errorf("%w : encoding %s : %w", ErrBulkAppendFailed, desc.Name, err)
	}
	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		tag, err := tx.Conn().PgConn().CopyFrom(ctx, bytes.NewReader(payload), CopySQL(p.schema, desc))
		if err != nil {
			return err
		}
		if tag.RowsAffected() != int64(len(rows)) {
			return fmt.Errorf("copied %d rows, expected %d", tag.RowsAffected(), len(rows))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w : %s.%s : %w", ErrBulkAppendFailed, p.schema, desc.Name, err)
	}
	p.log.Debug().Str("table", desc.Name).Int("rows", len(rows)).Int("bytes", len(payload)).Msg("copied")
	return nil
}

func (p *Postgres) AppendRow(ctx context.Context, desc table.Descriptor, row table.Row) error {
	if len(row) != len(desc.Columns) {
		return fmt.Errorf("%w : %s : row has %d values, expected %d", ErrRowAppendFailed, desc.Name, len(row), len(desc.Columns))
	}
	values, err := colmap.ConvertRow(colmap.FirebirdToText, colmap.Sanitize(row))
	if err != nil {
		return fmt.Errorf("%w : %s : %w", ErrRowAppendFailed, desc.Name, err)
	}
	args := make([]any, len(values))
	for i, v := range values {
		if v != nil {
			args[i] = *v
		}
	}
	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, InsertSQL(p.schema, desc), args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w : %s.%s : %w", ErrRowAppendFailed, p.schema, desc.Name, err)
	}
	return nil
}
