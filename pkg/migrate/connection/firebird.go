package connection

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/nakagami/firebirdsql"
	"github.com/rs/zerolog"

	"github.com/baderkha/fb-bronze/pkg/migrate/config/sourcecfg"
	"github.com/baderkha/fb-bronze/pkg/migrate/table"
)

// DialFirebird : pooled firebird connection, pinged before returning
func DialFirebird(ctx context.Context, cfg *sourcecfg.Firebird, log zerolog.Logger) (*sql.DB, error) {
	dsn := cfg.GetDSN()
	sqlDB, err := sql.Open("firebirdsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w : FIREBIRD_SOURCE : Could not dial connection to firebird due to : %w", table.ErrSourceUnavailable, err)
	}
	if cfg.QueryLogging {
		sqlDB = AddLogger(sqlDB, dsn, "firebirdsql", log)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w : FIREBIRD_SOURCE : ping %s:%d failed : %w", table.ErrSourceUnavailable, cfg.Host, cfg.Port, err)
	}
	log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("connected to firebird")
	return sqlDB, nil
}
