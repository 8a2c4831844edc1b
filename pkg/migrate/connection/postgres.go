package connection

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/baderkha/fb-bronze/pkg/migrate/config/targetcfg"
	"github.com/baderkha/fb-bronze/pkg/migrate/sink"
)

// PoolConfig : pgxpool settings derived from the target config
func PoolConfig(cfg *targetcfg.Postgres, log zerolog.Logger) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, err
	}
	if cfg.PoolSize > 0 {
		poolCfg.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.QueryLogging {
		poolCfg.ConnConfig.Tracer = PgxTracer(log)
	}
	return poolCfg, nil
}

// DialPostgres : pgx pool on the target, pinged before returning
func DialPostgres(ctx context.Context, cfg *targetcfg.Postgres, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := PoolConfig(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("%w : POSTGRES_TARGET : bad config : %w", sink.ErrSinkUnavailable, err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w : POSTGRES_TARGET : Could not dial connection to postgres due to : %w", sink.ErrSinkUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w : POSTGRES_TARGET : ping %s:%d failed : %w", sink.ErrSinkUnavailable, cfg.Host, cfg.Port, err)
	}
	log.Info().Str("host", cfg.Host).Str("db", cfg.DB).Msg("connected to postgres")
	return pool, nil
}
