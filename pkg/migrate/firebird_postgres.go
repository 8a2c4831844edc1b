package migrate

import (
	"context"
	"database/sql"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/baderkha/fb-bronze/pkg/migrate/config"
	"github.com/baderkha/fb-bronze/pkg/migrate/connection"
	"github.com/baderkha/fb-bronze/pkg/migrate/reject"
	"github.com/baderkha/fb-bronze/pkg/migrate/sink"
	"github.com/baderkha/fb-bronze/pkg/migrate/state"
	"github.com/baderkha/fb-bronze/pkg/migrate/table"
)

const defaultRejectPrefix = "bronze-rejects"

var _ Runner = (*FirebirdToPostgres)(nil)

// FirebirdToPostgres : firebird tables into the postgres bronze schema
type FirebirdToPostgres struct {
	cfg          *config.Job
	source       *sql.DB
	target       *pgxpool.Pool
	stateManager *state.GormManager
	rejects      *reject.Store
	orchestrator *Orchestrator
	log          zerolog.Logger
}

// NewFirebirdToPostgres : dials both sides, opens the state ledger and wires the orchestrator
func NewFirebirdToPostgres(ctx context.Context, cfg *config.Job, fs afero.Fs, log zerolog.Logger) (*FirebirdToPostgres, error) {
	m := &FirebirdToPostgres{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			m.CleanUp()
		}
	}()

	var err error
	m.source, err = connection.DialFirebird(ctx, &cfg.SourceConfig, log)
	if err != nil {
		return nil, err
	}
	m.target, err = connection.DialPostgres(ctx, &cfg.Target, log)
	if err != nil {
		return nil, err
	}
	m.stateManager, err = state.NewSqliteGormManager(cfg.StatePath)
	if err != nil {
		return nil, err
	}
	m.rejects, err = newRejectStore(fs, cfg)
	if err != nil {
		return nil, err
	}

	src, err := table.NewSourceFirebird(m.source, cfg.SourceConfig.Charset)
	if err != nil {
		return nil, err
	}
	m.orchestrator = NewOrchestrator(
		src,
		sink.NewPostgres(m.target, cfg.Target.Schema, log),
		log,
		Options{
			BlockSize:      cfg.BatchRecordSize,
			MaxConcurrency: cfg.MaxConcurrency,
			Ledger:         m.stateManager,
			Rejects:        m.rejects,
			Archive:        m.rejects,
			Observer:       NewLogObserver(log),
		},
	)
	ok = true
	return m, nil
}

func newRejectStore(fs afero.Fs, cfg *config.Job) (*reject.Store, error) {
	store := reject.NewStore(fs, cfg.RejectDir)
	archive := cfg.RejectArchive
	if archive.Bucket == "" {
		return store, nil
	}
	awsCfg := aws.NewConfig()
	if archive.Region != "" {
		awsCfg = awsCfg.WithRegion(archive.Region)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, err
	}
	prefix := archive.PrefixOverride
	if prefix == "" {
		prefix = defaultRejectPrefix
	}
	return store.WithS3(s3.New(sess), archive.Bucket, prefix, archive.MaxRetry), nil
}

// Run : every table of the configured list, in list order
func (m *FirebirdToPostgres) Run(ctx context.Context) (*Summary, error) {
	return m.orchestrator.Run(ctx, m.cfg.SourceConfig.TableList)
}

func (m *FirebirdToPostgres) Recover(ctx context.Context, runID string) (*Summary, error) {
	return m.orchestrator.Recover(ctx, runID)
}

func (m *FirebirdToPostgres) GetStateManager() state.Manager {
	return m.stateManager
}

func (m *FirebirdToPostgres) CleanUp() {
	if m.source != nil {
		_ = m.source.Close()
	}
	if m.target != nil {
		m.target.Close()
	}
	if m.stateManager != nil {
		_ = m.stateManager.Close()
	}
}
