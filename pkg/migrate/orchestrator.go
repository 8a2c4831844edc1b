package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/baderkha/fb-bronze/pkg/migrate/sink"
	"github.com/baderkha/fb-bronze/pkg/migrate/state"
	"github.com/baderkha/fb-bronze/pkg/migrate/table"
)

// Archiver : ships the rejected rows of a run somewhere durable
type Archiver interface {
	Upload(ctx context.Context, runID string) error
}

// Options : orchestrator knobs, zero values are usable
type Options struct {
	BlockSize      int
	MaxConcurrency int
	Ledger         state.Manager
	Rejects        Rejecter
	Archive        Archiver
	Observer       Observer
}

// Summary : what a run did
type Summary struct {
	RunID     string         `json:"run_id"`
	Available []string       `json:"available"`
	Requested []string       `json:"requested"`
	Selected  []string       `json:"selected"`
	Missing   []string       `json:"missing"`
	Tables    []*TableResult `json:"tables"`
	StartedAt time.Time      `json:"started_at"`
	Elapsed   time.Duration  `json:"elapsed"`
}

// Failed : results of the tables that did not finish
func (s *Summary) Failed() []*TableResult {
	var res []*TableResult
	for _, t := range s.Tables {
		if t.Failed() {
			res = append(res, t)
		}
	}
	return res
}

func (s *Summary) RowsLoaded() int {
	var n int
	for _, t := range s.Tables {
		n += t.RowsLoaded
	}
	return n
}

func (s *Summary) RowsRejected() int {
	var n int
	for _, t := range s.Tables {
		n += t.RowsRejected
	}
	return n
}

// Orchestrator : runs the chunked migrator over the requested tables that exist at the source
type Orchestrator struct {
	source table.Source
	target sink.Sink
	opts   Options
	log    zerolog.Logger
}

func NewOrchestrator(src table.Source, dst sink.Sink, log zerolog.Logger, opts Options) *Orchestrator {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	if opts.Observer == nil {
		opts.Observer = NewLogObserver(log)
	}
	return &Orchestrator{
		source: src,
		target: dst,
		opts:   opts,
		log:    log,
	}
}

func newRunID() (string, error) {
	uid, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return uid.String(), nil
}

// Run : migrates every requested table found at the source, in requested order.
// Table failures are collected, the returned error wraps ErrTableMigrationFailed for each of them.
func (o *Orchestrator) Run(ctx context.Context, requested []string) (*Summary, error) {
	runID, err := newRunID()
	if err != nil {
		return nil, err
	}
	return o.run(ctx, runID, requested)
}

// Recover : reruns the tables that failed or were aborted in runID under a new run
func (o *Orchestrator) Recover(ctx context.Context, runID string) (*Summary, error) {
	if o.opts.Ledger == nil {
		return nil, fmt.Errorf("recover %s : no state ledger configured", runID)
	}
	run, err := o.opts.Ledger.GetRunLog(runID)
	if err != nil {
		return nil, fmt.Errorf("recover %s : %w", runID, err)
	}
	failed, err := o.opts.Ledger.DidTableFailForRun(runID)
	if err != nil {
		return nil, fmt.Errorf("recover %s : %w", runID, err)
	}
	if !failed && run.Status == state.Success {
		o.log.Info().Str("run_id", runID).Msg("nothing to recover")
		return &Summary{RunID: runID, StartedAt: time.Now()}, nil
	}
	logs, err := o.opts.Ledger.GetTableRunLogs(runID)
	if err != nil {
		return nil, fmt.Errorf("recover %s : %w", runID, err)
	}
	var tables []string
	for _, l := range logs {
		if l.Status == state.Failed || l.Status == state.Aborted {
			tables = append(tables, l.TableName)
		}
	}
	if len(tables) == 0 {
		o.log.Info().Str("run_id", runID).Msg("nothing to recover")
		return &Summary{RunID: runID, StartedAt: time.Now()}, nil
	}
	o.log.Info().Str("run_id", runID).Strs("tables", tables).Msg("recovering tables")
	return o.Run(ctx, tables)
}

func (o *Orchestrator) run(ctx context.Context, runID string, requested []string) (*Summary, error) {
	sum := &Summary{RunID: runID, Requested: requested, StartedAt: time.Now()}
	defer func() { sum.Elapsed = time.Since(sum.StartedAt) }()
	log := o.log.With().Str("run_id", runID).Logger()

	if err := o.target.EnsureSchema(ctx); err != nil {
		return sum, err
	}
	available, err := o.source.Tables(ctx)
	if err != nil {
		return sum, err
	}
	sum.Available = available
	sum.Selected = table.Intersect(requested, available)
	sum.Missing = missing(requested, available)
	log.Info().Strs("tables", available).Msg("tables available at source")
	log.Info().Strs("tables", sum.Selected).Msg("tables to load")
	if len(sum.Missing) > 0 {
		log.Info().Strs("tables", sum.Missing).Msg("requested tables not found at source, skipping")
	}
	for _, d := range duplicates(sum.Selected) {
		log.Warn().Str("table", d).Msg("table requested more than once, it will be processed once per occurrence")
	}

	o.ledger(log, "init run log", func(l state.Manager) error {
		return l.InitRunLog(runID, len(sum.Selected))
	})

	sum.Tables = make([]*TableResult, len(sum.Selected))
	if o.opts.MaxConcurrency <= 1 {
		for i, name := range sum.Selected {
			sum.Tables[i] = o.migrateTable(ctx, log, runID, name)
		}
	} else {
		o.runGrouped(ctx, log, runID, sum)
	}

	var finalErr error
	for _, res := range sum.Tables {
		if res.Failed() {
			finalErr = multierror.Append(finalErr, fmt.Errorf("%w : %s : %w", ErrTableMigrationFailed, res.Table, res.Err))
		}
	}

	if o.opts.Archive != nil && sum.RowsRejected() > 0 {
		if err := o.opts.Archive.Upload(ctx, runID); err != nil {
			log.Error().Err(err).Msg("could not upload rejected rows")
			finalErr = multierror.Append(finalErr, err)
		}
	}

	switch {
	case ctx.Err() != nil:
		o.ledger(log, "abort run log", func(l state.Manager) error { return l.OnShutDownEv() })
	case finalErr != nil:
		o.ledger(log, "fail run log", func(l state.Manager) error { return l.FailedRunLog(runID, finalErr) })
	default:
		o.ledger(log, "pass run log", func(l state.Manager) error { return l.PassedRunLog(runID) })
	}

	log.Info().
		Int("tables", len(sum.Tables)).
		Int("failed", len(sum.Failed())).
		Int("rows_loaded", sum.RowsLoaded()).
		Int("rows_rejected", sum.RowsRejected()).
		Dur("elapsed", time.Since(sum.StartedAt)).
		Msg("run finished")
	return sum, finalErr
}

// runGrouped : distinct tables in parallel, every occurrence of one name on the same worker
func (o *Orchestrator) runGrouped(ctx context.Context, log zerolog.Logger, runID string, sum *Summary) {
	var (
		order  []string
		groups = map[string][]int{}
	)
	for i, name := range sum.Selected {
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], i)
	}

	var g errgroup.Group
	g.SetLimit(o.opts.MaxConcurrency)
	for _, name := range order {
		name, idx := name, groups[name]
		g.Go(func() error {
			for _, i := range idx {
				sum.Tables[i] = o.migrateTable(ctx, log, runID, name)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) migrateTable(ctx context.Context, log zerolog.Logger, runID string, name string) *TableResult {
	if err := ctx.Err(); err != nil {
		return &TableResult{Table: name, Phase: PhaseInit, Err: err}
	}
	o.ledger(log, "init table run log", func(l state.Manager) error { return l.InitTableRunLog(runID, name) })

	m := NewChunkedMigrator(o.source, o.target, o.log).
		WithRejecter(o.opts.Rejects).
		WithObserver(o.opts.Observer)
	if o.opts.Ledger != nil {
		m = m.WithLedger(o.opts.Ledger)
	}
	res, err := m.Migrate(ctx, TableJob{RunID: runID, Table: name, BlockSize: o.opts.BlockSize})
	switch {
	case err == nil:
		log.Info().Str("table", name).Int("rows", res.RowsLoaded).Msgf("%s : migrated", name)
		o.ledger(log, "pass table run log", func(l state.Manager) error { return l.PassedTableRun(runID, name, res.RowsLoaded) })
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// left STARTED, the shutdown marks it aborted
		log.Warn().Str("table", name).Int("offset", res.Offset).Msgf("%s : interrupted", name)
	default:
		log.Error().Err(err).Str("table", name).Msgf("%s : migration failed", name)
		o.ledger(log, "fail table run log", func(l state.Manager) error { return l.FailedTableRun(runID, name, err) })
	}
	return res
}

// ledger : ledger writes never fail the run
func (o *Orchestrator) ledger(log zerolog.Logger, what string, fn func(l state.Manager) error) {
	if o.opts.Ledger == nil {
		return
	}
	if err := fn(o.opts.Ledger); err != nil {
		log.Warn().Err(err).Msgf("state ledger : %s", what)
	}
}

func missing(requested []string, available []string) []string {
	exists := make(map[string]struct{}, len(available))
	for _, v := range available {
		exists[v] = struct{}{}
	}
	var res []string
	for _, v := range requested {
		if _, ok := exists[v]; !ok {
			res = append(res, v)
		}
	}
	return res
}

func duplicates(names []string) []string {
	seen := map[string]int{}
	var res []string
	for _, v := range names {
		seen[v]++
		if seen[v] == 2 {
			res = append(res, v)
		}
	}
	return res
}
