package migrate

import (
	"context"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"

	"github.com/baderkha/fb-bronze/pkg/migrate/config"
	"github.com/baderkha/fb-bronze/pkg/migrate/sink"
	"github.com/baderkha/fb-bronze/pkg/migrate/state"
	"github.com/baderkha/fb-bronze/pkg/migrate/table"
	"github.com/baderkha/fb-bronze/pkg/migrate/table/colmap"
)

// Phase : where a table migration is in its lifecycle
type Phase string

const (
	PhaseInit     Phase = "INIT"
	PhaseProbing  Phase = "PROBING"
	PhaseResuming Phase = "RESUMING"
	PhasePaging   Phase = "PAGING"
	PhaseDraining Phase = "DRAINING"
	PhaseDone     Phase = "DONE"
)

// Rejecter : keeps rows that could not be loaded even on their own
type Rejecter interface {
	Reject(runID string, tableName string, rowNumber int, row []any, cause error) error
}

type nopRejecter struct{}

func (nopRejecter) Reject(string, string, int, []any, error) error { return nil }

// TableJob : one table migration request
type TableJob struct {
	RunID     string
	Table     string
	BlockSize int
}

// TableResult : outcome of one table migration
type TableResult struct {
	Table         string `json:"table"`
	Phase         Phase  `json:"phase"`
	Total         int    `json:"total"`
	StartOffset   int    `json:"start_offset"`
	Offset        int    `json:"offset"`
	Pages         int    `json:"pages"`
	RowsLoaded    int    `json:"rows_loaded"`
	RowsRejected  int    `json:"rows_rejected"`
	BulkFallbacks int    `json:"bulk_fallbacks"`
	Err           error  `json:"-"`
}

// Failed : true when the table did not reach DONE
func (r *TableResult) Failed() bool {
	return r.Err != nil
}

// ChunkedMigrator : copies one table page by page, resuming from the
// destination row count
type ChunkedMigrator struct {
	source   table.Source
	target   sink.Sink
	ledger   state.OffsetLedger
	rejects  Rejecter
	observer Observer
	log      zerolog.Logger
}

func NewChunkedMigrator(src table.Source, dst sink.Sink, log zerolog.Logger) *ChunkedMigrator {
	return &ChunkedMigrator{
		source:   src,
		target:   dst,
		rejects:  nopRejecter{},
		observer: nopObserver{},
		log:      log,
	}
}

// WithLedger : commit the offset after every page
func (m *ChunkedMigrator) WithLedger(l state.OffsetLedger) *ChunkedMigrator {
	m.ledger = l
	return m
}

func (m *ChunkedMigrator) WithRejecter(r Rejecter) *ChunkedMigrator {
	if r != nil {
		m.rejects = r
	}
	return m
}

func (m *ChunkedMigrator) WithObserver(o Observer) *ChunkedMigrator {
	if o != nil {
		m.observer = o
	}
	return m
}

// Migrate : runs INIT -> PROBING -> RESUMING -> PAGING -> DRAINING -> DONE for one table.
// The result is always returned, even on error, with the phase the failure happened in.
func (m *ChunkedMigrator) Migrate(ctx context.Context, job TableJob) (*TableResult, error) {
	res := &TableResult{Table: job.Table, Phase: PhaseInit}
	if job.BlockSize <= 0 {
		job.BlockSize = config.DefaultBlockSize
	}
	log := m.log.With().Str("table", job.Table).Str("run_id", job.RunID).Logger()

	fail := func(err error) (*TableResult, error) {
		res.Err = err
		log.Error().Err(err).Str("phase", string(res.Phase)).Msg("table migration stopped")
		return res, err
	}

	res.Phase = PhaseProbing
	total, err := m.source.RowCount(ctx, job.Table)
	if err != nil {
		return fail(err)
	}
	res.Total = total
	columns, err := m.source.Columns(ctx, job.Table)
	if err != nil {
		return fail(err)
	}
	desc := table.Descriptor{Name: job.Table, Columns: columns}

	res.Phase = PhaseResuming
	if err := m.target.EnsureTable(ctx, desc); err != nil {
		return fail(err)
	}
	offset, err := m.target.CurrentRowCount(ctx, job.Table)
	if err != nil {
		return fail(err)
	}
	m.checkLedger(log, job.Table, offset)
	res.StartOffset = offset
	res.Offset = offset
	log.Info().Int("total", total).Int("offset", offset).Int("columns", len(columns)).Msg("resuming table")

	res.Phase = PhasePaging
	for offset < total {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		page, err := m.source.ReadPage(ctx, job.Table, offset, job.BlockSize)
		if err != nil {
			return fail(err)
		}
		if len(page) == 0 {
			log.Warn().Int("offset", offset).Int("total", total).Msg("source returned an empty page before reaching the snapshot count")
			break
		}
		page = sanitizePage(page)
		loaded, rejected := m.loadPage(ctx, log, job, desc, offset, page, res)
		res.Pages++
		res.RowsLoaded += loaded
		res.RowsRejected += rejected

		offset += len(page)
		res.Offset = offset
		m.commit(log, job, offset)

		remaining := total - offset
		if remaining < 0 {
			remaining = 0
		}
		m.observer.OnProgress(job.Table, len(page), remaining)
	}

	res.Phase = PhaseDraining
	m.commit(log, job, offset)
	log.Info().
		Int("pages", res.Pages).
		Int("loaded", res.RowsLoaded).
		Int("rejected", res.RowsRejected).
		Int("offset", offset).
		Msg("table migrated")

	res.Phase = PhaseDone
	return res, nil
}

// loadPage : bulk first, one row at a time when the bulk load fails.
// Returns loaded and rejected row counts.
func (m *ChunkedMigrator) loadPage(ctx context.Context, log zerolog.Logger, job TableJob, desc table.Descriptor, offset int, page table.Page, res *TableResult) (int, int) {
	err := m.target.AppendBulk(ctx, desc, page)
	if err == nil {
		return len(page), 0
	}
	res.BulkFallbacks++
	log.Warn().Err(err).Int("offset", offset).Int("rows", len(page)).Msg("bulk load failed, falling back to row inserts")

	var loaded, rejected int
	for i, row := range page {
		rowNumber := offset + i + 1
		if err := m.target.AppendRow(ctx, desc, row); err != nil {
			rejected++
			log.Error().Err(err).Int("row_number", rowNumber).Msg("row rejected")
			if log.Debug().Enabled() {
				log.Debug().Msgf("rejected row %d : %s", rowNumber, spew.Sdump(row))
			}
			if rerr := m.rejects.Reject(job.RunID, job.Table, rowNumber, row, err); rerr != nil {
				log.Error().Err(rerr).Int("row_number", rowNumber).Msg("could not record rejected row")
			}
			continue
		}
		loaded++
	}
	return loaded, rejected
}

// sanitizePage : NUL stripped from string values, everything else untouched
func sanitizePage(page table.Page) table.Page {
	res := make(table.Page, len(page))
	for i, row := range page {
		res[i] = colmap.Sanitize(row)
	}
	return res
}

func (m *ChunkedMigrator) commit(log zerolog.Logger, job TableJob, offset int) {
	if m.ledger == nil {
		return
	}
	if err := m.ledger.CommitOffset(job.Table, offset, job.RunID); err != nil {
		log.Warn().Err(err).Int("offset", offset).Msg("could not commit offset to ledger")
	}
}

// checkLedger : the destination count wins, a larger ledger offset means rows
// went missing from the destination outside of this job
func (m *ChunkedMigrator) checkLedger(log zerolog.Logger, tableName string, destCount int) {
	if m.ledger == nil {
		return
	}
	last, ok, err := m.ledger.LastOffset(tableName)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("could not read ledger offset")
	case ok && last > destCount:
		log.Warn().
			Int("ledger_offset", last).
			Int("destination_rows", destCount).
			Msgf("ledger is ahead of destination by %d rows, resuming from destination count", last-destCount)
	}
}
