package migrate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/baderkha/fb-bronze/pkg/migrate/sink"
	"github.com/baderkha/fb-bronze/pkg/migrate/table"
)

type pageRequest struct {
	Table  string
	Offset int
	Size   int
}

type fakeTable struct {
	columns  []string
	rows     []table.Row
	count    int // overrides len(rows) when > 0
	countErr error
	colErr   error
}

type fakeSource struct {
	mu       sync.Mutex
	tables   map[string]*fakeTable
	order    []string
	listErr  error
	requests []pageRequest
}

func newFakeSource() *fakeSource {
	return &fakeSource{tables: map[string]*fakeTable{}}
}

func genRows(n int) []table.Row {
	rows := make([]table.Row, n)
	for i := range rows {
		rows[i] = table.Row{int64(i + 1), fmt.Sprintf("name-%d", i+1)}
	}
	return rows
}

func (f *fakeSource) add(name string, rows []table.Row) *fakeTable {
	t := &fakeTable{columns: []string{"ID", "NAME"}, rows: rows}
	f.tables[name] = t
	f.order = append(f.order, name)
	return t
}

func (f *fakeSource) Tables(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.order...), nil
}

func (f *fakeSource) get(name string) (*fakeTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w : no table %s", table.ErrSourceUnavailable, name)
	}
	return t, nil
}

func (f *fakeSource) RowCount(ctx context.Context, name string) (int, error) {
	t, err := f.get(name)
	if err != nil {
		return 0, err
	}
	if t.countErr != nil {
		return 0, t.countErr
	}
	if t.count > 0 {
		return t.count, nil
	}
	return len(t.rows), nil
}

func (f *fakeSource) Columns(ctx context.Context, name string) ([]string, error) {
	t, err := f.get(name)
	if err != nil {
		return nil, err
	}
	if t.colErr != nil {
		return nil, t.colErr
	}
	return t.columns, nil
}

func (f *fakeSource) ReadPage(ctx context.Context, name string, offset int, size int) (table.Page, error) {
	t, err := f.get(name)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.requests = append(f.requests, pageRequest{Table: name, Offset: offset, Size: size})
	f.mu.Unlock()
	if offset >= len(t.rows) {
		return table.Page{}, nil
	}
	end := offset + size
	if end > len(t.rows) {
		end = len(t.rows)
	}
	page := make(table.Page, 0, end-offset)
	for _, r := range t.rows[offset:end] {
		page = append(page, append(table.Row(nil), r...))
	}
	return page, nil
}

func (f *fakeSource) pageRequests(name string) []pageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []pageRequest
	for _, r := range f.requests {
		if r.Table == name {
			res = append(res, r)
		}
	}
	return res
}

type fakeSink struct {
	mu        sync.Mutex
	tables    map[string][]table.Row
	ensured   []string
	schemaErr error
	// badRow marks rows that no append path can store
	badRow    func(row table.Row) bool
	bulkCalls int
	rowCalls  int
}

func newFakeSink() *fakeSink {
	return &fakeSink{tables: map[string][]table.Row{}}
}

func (f *fakeSink) EnsureSchema(ctx context.Context) error {
	return f.schemaErr
}

func (f *fakeSink) EnsureTable(ctx context.Context, desc table.Descriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, desc.Name)
	if _, ok := f.tables[desc.Name]; !ok {
		f.tables[desc.Name] = nil
	}
	return nil
}

func (f *fakeSink) CurrentRowCount(ctx context.Context, name string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[name]), nil
}

func (f *fakeSink) AppendBulk(ctx context.Context, desc table.Descriptor, rows []table.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCalls++
	for _, r := range rows {
		if f.badRow != nil && f.badRow(r) {
			return fmt.Errorf("%w : %s", sink.ErrBulkAppendFailed, desc.Name)
		}
	}
	f.tables[desc.Name] = append(f.tables[desc.Name], rows...)
	return nil
}

func (f *fakeSink) AppendRow(ctx context.Context, desc table.Descriptor, row table.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rowCalls++
	if f.badRow != nil && f.badRow(row) {
		return fmt.Errorf("%w : %s", sink.ErrRowAppendFailed, desc.Name)
	}
	f.tables[desc.Name] = append(f.tables[desc.Name], row)
	return nil
}

func (f *fakeSink) rows(name string) []table.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tables[name]
}

type rejected struct {
	Table     string
	RowNumber int
	Row       []any
	Cause     error
}

type fakeRejecter struct {
	mu   sync.Mutex
	rows []rejected
}

func (f *fakeRejecter) Reject(runID string, tableName string, rowNumber int, row []any, cause error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, rejected{Table: tableName, RowNumber: rowNumber, Row: row, Cause: cause})
	return nil
}

type fakeLedger struct {
	offsets map[string]int
	commits []int
	err     error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{offsets: map[string]int{}}
}

func (f *fakeLedger) CommitOffset(tableName string, offset int, runID string) error {
	if f.err != nil {
		return f.err
	}
	f.offsets[tableName] = offset
	f.commits = append(f.commits, offset)
	return nil
}

func (f *fakeLedger) LastOffset(tableName string) (int, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	v, ok := f.offsets[tableName]
	return v, ok, nil
}

type fakeArchiver struct {
	runIDs []string
	err    error
}

func (f *fakeArchiver) Upload(ctx context.Context, runID string) error {
	f.runIDs = append(f.runIDs, runID)
	return f.err
}

type progress struct {
	Table     string
	Processed int
	Remaining int
}

type recordingObserver struct {
	mu     sync.Mutex
	events []progress
}

func (r *recordingObserver) OnProgress(tableName string, rowsProcessed int, rowsRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, progress{Table: tableName, Processed: rowsProcessed, Remaining: rowsRemaining})
}

var errBoom = errors.New("boom")
