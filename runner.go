package lakeshift

import (
	"context"
	"time"
)

// SourceReader produces fully materialized datasets from the source system.
type SourceReader interface {
	RunQuery(ctx context.Context, sql string) (*Dataset, error)
	ReadTable(ctx context.Context, table string, limit int) (*Dataset, error)
	ListTables(ctx context.Context) ([]string, error)
}

// ItemResult is the outcome of one table in a batch run.
type ItemResult struct {
	Table   string
	Err     error
	Rows    int
	Skipped bool
}

// Report accumulates per-table outcomes of a batch run. It is complete and
// immutable once Run returns.
type Report struct {
	Items   []ItemResult
	Elapsed time.Duration

	byTable map[string]int
}

func (r *Report) add(item ItemResult) {
	r.byTable[item.Table] = len(r.Items)
	r.Items = append(r.Items, item)
}

// Result returns the recorded outcome for a table.
func (r *Report) Result(table string) (ItemResult, bool) {
	i, ok := r.byTable[table]
	if !ok {
		return ItemResult{}, false
	}
	return r.Items[i], true
}

func (r *Report) Succeeded() int {
	n := 0
	for _, item := range r.Items {
		if item.Err == nil {
			n++
		}
	}
	return n
}

func (r *Report) Failed() int {
	return len(r.Items) - r.Succeeded()
}

func (r *Report) Failures() []ItemResult {
	var failed []ItemResult
	for _, item := range r.Items {
		if item.Err != nil {
			failed = append(failed, item)
		}
	}
	return failed
}

// Runner applies the transfer engine to many tables sequentially, isolating
// each table's failure from the rest of the run.
type Runner struct {
	source SourceReader
	engine *Engine
	// targetFor maps a source table name onto its transfer target.
	targetFor func(table string) Target
	// limit caps rows read per table; zero reads everything.
	limit int
}

func NewRunner(source SourceReader, engine *Engine, targetFor func(table string) Target) *Runner {
	return &Runner{source: source, engine: engine, targetFor: targetFor}
}

// WithRowLimit caps the rows read from each source table.
func (r *Runner) WithRowLimit(limit int) *Runner {
	r.limit = limit
	return r
}

// Run attempts every table exactly once, in order, and never aborts early: an
// error on one table is recorded and the run moves on. The returned report
// covers every input table.
func (r *Runner) Run(ctx context.Context, tables []string) *Report {
	start := time.Now()
	report := &Report{byTable: make(map[string]int, len(tables))}

	for i, table := range tables {
		logger.Infof("[%d/%d] processing table %s", i+1, len(tables), table)
		report.add(r.runOne(ctx, table))
	}

	report.Elapsed = time.Since(start)
	logger.Infof("batch run finished in %.1fs: %d succeeded, %d failed",
		report.Elapsed.Seconds(), report.Succeeded(), report.Failed())
	for _, item := range report.Failures() {
		logger.Errorf("table %s failed: %v", item.Table, item.Err)
	}
	return report
}

func (r *Runner) runOne(ctx context.Context, table string) ItemResult {
	ds, err := r.source.ReadTable(ctx, table, r.limit)
	if err != nil {
		return ItemResult{Table: table, Err: err}
	}

	ds.SanitizeColumns()

	if ds.NumRows() == 0 {
		logger.Infof("table %s is empty, skipping upload", table)
		return ItemResult{Table: table, Skipped: true}
	}

	outcome, err := r.engine.Transfer(ctx, ds, r.targetFor(table))
	if err != nil {
		return ItemResult{Table: table, Err: err}
	}
	return ItemResult{Table: table, Rows: outcome.Rows}
}
