package lakeshift

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TargetKind selects the transfer strategy for a target.
type TargetKind int

const (
	// TargetFile uploads the encoded dataset to a remote file path.
	TargetFile TargetKind = iota
	// TargetTable writes the dataset with batched INSERT statements.
	TargetTable
	// TargetStaged uploads a parquet staging file and loads the table from it.
	TargetStaged
)

// Target identifies one transfer destination: a file path with format, or a
// table with a write mode (directly inserted or loaded via a staged file).
type Target struct {
	Kind TargetKind

	// file targets
	Path      string
	Format    FileFormat
	Overwrite bool

	// table and staged targets
	Table TableTarget
}

func NewFileTarget(path string, format FileFormat, overwrite bool) Target {
	return Target{Kind: TargetFile, Path: path, Format: format, Overwrite: overwrite}
}

func NewTableTarget(t TableTarget) Target {
	return Target{Kind: TargetTable, Table: t}
}

func NewStagedTarget(t TableTarget) Target {
	return Target{Kind: TargetStaged, Table: t, Format: FormatParquet}
}

// Outcome records what one transfer moved.
type Outcome struct {
	Rows    int
	Bytes   int64
	Elapsed time.Duration
}

// Engine is the single entry point mapping a target's kind to the matching
// protocol. It holds no state of its own beyond its collaborators.
type Engine struct {
	client *APIClient
	writer *SQLWriter
}

func NewEngine(client *APIClient, writer *SQLWriter) *Engine {
	return &Engine{client: client, writer: writer}
}

// Transfer validates the dataset against the target and dispatches to the
// file upload, SQL insert, or staged load path.
func (e *Engine) Transfer(ctx context.Context, ds *Dataset, target Target) (*Outcome, error) {
	if ds == nil {
		return nil, errors.Wrap(ErrData, "nil dataset")
	}
	if err := e.validate(ds, target); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		outcome *Outcome
		err     error
	)
	switch target.Kind {
	case TargetFile:
		outcome, err = e.transferFile(ctx, ds, target)
	case TargetTable:
		outcome, err = e.transferTable(ctx, ds, target.Table)
	case TargetStaged:
		outcome, err = e.transferStaged(ctx, ds, target.Table)
	default:
		return nil, errors.Wrapf(ErrInvalidConfig, "unknown target kind %d", target.Kind)
	}
	if err != nil {
		return nil, err
	}
	outcome.Elapsed = time.Since(start)
	return outcome, nil
}

// validate fails fast on target/dataset mismatches before any remote call.
func (e *Engine) validate(ds *Dataset, target Target) error {
	switch target.Kind {
	case TargetFile:
		if target.Path == "" {
			return errors.Wrap(ErrInvalidConfig, "file target requires a path")
		}
		if _, err := ParseFileFormat(string(target.Format)); err != nil {
			return err
		}
	case TargetTable, TargetStaged:
		if target.Table.Table == "" {
			return errors.Wrap(ErrInvalidConfig, "table target requires a table name")
		}
		if _, err := ParseWriteMode(string(target.Table.Mode)); err != nil {
			return err
		}
		if err := ds.checkColumnsSanitized(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) transferFile(ctx context.Context, ds *Dataset, target Target) (*Outcome, error) {
	data, err := EncodeDataset(ds, target.Format)
	if err != nil {
		return nil, err
	}
	logger.Infof("uploading %d rows (%.2f MiB) to %s", ds.NumRows(), float64(len(data))/(1<<20), target.Path)
	if err := e.client.UploadFile(ctx, target.Path, data, target.Overwrite); err != nil {
		return nil, err
	}
	return &Outcome{Rows: ds.NumRows(), Bytes: int64(len(data))}, nil
}

func (e *Engine) transferTable(ctx context.Context, ds *Dataset, t TableTarget) (*Outcome, error) {
	if err := e.writer.EnsureTable(ctx, t, ds.Columns); err != nil {
		return nil, err
	}
	rows, bytes, err := e.writer.WriteRows(ctx, t, ds)
	if err != nil {
		return nil, err
	}
	return &Outcome{Rows: rows, Bytes: bytes}, nil
}

func (e *Engine) transferStaged(ctx context.Context, ds *Dataset, t TableTarget) (*Outcome, error) {
	data, err := EncodeParquet(ds)
	if err != nil {
		return nil, err
	}
	stagingPath := fmt.Sprintf("/FileStore/staging/%s-%s.parquet", t.Table, uuid.NewString())
	logger.Infof("staging %d rows (%.2f MiB) at %s", ds.NumRows(), float64(len(data))/(1<<20), stagingPath)
	if err := e.client.UploadFile(ctx, stagingPath, data, true); err != nil {
		return nil, err
	}
	if err := e.writer.LoadStagedFile(ctx, t, "dbfs:"+stagingPath); err != nil {
		return nil, err
	}
	return &Outcome{Rows: ds.NumRows(), Bytes: int64(len(data))}, nil
}
