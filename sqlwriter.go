package lakeshift

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// WriteMode selects what happens to a destination table that already exists.
type WriteMode string

const (
	WriteModeOverwrite WriteMode = "overwrite"
	WriteModeAppend    WriteMode = "append"
)

func ParseWriteMode(s string) (WriteMode, error) {
	switch WriteMode(strings.ToLower(s)) {
	case WriteModeOverwrite:
		return WriteModeOverwrite, nil
	case WriteModeAppend:
		return WriteModeAppend, nil
	default:
		return "", errors.Wrapf(ErrInvalidConfig, "invalid write mode %q, use overwrite or append", s)
	}
}

// TableTarget identifies a destination table and how to write into it.
// Catalog and Schema fall back to the client's configured defaults when
// empty.
type TableTarget struct {
	Catalog string
	Schema  string
	Table   string
	Mode    WriteMode
}

// FQN returns the fully qualified, identifier-quoted table name.
func (t TableTarget) FQN(defaultCatalog, defaultSchema string) string {
	catalog := t.Catalog
	if catalog == "" {
		catalog = defaultCatalog
	}
	schema := t.Schema
	if schema == "" {
		schema = defaultSchema
	}
	return fmt.Sprintf("%s.%s.%s", quoteIdent(catalog), quoteIdent(schema), quoteIdent(t.Table))
}

// SQLWriter materializes datasets into destination tables with textual DDL
// and multi-row INSERT statements.
type SQLWriter struct {
	client    *APIClient
	batchSize int
}

func NewSQLWriter(client *APIClient, batchSize int) *SQLWriter {
	if batchSize <= 0 {
		batchSize = defaultInsertBatchSize
	}
	return &SQLWriter{client: client, batchSize: batchSize}
}

func (w *SQLWriter) fqn(t TableTarget) string {
	return t.FQN(w.client.catalog, w.client.schema)
}

// TableExists probes the destination metadata for the table. The check is
// inherently racy against concurrent creates, which is why CreateTable issues
// CREATE TABLE IF NOT EXISTS: the losing side degrades to a no-op.
func (w *SQLWriter) TableExists(ctx context.Context, t TableTarget) (bool, error) {
	catalog := t.Catalog
	if catalog == "" {
		catalog = w.client.catalog
	}
	schema := t.Schema
	if schema == "" {
		schema = w.client.schema
	}
	stmt := fmt.Sprintf("SHOW TABLES IN %s.%s LIKE %s",
		quoteIdent(catalog), quoteIdent(schema), quote(t.Table))
	resp, err := w.client.ExecStatement(ctx, stmt)
	if err != nil {
		return false, errors.Wrapf(err, "probe table %s", t.Table)
	}
	return resp.Result != nil && len(resp.Result.DataArray) > 0, nil
}

func (w *SQLWriter) DropTable(ctx context.Context, t TableTarget) error {
	stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s", w.fqn(t))
	_, err := w.client.ExecStatement(ctx, stmt)
	return errors.Wrapf(err, "drop table %s", t.Table)
}

// CreateTable derives column definitions from the dataset columns and issues
// a create-if-absent statement.
func (w *SQLWriter) CreateTable(ctx context.Context, t TableTarget, columns []Column) error {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(col.Name), columnTypeSQL(col.Type))
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", w.fqn(t), strings.Join(defs, ", "))
	if _, err := w.client.ExecStatement(ctx, stmt); err != nil {
		return errors.Wrapf(err, "create table %s", t.Table)
	}
	return nil
}

// EnsureTable prepares the destination table for the target's write mode:
// overwrite drops and recreates, append creates only when the probe finds no
// table and otherwise leaves the schema untouched.
func (w *SQLWriter) EnsureTable(ctx context.Context, t TableTarget, columns []Column) error {
	switch t.Mode {
	case WriteModeOverwrite:
		if err := w.DropTable(ctx, t); err != nil {
			return err
		}
		return w.CreateTable(ctx, t, columns)
	case WriteModeAppend:
		exists, err := w.TableExists(ctx, t)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		return w.CreateTable(ctx, t, columns)
	default:
		return errors.Wrapf(ErrInvalidConfig, "unsupported write mode %q", t.Mode)
	}
}

// WriteRows inserts the dataset in sequential batches of batchSize rows, one
// multi-row INSERT per batch. Earlier batches stay committed when a later one
// fails; the failing batch's error is surfaced immediately and nothing after
// it runs. Returns rows written and total statement bytes sent.
func (w *SQLWriter) WriteRows(ctx context.Context, t TableTarget, ds *Dataset) (int, int64, error) {
	total := ds.NumRows()
	if total == 0 {
		logger.Infof("dataset for %s is empty, nothing to insert", t.Table)
		return 0, 0, nil
	}

	fqn := w.fqn(t)
	written := 0
	var bytes int64
	for start := 0; start < total; start += w.batchSize {
		end := start + w.batchSize
		if end > total {
			end = total
		}
		stmt, err := buildInsertStatement(fqn, ds.Columns, ds.Rows()[start:end])
		if err != nil {
			return written, bytes, err
		}
		if _, err := w.client.ExecStatement(ctx, stmt); err != nil {
			return written, bytes, errors.Wrapf(err, "insert batch %d into %s", start/w.batchSize+1, t.Table)
		}
		written += end - start
		bytes += int64(len(stmt))
		logger.Infof("inserted batch %d (%d rows) into %s", start/w.batchSize+1, end-start, t.Table)
	}
	return written, bytes, nil
}

// LoadStagedFile materializes a staged parquet file into the target table:
// overwrite recreates the table over the staged location, append inserts the
// staged rows into the existing table (creating it first when absent).
func (w *SQLWriter) LoadStagedFile(ctx context.Context, t TableTarget, location string) error {
	fqn := w.fqn(t)
	createFromStage := fmt.Sprintf("CREATE TABLE %s USING PARQUET LOCATION %s", fqn, quote(location))

	switch t.Mode {
	case WriteModeOverwrite:
		if err := w.DropTable(ctx, t); err != nil {
			return err
		}
		if _, err := w.client.ExecStatement(ctx, createFromStage); err != nil {
			return errors.Wrapf(err, "create table %s from staged file", t.Table)
		}
		return nil
	case WriteModeAppend:
		exists, err := w.TableExists(ctx, t)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := w.client.ExecStatement(ctx, createFromStage); err != nil {
				return errors.Wrapf(err, "create table %s from staged file", t.Table)
			}
			return nil
		}
		insert := fmt.Sprintf("INSERT INTO %s SELECT * FROM parquet.%s", fqn, quoteIdent(location))
		if _, err := w.client.ExecStatement(ctx, insert); err != nil {
			return errors.Wrapf(err, "append staged file into %s", t.Table)
		}
		return nil
	default:
		return errors.Wrapf(ErrInvalidConfig, "unsupported write mode %q", t.Mode)
	}
}

func buildInsertStatement(fqn string, columns []Column, rows [][]Value) (string, error) {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = quoteIdent(col.Name)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(fqn)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString(") VALUES ")

	literals := make([]string, len(columns))
	for r, row := range rows {
		if r > 0 {
			sb.WriteString(", ")
		}
		for i, v := range row {
			lit, err := encodeValue(v)
			if err != nil {
				return "", err
			}
			literals[i] = lit
		}
		sb.WriteString("(")
		sb.WriteString(strings.Join(literals, ", "))
		sb.WriteString(")")
	}
	return sb.String(), nil
}
