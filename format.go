package lakeshift

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/pkg/errors"
)

// FileFormat selects the on-disk encoding for file uploads.
type FileFormat string

const (
	FormatParquet FileFormat = "parquet"
	FormatCSV     FileFormat = "csv"
)

func ParseFileFormat(s string) (FileFormat, error) {
	switch FileFormat(strings.ToLower(s)) {
	case FormatParquet:
		return FormatParquet, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", errors.Wrapf(ErrInvalidConfig, "unsupported format %q, use parquet or csv", s)
	}
}

// EncodeDataset serializes the dataset into the given file format.
func EncodeDataset(ds *Dataset, format FileFormat) ([]byte, error) {
	switch format {
	case FormatCSV:
		return EncodeCSV(ds)
	case FormatParquet:
		return EncodeParquet(ds)
	default:
		return nil, errors.Wrapf(ErrInvalidConfig, "unsupported format %q", format)
	}
}

// EncodeCSV renders the dataset as UTF-8 CSV with a header row. Null cells
// become empty fields.
func EncodeCSV(ds *Dataset) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(ds.ColumnNames()); err != nil {
		return nil, errors.Wrap(err, "write csv header")
	}
	record := make([]string, ds.NumColumns())
	for _, row := range ds.Rows() {
		for i, v := range row {
			cell, err := csvCell(v)
			if err != nil {
				return nil, err
			}
			record[i] = cell
		}
		if err := writer.Write(record); err != nil {
			return nil, errors.Wrap(err, "write csv record")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, errors.Wrap(err, "flush csv")
	}
	return buf.Bytes(), nil
}

func csvCell(v Value) (string, error) {
	switch v.kind {
	case KindNull:
		return "", nil
	case KindStructured:
		buf, err := json.Marshal(v.v)
		if err != nil {
			return "", errors.Wrapf(ErrData, "encode structured value: %v", err)
		}
		return string(buf), nil
	case KindBool:
		return strconv.FormatBool(v.b), nil
	case KindInt:
		return strconv.FormatInt(v.i, 10), nil
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64), nil
	case KindTimestamp:
		return v.t.Format(timestampFormat), nil
	default:
		return v.String(), nil
	}
}

func arrowType(t ColumnType) arrow.DataType {
	switch t {
	case TypeInt:
		return arrow.PrimitiveTypes.Int64
	case TypeFloat:
		return arrow.PrimitiveTypes.Float64
	case TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case TypeTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

// EncodeParquet renders the dataset as a single-row-group parquet file.
func EncodeParquet(ds *Dataset) ([]byte, error) {
	fields := make([]arrow.Field, ds.NumColumns())
	for i, col := range ds.Columns {
		fields[i] = arrow.Field{Name: col.Name, Type: arrowType(col.Type), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()

	for _, row := range ds.Rows() {
		for i, v := range row {
			if err := appendArrowValue(builder.Field(i), ds.Columns[i], v); err != nil {
				return nil, err
			}
		}
	}

	rec := builder.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	writer, err := pqarrow.NewFileWriter(schema, &buf, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, errors.Wrap(err, "create parquet writer")
	}
	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return nil, errors.Wrap(err, "write parquet record")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "close parquet writer")
	}
	return buf.Bytes(), nil
}

func appendArrowValue(fb array.Builder, col Column, v Value) error {
	if v.IsNull() {
		fb.AppendNull()
		return nil
	}
	switch b := fb.(type) {
	case *array.Int64Builder:
		if v.kind != KindInt {
			return cellMismatch(col, v)
		}
		b.Append(v.i)
	case *array.Float64Builder:
		if v.kind != KindFloat {
			return cellMismatch(col, v)
		}
		b.Append(v.f)
	case *array.BooleanBuilder:
		if v.kind != KindBool {
			return cellMismatch(col, v)
		}
		b.Append(v.b)
	case *array.TimestampBuilder:
		if v.kind != KindTimestamp {
			return cellMismatch(col, v)
		}
		b.Append(arrow.Timestamp(v.t.UnixMicro()))
	case *array.StringBuilder:
		cell, err := csvCell(v)
		if err != nil {
			return err
		}
		b.Append(cell)
	default:
		return cellMismatch(col, v)
	}
	return nil
}

func cellMismatch(col Column, v Value) error {
	return errors.Wrapf(ErrData, "column %s is %s but cell is %s", col.Name, col.Type, v.kind)
}
