package lakeshift

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// ColumnType is the semantic type of a dataset column.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeTimestamp
	TypeStructured
	TypeNull
)

func (t ColumnType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	case TypeStructured:
		return "structured"
	case TypeNull:
		return "null"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Column is a named, typed dataset column.
type Column struct {
	Name string
	Type ColumnType
}

// Dataset is an in-memory table: an ordered list of columns and rows of cells
// in column order. The transfer engine only reads it; the source reader that
// produced it owns it until handoff.
type Dataset struct {
	Columns []Column
	rows    [][]Value
}

func NewDataset(columns []Column) *Dataset {
	return &Dataset{Columns: columns}
}

// Append adds one row. Every row must carry exactly one cell per column.
func (d *Dataset) Append(row []Value) error {
	if len(row) != len(d.Columns) {
		return errors.Wrapf(ErrData, "row has %d cells, dataset has %d columns", len(row), len(d.Columns))
	}
	d.rows = append(d.rows, row)
	return nil
}

func (d *Dataset) NumRows() int    { return len(d.rows) }
func (d *Dataset) NumColumns() int { return len(d.Columns) }

// Row returns the i-th row. The returned slice must not be modified.
func (d *Dataset) Row(i int) []Value { return d.rows[i] }

// Rows returns all rows in insertion order. The result must not be modified.
func (d *Dataset) Rows() [][]Value { return d.rows }

func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

var columnNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SanitizeColumnName restricts a column name to alphanumerics and
// underscores, with no leading or trailing underscore. Names that sanitize to
// nothing become "col". The function is idempotent.
func SanitizeColumnName(name string) string {
	s := columnNameSanitizer.ReplaceAllString(name, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "col"
	}
	return s
}

// SanitizeColumns sanitizes every column name in place and resolves
// collisions with numeric suffixes in first-seen order: col, col_1, col_2.
// A suffixed name that would itself collide keeps counting until free.
func (d *Dataset) SanitizeColumns() {
	taken := make(map[string]bool, len(d.Columns))
	seen := make(map[string]int, len(d.Columns))
	for i := range d.Columns {
		name := SanitizeColumnName(d.Columns[i].Name)
		if taken[name] {
			base := name
			for n := seen[base] + 1; ; n++ {
				candidate := fmt.Sprintf("%s_%d", base, n)
				if !taken[candidate] {
					seen[base] = n
					name = candidate
					break
				}
			}
		}
		taken[name] = true
		d.Columns[i].Name = name
	}
}

// checkColumnsSanitized verifies that sanitization already happened: every
// name is in sanitized form and unique. SQL-bound transfers require this.
func (d *Dataset) checkColumnsSanitized() error {
	seen := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		if SanitizeColumnName(c.Name) != c.Name {
			return errors.Wrapf(ErrData, "column name %q is not sanitized", c.Name)
		}
		if seen[c.Name] {
			return errors.Wrapf(ErrData, "duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}
