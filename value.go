package lakeshift

import (
	"fmt"
	"time"
)

// Kind is the closed set of value variants a dataset cell may hold. Cells are
// tagged at ingestion time from the column-type metadata, so downstream
// encoding switches on a finite tag set instead of probing runtime types.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindTimestamp
	KindText
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindTimestamp:
		return "timestamp"
	case KindText:
		return "text"
	case KindStructured:
		return "structured"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is one dataset cell.
type Value struct {
	kind Kind

	b bool
	i int64
	f float64
	t time.Time
	s string
	v interface{}
}

func Null() Value                    { return Value{kind: KindNull} }
func Bool(b bool) Value              { return Value{kind: KindBool, b: b} }
func Int(i int64) Value              { return Value{kind: KindInt, i: i} }
func Float(f float64) Value          { return Value{kind: KindFloat, f: f} }
func Timestamp(t time.Time) Value    { return Value{kind: KindTimestamp, t: t} }
func Text(s string) Value            { return Value{kind: KindText, s: s} }
func Structured(v interface{}) Value { return Value{kind: KindStructured, v: v} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// String renders the cell for display, not for SQL. Use encodeValue for
// statement building.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "<null>"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%v", v.f)
	case KindTimestamp:
		return v.t.Format(timestampFormat)
	case KindText:
		return v.s
	default:
		return fmt.Sprintf("%v", v.v)
	}
}
