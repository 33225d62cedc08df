package lakeshift

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const timestampFormat = "2006-01-02 15:04:05.999999"

var literalEscaper = strings.NewReplacer(`'`, `''`)

func escape(s string) string {
	return literalEscaper.Replace(s)
}

func quote(s string) string {
	return "'" + escape(s) + "'"
}

// quoteIdent backtick-quotes a column or table identifier so reserved words
// and mixed case survive the round trip.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// encodeValue renders one cell as a SQL literal. The variant order matters:
// null and structured come before the scalar cases so array-like cells are
// never mistaken for missing data, and bool/numeric come before the generic
// string fallback.
func encodeValue(v Value) (string, error) {
	switch v.kind {
	case KindNull:
		return "NULL", nil
	case KindStructured:
		buf, err := json.Marshal(v.v)
		if err != nil {
			return "", errors.Wrapf(ErrData, "encode structured value: %v", err)
		}
		return quote(string(buf)), nil
	case KindBool:
		if v.b {
			return "TRUE", nil
		}
		return "FALSE", nil
	case KindInt:
		return strconv.FormatInt(v.i, 10), nil
	case KindFloat:
		// NaN and infinities have no SQL numeric literal
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return "NULL", nil
		}
		return strconv.FormatFloat(v.f, 'g', -1, 64), nil
	case KindTimestamp:
		return quote(v.t.Format(timestampFormat)), nil
	case KindText:
		return quote(v.s), nil
	default:
		// unrecognized tag: fall back to the display rendering, escaped like text
		return quote(v.String()), nil
	}
}

// columnTypeSQL maps a semantic column type onto the destination dialect.
func columnTypeSQL(t ColumnType) string {
	switch t {
	case TypeInt:
		return "BIGINT"
	case TypeFloat:
		return "DOUBLE"
	case TypeBool:
		return "BOOLEAN"
	case TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "STRING"
	}
}
