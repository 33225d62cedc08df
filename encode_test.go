package lakeshift

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)

	cases := []struct {
		name string
		in   Value
		want string
	}{
		{"null", Null(), "NULL"},
		{"true", Bool(true), "TRUE"},
		{"false", Bool(false), "FALSE"},
		{"int", Int(-42), "-42"},
		{"float", Float(1.5), "1.5"},
		{"nan", Float(math.NaN()), "NULL"},
		{"positive inf", Float(math.Inf(1)), "NULL"},
		{"negative inf", Float(math.Inf(-1)), "NULL"},
		{"text", Text("hello"), "'hello'"},
		{"text with quote", Text("a'b"), "'a''b'"},
		{"timestamp", Timestamp(ts), "'2024-03-01 12:30:45'"},
		{"array", Structured([]interface{}{1, 2}), "'[1,2]'"},
		{"object", Structured(map[string]interface{}{"k": "v'w"}), `'{"k":"v''w"}'`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := encodeValue(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEncodeValueStructuredPrecedesScalars(t *testing.T) {
	// an empty array must stay a JSON literal, never collapse to NULL
	got, err := encodeValue(Structured([]interface{}{}))
	require.NoError(t, err)
	assert.Equal(t, "'[]'", got)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`select`", quoteIdent("select"))
	assert.Equal(t, "`Mixed Case`", quoteIdent("Mixed Case"))
	assert.Equal(t, "`a``b`", quoteIdent("a`b"))
}

func TestColumnTypeSQL(t *testing.T) {
	assert.Equal(t, "BIGINT", columnTypeSQL(TypeInt))
	assert.Equal(t, "DOUBLE", columnTypeSQL(TypeFloat))
	assert.Equal(t, "BOOLEAN", columnTypeSQL(TypeBool))
	assert.Equal(t, "TIMESTAMP", columnTypeSQL(TypeTimestamp))
	assert.Equal(t, "STRING", columnTypeSQL(TypeText))
	assert.Equal(t, "STRING", columnTypeSQL(TypeStructured))
	assert.Equal(t, "STRING", columnTypeSQL(TypeNull))
}
