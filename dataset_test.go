package lakeshift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetAppendChecksWidth(t *testing.T) {
	ds := NewDataset([]Column{{Name: "a", Type: TypeInt}, {Name: "b", Type: TypeText}})
	require.NoError(t, ds.Append([]Value{Int(1), Text("x")}))
	err := ds.Append([]Value{Int(2)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrData)
	assert.Equal(t, 1, ds.NumRows())
}

func TestSanitizeColumnName(t *testing.T) {
	cases := map[string]string{
		"first name": "first_name",
		"_col_":      "col",
		"amount($)":  "amount",
		"a-b.c":      "a_b_c",
		"ok_name":    "ok_name",
		"über":       "ber",
		"%%":         "col",
		"":           "col",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeColumnName(in), "input %q", in)
	}
}

func TestSanitizeColumnNameIdempotent(t *testing.T) {
	names := []string{"first name", "_col_", "a-b.c", "%%", "plain"}
	for _, n := range names {
		once := SanitizeColumnName(n)
		assert.Equal(t, once, SanitizeColumnName(once))
	}
}

func TestSanitizeColumnsDeduplicates(t *testing.T) {
	ds := NewDataset([]Column{
		{Name: "col"},
		{Name: "col"},
		{Name: "col"},
		{Name: "other"},
	})
	ds.SanitizeColumns()
	assert.Equal(t, []string{"col", "col_1", "col_2", "other"}, ds.ColumnNames())
}

func TestSanitizeColumnsSuffixSkipsTakenNames(t *testing.T) {
	ds := NewDataset([]Column{
		{Name: "col"},
		{Name: "col_1"},
		{Name: "col"},
	})
	ds.SanitizeColumns()
	assert.Equal(t, []string{"col", "col_1", "col_2"}, ds.ColumnNames())
}

func TestSanitizeColumnsCollapsesToSameName(t *testing.T) {
	// distinct raw names that sanitize to the same token still come out unique
	ds := NewDataset([]Column{
		{Name: "total $"},
		{Name: "total %"},
	})
	ds.SanitizeColumns()
	assert.Equal(t, []string{"total", "total_1"}, ds.ColumnNames())
}

func TestCheckColumnsSanitized(t *testing.T) {
	ok := NewDataset([]Column{{Name: "a"}, {Name: "b"}})
	require.NoError(t, ok.checkColumnsSanitized())

	unsanitized := NewDataset([]Column{{Name: "a b"}})
	assert.ErrorIs(t, unsanitized.checkColumnsSanitized(), ErrData)

	dup := NewDataset([]Column{{Name: "a"}, {Name: "a"}})
	assert.ErrorIs(t, dup.checkColumnsSanitized(), ErrData)
}
