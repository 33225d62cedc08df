package lakeshift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFileFormat(t *testing.T) {
	f, err := ParseFileFormat("Parquet")
	require.NoError(t, err)
	assert.Equal(t, FormatParquet, f)

	f, err = ParseFileFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFileFormat("orc")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEncodeCSV(t *testing.T) {
	ds := NewDataset([]Column{
		{Name: "id", Type: TypeInt},
		{Name: "name", Type: TypeText},
		{Name: "ok", Type: TypeBool},
		{Name: "tags", Type: TypeStructured},
	})
	require.NoError(t, ds.Append([]Value{Int(1), Text("a,b"), Bool(true), Structured([]interface{}{"x"})}))
	require.NoError(t, ds.Append([]Value{Int(2), Null(), Bool(false), Null()}))

	out, err := EncodeCSV(ds)
	require.NoError(t, err)
	want := "id,name,ok,tags\n" +
		"1,\"a,b\",true,\"[\"\"x\"\"]\"\n" +
		"2,,false,\n"
	assert.Equal(t, want, string(out))
}

func TestEncodeParquet(t *testing.T) {
	ds := NewDataset([]Column{
		{Name: "id", Type: TypeInt},
		{Name: "score", Type: TypeFloat},
		{Name: "ok", Type: TypeBool},
		{Name: "at", Type: TypeTimestamp},
		{Name: "name", Type: TypeText},
	})
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, ds.Append([]Value{Int(1), Float(0.5), Bool(true), Timestamp(at), Text("x")}))
	require.NoError(t, ds.Append([]Value{Null(), Null(), Null(), Null(), Null()}))

	out, err := EncodeParquet(ds)
	require.NoError(t, err)
	require.Greater(t, len(out), 8)
	assert.Equal(t, "PAR1", string(out[:4]), "parquet magic header")
	assert.Equal(t, "PAR1", string(out[len(out)-4:]), "parquet magic footer")
}

func TestEncodeParquetRejectsMismatchedCell(t *testing.T) {
	ds := NewDataset([]Column{{Name: "id", Type: TypeInt}})
	require.NoError(t, ds.Append([]Value{Text("not a number")}))
	_, err := EncodeParquet(ds)
	assert.ErrorIs(t, err, ErrData)
}

func TestEncodeDatasetDispatch(t *testing.T) {
	ds := sampleDataset(1)
	csvOut, err := EncodeDataset(ds, FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, string(csvOut), "id,name")

	pqOut, err := EncodeDataset(ds, FormatParquet)
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(pqOut[:4]))

	_, err = EncodeDataset(ds, "avro")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
