package convert

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/quarry-data/quarry/pkg/errors"
	"github.com/quarry-data/quarry/pkg/objectstore"
)

func TestDeriveParquetKey(t *testing.T) {
	assert.Equal(t, "data/file.parquet", DeriveParquetKey("data/file.csv"))
	assert.Equal(t, "Data_Entry_2017.parquet", DeriveParquetKey("Data_Entry_2017.csv"))
	assert.Equal(t, "raw/export.csv.parquet", DeriveParquetKey("raw/export.csv.csv"))
	assert.Equal(t, "plain.parquet", DeriveParquetKey("plain"))
}

func readParquet(t *testing.T, data []byte) arrow.Table {
	t.Helper()
	pf, err := file.NewParquetReader(bytes.NewReader(data))
	require.NoError(t, err)

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	require.NoError(t, err)

	tbl, err := reader.ReadTable(context.Background())
	require.NoError(t, err)
	return tbl
}

func TestConvertEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemStore()
	src := "Patient ID,Patient Age,View Position\n1,50,PA\n2,N/A,AP\n"
	require.NoError(t, store.Put(ctx, "landing", "data/file.csv", strings.NewReader(src), "text/csv"))

	conv := New(store, WithLogger(zaptest.NewLogger(t)))
	key, err := conv.Convert(ctx, "landing", "data/file.csv")
	require.NoError(t, err)
	assert.Equal(t, "data/file.parquet", key)

	out, err := store.Get(ctx, "landing", key)
	require.NoError(t, err)

	tbl := readParquet(t, out)
	defer tbl.Release()

	require.EqualValues(t, 2, tbl.NumRows())
	require.EqualValues(t, 3, tbl.NumCols())

	schema := tbl.Schema()
	assert.Equal(t, "patient_id", schema.Field(0).Name)
	assert.Equal(t, "patient_age", schema.Field(1).Name)
	assert.Equal(t, "view_position", schema.Field(2).Name)

	assert.Equal(t, arrow.INT64, schema.Field(0).Type.ID())
	assert.Equal(t, arrow.INT64, schema.Field(1).Type.ID())

	ids := tbl.Column(0).Data().Chunks()[0].(*array.Int64)
	assert.Equal(t, int64(1), ids.Value(0))
	assert.Equal(t, int64(2), ids.Value(1))

	ages := tbl.Column(1).Data().Chunks()[0].(*array.Int64)
	assert.Equal(t, int64(50), ages.Value(0))
	assert.True(t, ages.IsNull(1), "unparseable age must be null")

	views := tbl.Column(2).Data().Chunks()[0]
	switch col := views.(type) {
	case *array.Dictionary:
		dict := col.Dictionary().(*array.String)
		got := []string{
			dict.Value(col.GetValueIndex(0)),
			dict.Value(col.GetValueIndex(1)),
		}
		assert.Equal(t, []string{"PA", "AP"}, got)
	case *array.String:
		assert.Equal(t, "PA", col.Value(0))
		assert.Equal(t, "AP", col.Value(1))
	default:
		t.Fatalf("unexpected view_position array type %T", views)
	}
}

func TestConvertMissingSource(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemStore()

	conv := New(store, WithLogger(zaptest.NewLogger(t)))
	_, err := conv.Convert(ctx, "landing", "data/missing.csv")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRead))
	assert.False(t, store.Exists("landing", "data/missing.parquet"),
		"no output may be written when the source is unreadable")
}

func TestConvertMalformedSource(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemStore()
	require.NoError(t, store.Put(ctx, "landing", "bad.csv", strings.NewReader("a,b\n1,2,3\n"), ""))

	conv := New(store, WithLogger(zaptest.NewLogger(t)))
	_, err := conv.Convert(ctx, "landing", "bad.csv")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRead))
	assert.False(t, store.Exists("landing", "bad.parquet"))
}

func TestConvertCollidingColumns(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemStore()
	require.NoError(t, store.Put(ctx, "landing", "dup.csv", strings.NewReader("Patient ID,patient_id\n1,2\n"), ""))

	conv := New(store, WithLogger(zaptest.NewLogger(t)))
	_, err := conv.Convert(ctx, "landing", "dup.csv")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.False(t, store.Exists("landing", "dup.parquet"))
}

func TestConvertIsRerunnable(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemStore()
	src := "Patient ID,Finding Labels\n1,Cardiomegaly\n"
	require.NoError(t, store.Put(ctx, "landing", "run.csv", strings.NewReader(src), ""))

	conv := New(store, WithLogger(zaptest.NewLogger(t)))

	first, err := conv.Convert(ctx, "landing", "run.csv")
	require.NoError(t, err)
	second, err := conv.Convert(ctx, "landing", "run.csv")
	require.NoError(t, err)

	assert.Equal(t, first, second, "same input must map to the same output key")
	assert.True(t, store.Exists("landing", first))
}

func TestConvertPreservesColumnAndRowOrder(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemStore()
	src := "Zeta,Alpha,Mid\n3,z1,m1\n1,z2,m2\n2,z3,m3\n"
	require.NoError(t, store.Put(ctx, "landing", "order.csv", strings.NewReader(src), ""))

	conv := New(store, WithLogger(zaptest.NewLogger(t)))
	key, err := conv.Convert(ctx, "landing", "order.csv")
	require.NoError(t, err)

	out, err := store.Get(ctx, "landing", key)
	require.NoError(t, err)

	tbl := readParquet(t, out)
	defer tbl.Release()

	schema := tbl.Schema()
	assert.Equal(t, "zeta", schema.Field(0).Name)
	assert.Equal(t, "alpha", schema.Field(1).Name)
	assert.Equal(t, "mid", schema.Field(2).Name)

	zeta := tbl.Column(0).Data().Chunks()[0].(*array.Int64)
	assert.Equal(t, []int64{3, 1, 2}, []int64{zeta.Value(0), zeta.Value(1), zeta.Value(2)})
}
