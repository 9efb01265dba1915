package convert

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/quarry-data/quarry/pkg/errors"
	"github.com/quarry-data/quarry/pkg/table"
)

// writeParquet serializes the table to snappy-compressed Parquet,
// preserving row and column order. Categorical columns are written
// dictionary-encoded.
func writeParquet(w io.Writer, t *table.Table) error {
	fields := make([]arrow.Field, 0, t.NumCols())
	for _, c := range t.Columns() {
		fields = append(fields, arrow.Field{
			Name:     c.Name,
			Type:     arrowType(c.Kind),
			Nullable: true,
		})
	}
	schema := arrow.NewSchema(fields, nil)

	mem := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for i, c := range t.Columns() {
		if err := appendColumn(builder.Field(i), c); err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to build arrow column").
				WithDetail("column", c.Name)
		}
	}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithDictionaryDefault(true),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(mem),
	)

	fw, err := pqarrow.NewFileWriter(schema, w, props, arrowProps)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to create parquet writer")
	}

	rec := builder.NewRecord()
	defer rec.Release()

	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return errors.Wrap(err, errors.ErrorTypeData, "failed to write parquet row group")
	}

	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to finalize parquet file")
	}
	return nil
}

func arrowType(k table.Kind) arrow.DataType {
	switch k {
	case table.KindInt64:
		return arrow.PrimitiveTypes.Int64
	case table.KindFloat64:
		return arrow.PrimitiveTypes.Float64
	case table.KindCategorical:
		return &arrow.DictionaryType{
			IndexType: arrow.PrimitiveTypes.Int32,
			ValueType: arrow.BinaryTypes.String,
		}
	default:
		return arrow.BinaryTypes.String
	}
}

func appendColumn(b array.Builder, c *table.Column) error {
	switch builder := b.(type) {
	case *array.Int64Builder:
		for i, v := range c.Ints {
			if c.IsNull(i) {
				builder.AppendNull()
			} else {
				builder.Append(v)
			}
		}
	case *array.Float64Builder:
		for i, v := range c.Floats {
			if c.IsNull(i) {
				builder.AppendNull()
			} else {
				builder.Append(v)
			}
		}
	case *array.BinaryDictionaryBuilder:
		for i, v := range c.Text {
			if c.IsNull(i) {
				builder.AppendNull()
				continue
			}
			if err := builder.AppendString(v); err != nil {
				return err
			}
		}
	case *array.StringBuilder:
		for i, v := range c.Text {
			if c.IsNull(i) {
				builder.AppendNull()
			} else {
				builder.Append(v)
			}
		}
	default:
		return errors.New(errors.ErrorTypeInternal, "unsupported arrow builder").
			WithDetail("kind", string(c.Kind))
	}
	return nil
}
