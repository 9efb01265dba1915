// Package convert implements the columnar converter: it reads a delimited
// object from storage, normalizes column names, coerces declared columns to
// their semantic types, and writes the result back as snappy-compressed
// Parquet next to the source.
//
// A conversion is single-threaded and materializes the whole table in
// memory. It is naturally re-runnable: the same input always produces the
// same output key, overwriting prior output (last writer wins).
package convert

import (
	"bytes"
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quarry-data/quarry/pkg/coerce"
	"github.com/quarry-data/quarry/pkg/errors"
	"github.com/quarry-data/quarry/pkg/logger"
	"github.com/quarry-data/quarry/pkg/metrics"
	"github.com/quarry-data/quarry/pkg/objectstore"
	"github.com/quarry-data/quarry/pkg/table"
)

const (
	csvSuffix     = ".csv"
	parquetSuffix = ".parquet"

	parquetContentType = "application/vnd.apache.parquet"
)

// Converter turns delimited objects into Parquet objects
type Converter struct {
	store  objectstore.Store
	decl   coerce.Declaration
	logger *zap.Logger
}

// Option configures a Converter
type Option func(*Converter)

// WithDeclaration overrides the default type declaration
func WithDeclaration(decl coerce.Declaration) Option {
	return func(c *Converter) {
		c.decl = decl
	}
}

// WithLogger overrides the default logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		c.logger = l
	}
}

// New creates a Converter bound to a store. By default it applies the
// medical-imaging metadata declaration.
func New(store objectstore.Store, opts ...Option) *Converter {
	c := &Converter{
		store:  store,
		decl:   coerce.ImagingMetadata(),
		logger: logger.Get(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DeriveParquetKey maps a source key to its output key by swapping the
// .csv suffix for .parquet. Keys without the suffix get .parquet appended.
func DeriveParquetKey(key string) string {
	if strings.HasSuffix(key, csvSuffix) {
		return strings.TrimSuffix(key, csvSuffix) + parquetSuffix
	}
	return key + parquetSuffix
}

// Convert downloads the CSV object at bucket/csvKey, transforms it, and
// uploads the Parquet result to the derived key, which it returns. The
// source must be reachable and parseable (Read error otherwise); cell-level
// coercion failures become nulls and never fail the operation.
func (c *Converter) Convert(ctx context.Context, bucket, csvKey string) (string, error) {
	log := c.logger.With(
		zap.String("bucket", bucket),
		zap.String("key", csvKey),
	)
	start := time.Now()

	data, err := c.store.Get(ctx, bucket, csvKey)
	if err != nil {
		metrics.FilesConverted.WithLabelValues("failure").Inc()
		return "", errors.Wrap(err, errors.ErrorTypeRead, "failed to read source object")
	}

	tbl, err := table.FromCSV(bytes.NewReader(data))
	if err != nil {
		metrics.FilesConverted.WithLabelValues("failure").Inc()
		return "", err
	}

	if err := tbl.NormalizeNames(); err != nil {
		metrics.FilesConverted.WithLabelValues("failure").Inc()
		return "", err
	}

	nulled := coerce.Apply(tbl, c.decl)
	metrics.RowsRead.Add(float64(tbl.NumRows()))
	metrics.CellsNulled.Add(float64(nulled))

	var buf bytes.Buffer
	if err := writeParquet(&buf, tbl); err != nil {
		metrics.FilesConverted.WithLabelValues("failure").Inc()
		return "", err
	}

	parquetKey := DeriveParquetKey(csvKey)
	if err := c.store.Put(ctx, bucket, parquetKey, bytes.NewReader(buf.Bytes()), parquetContentType); err != nil {
		metrics.FilesConverted.WithLabelValues("failure").Inc()
		return "", errors.Wrap(err, errors.ErrorTypeWrite, "failed to upload parquet object")
	}

	metrics.FilesConverted.WithLabelValues("success").Inc()
	metrics.BytesUploaded.Add(float64(buf.Len()))
	metrics.ConvertDuration.Observe(time.Since(start).Seconds())

	log.Info("converted csv to parquet",
		zap.String("output_key", parquetKey),
		zap.Int("rows", tbl.NumRows()),
		zap.Int("columns", tbl.NumCols()),
		zap.Int("cells_nulled", nulled),
		zap.Int("bytes", buf.Len()),
		zap.Duration("duration", time.Since(start)))

	return parquetKey, nil
}
