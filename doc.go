// Package quarry holds cloud-triggered data-conversion jobs that run
// against object storage.
//
// Two jobs ship in this repository:
//
// 1. Columnar Converter: reads a delimited landing-zone object, normalizes
// its column names to snake_case, coerces a declared set of columns to
// semantic types (text, int64, float64, categorical), and writes the table
// back as snappy-compressed Parquet next to the source.
//
// 2. Brightness Analyzer: loads a capped set of satellite scene rasters
// fully into memory and computes city-wide brightness statistics (mean,
// contrast, percentiles), uploading a JSON report. The job intentionally
// holds every pixel at once.
//
// # Invocation surfaces
//
// Both jobs are exposed through the quarry CLI (batch-style positional
// arguments) and the converter additionally through an AWS Lambda handler
// for S3 object-created events:
//
//	quarry convert <bucket> <csv-key>
//	quarry brightness <trigger-bucket> <trigger-key>
//
// Each invocation is independent and stateless: the whole source table is
// materialized in memory, transformed in a single pass, and discarded. No
// retries, no partial-write cleanup; re-running a job overwrites its
// previous output (last writer wins).
//
// # Layout
//
//   - pkg/table: in-memory columnar table and name normalization
//   - pkg/coerce: the fixed type declaration and coercion rules
//   - pkg/convert: CSV to Parquet conversion via Apache Arrow
//   - pkg/brightness: the brightness analysis batch job
//   - pkg/objectstore: S3-backed object storage access
//   - internal/job: orchestration shared by the invocation surfaces
//   - cmd/quarry, cmd/quarry-lambda: the surfaces themselves
package quarry
