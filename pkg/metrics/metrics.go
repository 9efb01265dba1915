// Package metrics provides Prometheus metrics for Quarry jobs.
//
// Counters cover the conversion path (files, rows, coerced nulls, bytes
// uploaded) and the brightness path (scenes loaded, pixels analyzed);
// histograms track end-to-end job duration. All metrics are registered
// through promauto at package load.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FilesConverted counts conversion outcomes by status (success, failure)
	FilesConverted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quarry",
		Name:      "files_converted_total",
		Help:      "Total CSV files converted to Parquet, by status",
	}, []string{"status"})

	// RowsRead counts rows materialized from source CSV files
	RowsRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quarry",
		Name:      "rows_read_total",
		Help:      "Total rows read from source CSV files",
	})

	// CellsNulled counts cells turned into nulls by type coercion
	CellsNulled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quarry",
		Name:      "cells_nulled_total",
		Help:      "Total unparseable cells coerced to null",
	})

	// BytesUploaded counts bytes written back to object storage
	BytesUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quarry",
		Name:      "bytes_uploaded_total",
		Help:      "Total bytes uploaded to object storage",
	})

	// ConvertDuration tracks the wall time of a single file conversion
	ConvertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "quarry",
		Name:      "convert_duration_seconds",
		Help:      "Duration of a single CSV to Parquet conversion",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// ScenesLoaded counts raster scenes loaded by the brightness job
	ScenesLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quarry",
		Name:      "scenes_loaded_total",
		Help:      "Total raster scenes loaded for brightness analysis",
	})

	// ScenesSkipped counts scenes that could not be decoded
	ScenesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quarry",
		Name:      "scenes_skipped_total",
		Help:      "Total raster scenes skipped due to load or decode errors",
	})

	// BrightnessDuration tracks the wall time of a brightness analysis run
	BrightnessDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "quarry",
		Name:      "brightness_duration_seconds",
		Help:      "Duration of a full brightness analysis run",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})
)
