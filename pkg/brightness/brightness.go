// Package brightness implements the city-wide brightness analysis batch
// job. It loads a capped set of satellite scenes fully into memory, reduces
// them to grayscale pixel values, and computes summary statistics over the
// combined pixel population. The job is deliberately memory-intensive:
// every scene is held at once, with no streaming variant.
package brightness

import (
	"bytes"
	"context"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"golang.org/x/image/tiff"

	"github.com/quarry-data/quarry/pkg/errors"
	"github.com/quarry-data/quarry/pkg/logger"
	"github.com/quarry-data/quarry/pkg/metrics"
	"github.com/quarry-data/quarry/pkg/objectstore"
)

const (
	defaultMaxScenes   = 800
	defaultListLimit   = 1000
	defaultSceneFilter = "PS-RGB_img"
	defaultResultDir   = "batch/results"

	sceneSuffix = ".tif"
)

// Report holds the statistics for one analysis run
type Report struct {
	TotalImagesProcessed  int         `json:"total_images_processed"`
	TotalPixelsAnalyzed   int         `json:"total_pixels_analyzed"`
	CityAverageBrightness float64     `json:"city_average_brightness"`
	CityContrastScore     float64     `json:"city_contrast_score"`
	BrightnessPercentiles Percentiles `json:"brightness_percentiles"`
	MemoryUsedGB          float64     `json:"memory_used_gb"`
}

// Percentiles holds the brightness distribution quantiles
type Percentiles struct {
	P25 float64 `json:"25th"`
	P50 float64 `json:"50th"`
	P75 float64 `json:"75th"`
	P95 float64 `json:"95th"`
}

// Analyzer runs brightness analysis over scenes in object storage
type Analyzer struct {
	store       objectstore.Store
	logger      *zap.Logger
	maxScenes   int
	listLimit   int
	sceneFilter string
	resultDir   string
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithLogger overrides the default logger
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// WithMaxScenes caps the number of scenes loaded
func WithMaxScenes(n int) Option {
	return func(a *Analyzer) {
		a.maxScenes = n
	}
}

// WithSceneFilter sets the substring scene keys must contain
func WithSceneFilter(s string) Option {
	return func(a *Analyzer) {
		a.sceneFilter = s
	}
}

// New creates an Analyzer bound to a store
func New(store objectstore.Store, opts ...Option) *Analyzer {
	a := &Analyzer{
		store:       store,
		logger:      logger.Get(),
		maxScenes:   defaultMaxScenes,
		listLimit:   defaultListLimit,
		sceneFilter: defaultSceneFilter,
		resultDir:   defaultResultDir,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ParseTrigger parses a trigger config body of the form
// "s3://bucket/prefix" into its bucket and prefix parts.
func ParseTrigger(body []byte) (bucket, prefix string, err error) {
	content := strings.TrimSpace(string(body))
	if !strings.HasPrefix(content, "s3://") {
		return "", "", errors.New(errors.ErrorTypeValidation, "trigger config must contain an s3:// path").
			WithDetail("content", content)
	}

	parts := strings.SplitN(strings.TrimPrefix(content, "s3://"), "/", 2)
	bucket = parts[0]
	if bucket == "" {
		return "", "", errors.New(errors.ErrorTypeValidation, "trigger config has empty bucket")
	}
	if len(parts) > 1 {
		prefix = parts[1]
	}
	return bucket, prefix, nil
}

// DeriveResultKey maps a trigger key to the result object key
func (a *Analyzer) DeriveResultKey(triggerKey string) string {
	base := path.Base(triggerKey)
	base = strings.TrimSuffix(base, path.Ext(base))
	return path.Join(a.resultDir, base+"_brightness_analysis.json")
}

// Run reads the trigger config at triggerBucket/triggerKey, analyzes the
// configured scene set, and uploads the JSON report back to the trigger
// bucket. It returns the report and the key it was written to.
func (a *Analyzer) Run(ctx context.Context, triggerBucket, triggerKey string) (*Report, string, error) {
	start := time.Now()
	log := a.logger.With(
		zap.String("trigger_bucket", triggerBucket),
		zap.String("trigger_key", triggerKey),
	)

	body, err := a.store.Get(ctx, triggerBucket, triggerKey)
	if err != nil {
		return nil, "", errors.Wrap(err, errors.ErrorTypeRead, "failed to read trigger config")
	}

	srcBucket, srcPrefix, err := ParseTrigger(body)
	if err != nil {
		return nil, "", err
	}

	log.Info("starting brightness analysis",
		zap.String("source_bucket", srcBucket),
		zap.String("source_prefix", srcPrefix))

	report, err := a.Analyze(ctx, srcBucket, srcPrefix)
	if err != nil {
		return nil, "", err
	}

	resultKey := a.DeriveResultKey(triggerKey)
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to marshal report")
	}

	if err := a.store.Put(ctx, triggerBucket, resultKey, bytes.NewReader(payload), "application/json"); err != nil {
		return nil, "", errors.Wrap(err, errors.ErrorTypeWrite, "failed to upload report")
	}

	metrics.BrightnessDuration.Observe(time.Since(start).Seconds())
	log.Info("brightness analysis complete",
		zap.String("result_key", resultKey),
		zap.Int("images", report.TotalImagesProcessed),
		zap.Int("pixels", report.TotalPixelsAnalyzed),
		zap.Duration("duration", time.Since(start)))

	return report, resultKey, nil
}

// Analyze loads scenes under bucket/prefix and computes the report.
// Individual scenes that fail to load or decode are skipped with a warning;
// an empty result set is a Data error.
func (a *Analyzer) Analyze(ctx context.Context, bucket, prefix string) (*Report, error) {
	keys, err := a.store.List(ctx, bucket, prefix, a.listLimit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeRead, "failed to list scenes")
	}

	scenes := make([]string, 0, a.maxScenes)
	for _, key := range keys {
		if !strings.HasSuffix(key, sceneSuffix) {
			continue
		}
		if a.sceneFilter != "" && !strings.Contains(key, a.sceneFilter) {
			continue
		}
		scenes = append(scenes, key)
		if len(scenes) == a.maxScenes {
			break
		}
	}

	a.logger.Info("loading scenes",
		zap.String("bucket", bucket),
		zap.String("prefix", prefix),
		zap.Int("count", len(scenes)))

	// All pixels from all scenes are held simultaneously; this is the
	// memory-intensive step the job exists to demonstrate.
	var pixels []float64
	loaded := 0
	for i, key := range scenes {
		if i > 0 && i%100 == 0 {
			a.logger.Info("loading progress", zap.Int("loaded", i), zap.Int("total", len(scenes)))
		}

		scenePixels, err := a.loadScene(ctx, bucket, key)
		if err != nil {
			a.logger.Warn("skipping scene", zap.String("key", key), zap.Error(err))
			metrics.ScenesSkipped.Inc()
			continue
		}
		pixels = append(pixels, scenePixels...)
		loaded++
		metrics.ScenesLoaded.Inc()
	}

	if loaded == 0 {
		return nil, errors.New(errors.ErrorTypeData, "no valid scenes could be loaded").
			WithDetail("bucket", bucket).
			WithDetail("prefix", prefix)
	}

	mean, err := stats.Mean(pixels)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to compute mean brightness")
	}
	contrast, err := stats.StandardDeviationPopulation(pixels)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to compute contrast")
	}

	percentiles := [4]float64{}
	for i, p := range []float64{25, 50, 75, 95} {
		v, err := stats.Percentile(pixels, p)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to compute percentile")
		}
		percentiles[i] = v
	}

	return &Report{
		// Counts every scene attempted, including skipped ones; "loaded"
		// only guards the empty-population case above.
		TotalImagesProcessed:  len(scenes),
		TotalPixelsAnalyzed:   len(pixels),
		CityAverageBrightness: mean,
		CityContrastScore:     contrast,
		BrightnessPercentiles: Percentiles{
			P25: percentiles[0],
			P50: percentiles[1],
			P75: percentiles[2],
			P95: percentiles[3],
		},
		// The pixel slice is the dominant allocation; 8 bytes per value.
		MemoryUsedGB: float64(len(pixels)) * 8 / (1 << 30),
	}, nil
}

// loadScene downloads and decodes one scene, returning its grayscale
// pixel values on an 8-bit scale.
func (a *Analyzer) loadScene(ctx context.Context, bucket, key string) ([]float64, error) {
	data, err := a.store.Get(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode scene")
	}

	bounds := img.Bounds()
	pixels := make([]float64, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA returns 16-bit channels; scale the channel mean back
			// to the 8-bit range the source rasters use.
			gray := (float64(r) + float64(g) + float64(b)) / 3.0 / 257.0
			pixels = append(pixels, gray)
		}
	}
	return pixels, nil
}
