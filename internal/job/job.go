// Package job wires configuration, storage, and the conversion and
// analysis components into runnable jobs. Both invocation surfaces (the
// CLI and the Lambda handler) go through a Runner; the surfaces only
// translate their trigger format and propagate results.
package job

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/quarry-data/quarry/pkg/brightness"
	"github.com/quarry-data/quarry/pkg/config"
	"github.com/quarry-data/quarry/pkg/convert"
	"github.com/quarry-data/quarry/pkg/logger"
	"github.com/quarry-data/quarry/pkg/objectstore"
)

// FileResult describes the outcome of one file conversion
type FileResult struct {
	SourceFile string `json:"source_file"`
	OutputFile string `json:"output_file"`
	Bucket     string `json:"bucket"`
	Status     string `json:"status"`
}

// Response is the structured payload returned by request/response surfaces
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Runner executes conversion and analysis jobs against one store
type Runner struct {
	cfg       *config.JobConfig
	store     objectstore.Store
	converter *convert.Converter
	analyzer  *brightness.Analyzer
	logger    *zap.Logger
}

// NewRunner builds a Runner backed by S3 in the configured region
func NewRunner(ctx context.Context, cfg *config.JobConfig) (*Runner, error) {
	store, err := objectstore.NewS3Store(ctx, cfg.AWS.Region)
	if err != nil {
		return nil, err
	}
	return NewRunnerWithStore(cfg, store), nil
}

// NewRunnerWithStore builds a Runner on an injected store
func NewRunnerWithStore(cfg *config.JobConfig, store objectstore.Store) *Runner {
	log := logger.Get()
	return &Runner{
		cfg:       cfg,
		store:     store,
		converter: convert.New(store, convert.WithLogger(log)),
		analyzer: brightness.New(store,
			brightness.WithLogger(log),
			brightness.WithMaxScenes(cfg.Brightness.MaxScenes),
			brightness.WithSceneFilter(cfg.Brightness.SceneFilter)),
		logger: log,
	}
}

// ConvertFile converts a single CSV object and reports the outcome
func (r *Runner) ConvertFile(ctx context.Context, bucket, key string) (*FileResult, error) {
	ctx = context.WithValue(ctx, logger.BucketKey, bucket)
	ctx = context.WithValue(ctx, logger.ObjectKey, key)
	logger.WithContext(ctx).Info("processing csv file")

	outputKey, err := r.converter.Convert(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	return &FileResult{
		SourceFile: key,
		OutputFile: outputKey,
		Bucket:     bucket,
		Status:     "success",
	}, nil
}

// RunBrightness runs the brightness analysis for a trigger object
func (r *Runner) RunBrightness(ctx context.Context, bucket, triggerKey string) (*brightness.Report, string, error) {
	return r.analyzer.Run(ctx, bucket, triggerKey)
}

// SuccessResponse builds the 200 payload for a processed batch
func SuccessResponse(results []FileResult) Response {
	body, err := json.Marshal(map[string]interface{}{
		"message": fmt.Sprintf("Successfully processed %d files", len(results)),
		"results": results,
	})
	if err != nil {
		return Response{StatusCode: 200}
	}
	return Response{StatusCode: 200, Body: string(body)}
}

// FailureResponse builds the 500 payload carrying the error message
func FailureResponse(err error) Response {
	body, merr := json.Marshal(map[string]interface{}{
		"error": err.Error(),
	})
	if merr != nil {
		return Response{StatusCode: 500, Body: err.Error()}
	}
	return Response{StatusCode: 500, Body: string(body)}
}
