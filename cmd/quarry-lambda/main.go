// Lambda surface for the CSV to Parquet converter. The handler receives S3
// object-created notifications, converts each referenced object, and
// returns a structured payload so failures are visible to the caller as
// well as in the logs.
package main

import (
	"context"
	"net/url"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"github.com/quarry-data/quarry/internal/job"
	"github.com/quarry-data/quarry/pkg/config"
	"github.com/quarry-data/quarry/pkg/errors"
	"github.com/quarry-data/quarry/pkg/logger"
)

// Built once during the init phase and reused across invocations.
var runner *job.Runner

func handler(ctx context.Context, event events.S3Event) (job.Response, error) {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		ctx = context.WithValue(ctx, logger.JobIDKey, lc.AwsRequestID)
	}

	results := make([]job.FileResult, 0, len(event.Records))

	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key := record.S3.Object.Key

		if bucket == "" || key == "" {
			err := errors.New(errors.ErrorTypeValidation,
				"missing bucket name or object key in S3 event record")
			logger.Error("failed to process S3 event", zap.Error(err))
			return job.FailureResponse(err), nil
		}

		// Object keys arrive URL-encoded in S3 events
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}

		result, err := runner.ConvertFile(ctx, bucket, key)
		if err != nil {
			logger.Error("failed to process S3 event",
				zap.String("bucket", bucket),
				zap.String("key", key),
				zap.Error(err))
			return job.FailureResponse(err), nil
		}
		results = append(results, *result)
	}

	return job.SuccessResponse(results), nil
}

func main() {
	cfg, err := config.Load(os.Getenv("QUARRY_CONFIG"))
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	if err := logger.Init(logger.Config{
		Level:    cfg.Logging.Level,
		Encoding: cfg.Logging.Encoding,
	}); err != nil {
		logger.Fatal("failed to initialize logger", zap.Error(err))
	}

	runner, err = job.NewRunner(context.Background(), cfg)
	if err != nil {
		logger.Fatal("failed to initialize job runner", zap.Error(err))
	}

	lambda.Start(handler)
}
