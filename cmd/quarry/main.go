package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quarry-data/quarry/internal/job"
	"github.com/quarry-data/quarry/pkg/config"
	"github.com/quarry-data/quarry/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var configFile, logLevel, region string

	root := &cobra.Command{
		Use:   "quarry",
		Short: "Quarry - cloud-triggered data-conversion jobs",
		Long: `Quarry runs small data-conversion jobs against object storage:
a CSV to Parquet converter for landing-zone files and a memory-intensive
satellite brightness analyzer. Both are also exposed as a Lambda handler
for event-driven invocation; this CLI is the batch-style surface.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().StringVar(&region, "region", "", "override the configured AWS region")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Quarry v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "convert <bucket> <csv-key>",
		Short: "Convert a CSV object to Parquet",
		Long: `Convert reads the CSV object at <bucket>/<csv-key>, normalizes its
column names, applies the declared column types, and writes a
snappy-compressed Parquet object next to the source.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := setup(cmd.Context(), configFile, logLevel, region)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			bucket, key := args[0], args[1]
			logger.Info("starting csv to parquet conversion job",
				zap.String("bucket", bucket),
				zap.String("key", key))

			result, err := runner.ConvertFile(cmd.Context(), bucket, key)
			if err != nil {
				logger.Error("job failed", zap.Error(err))
				return err
			}

			logger.Info("job completed",
				zap.String("output_key", result.OutputFile))
			fmt.Printf("s3://%s/%s\n", result.Bucket, result.OutputFile)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "brightness <trigger-bucket> <trigger-key>",
		Short: "Run the satellite brightness analysis",
		Long: `Brightness reads a trigger config object containing an s3://bucket/prefix
line, loads the scene rasters under that prefix fully into memory, and
uploads a JSON report with city-wide brightness statistics.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := setup(cmd.Context(), configFile, logLevel, region)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			bucket, key := args[0], args[1]
			logger.Info("starting brightness analysis job",
				zap.String("trigger_bucket", bucket),
				zap.String("trigger_key", key))

			report, resultKey, err := runner.RunBrightness(cmd.Context(), bucket, key)
			if err != nil {
				logger.Error("job failed", zap.Error(err))
				return err
			}

			logger.Info("job completed", zap.String("result_key", resultKey))

			payload, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration, applies flag overrides, initializes the
// logger, and builds the job runner.
func setup(ctx context.Context, configFile, logLevel, region string) (*job.Runner, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if region != "" {
		cfg.AWS.Region = region
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Encoding:    cfg.Logging.Encoding,
		Development: cfg.Logging.Development,
	}); err != nil {
		return nil, err
	}

	return job.NewRunner(ctx, cfg)
}
