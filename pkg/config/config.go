// Package config provides the configuration for Quarry jobs.
//
// Configuration is loaded from an optional YAML file via viper, with
// environment variable overrides under the QUARRY_ prefix
// (e.g. QUARRY_AWS_REGION). All fields have working defaults so both
// invocation surfaces can run with no config file at all.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/quarry-data/quarry/pkg/errors"
)

// JobConfig is the top-level configuration for a conversion or analysis job
type JobConfig struct {
	// AWS holds client settings for object storage access
	AWS AWSConfig `mapstructure:"aws" yaml:"aws"`

	// Logging configures the structured logger
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Brightness configures the brightness analysis job
	Brightness BrightnessConfig `mapstructure:"brightness" yaml:"brightness"`
}

// AWSConfig holds AWS client settings
type AWSConfig struct {
	// Region is the AWS region for the S3 client
	Region string `mapstructure:"region" yaml:"region"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `mapstructure:"level" yaml:"level"`
	// Encoding selects json or console output
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
	// Development enables colored, stack-traced output
	Development bool `mapstructure:"development" yaml:"development"`
}

// BrightnessConfig holds brightness job settings
type BrightnessConfig struct {
	// MaxScenes caps the number of scenes loaded into memory
	MaxScenes int `mapstructure:"max_scenes" yaml:"max_scenes"`
	// SceneFilter is the substring scene keys must contain
	SceneFilter string `mapstructure:"scene_filter" yaml:"scene_filter"`
}

// Default returns a JobConfig with all defaults applied
func Default() *JobConfig {
	return &JobConfig{
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Brightness: BrightnessConfig{
			MaxScenes:   800,
			SceneFilter: "PS-RGB_img",
		},
	}
}

// Load reads configuration from the given file path (optional; empty path
// skips the file) and the environment, on top of defaults.
func Load(path string) (*JobConfig, error) {
	v := viper.New()

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "json")
	v.SetDefault("logging.development", false)
	v.SetDefault("brightness.max_scenes", 800)
	v.SetDefault("brightness.scene_filter", "PS-RGB_img")

	v.SetEnvPrefix("QUARRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
				WithDetail("path", path)
		}
	}

	cfg := &JobConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies
func (c *JobConfig) Validate() error {
	if c.AWS.Region == "" {
		return errors.New(errors.ErrorTypeConfig, "aws.region cannot be empty")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New(errors.ErrorTypeConfig, "invalid logging.level").
			WithDetail("level", c.Logging.Level)
	}

	switch c.Logging.Encoding {
	case "json", "console":
	default:
		return errors.New(errors.ErrorTypeConfig, "invalid logging.encoding").
			WithDetail("encoding", c.Logging.Encoding)
	}

	if c.Brightness.MaxScenes <= 0 {
		return errors.New(errors.ErrorTypeConfig, "brightness.max_scenes must be positive").
			WithDetail("max_scenes", c.Brightness.MaxScenes)
	}

	return nil
}
