// Package config defines process configuration and its layered loading.
//
// Conventions:
// - New returns a Config holding every default.
// - Load layers a YAML file ($FMT_CONFIG) and FMT_* env vars on top.
// - Validation errors wrap ErrInvalidConfig; source errors wrap ErrLoadConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/lizgehret/q2-fmt/internal/adapters/blob"
	"github.com/lizgehret/q2-fmt/internal/adapters/blob/core"
	"github.com/lizgehret/q2-fmt/internal/adapters/blob/s3"
	"github.com/lizgehret/q2-fmt/internal/domain/comparison"
	"github.com/lizgehret/q2-fmt/pkg/logger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log records.
	LogFormat string `koanf:"log_format"`

	// AlphaPolicy is the default alpha comparison: raw, difference or ratio.
	AlphaPolicy string `koanf:"alpha_policy"`

	// Delimiter of input tables: "auto" (detect), "tab", "comma" or a
	// single character.
	Delimiter string `koanf:"delimiter"`

	// WorkerCount sets the number of batch workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the batch queue.
	QueueSize int `koanf:"queue_size"`

	// RegistryPath, when set, keeps the run registry in a SQLite database
	// so job ids stay claimed across invocations. Empty keeps it in memory.
	RegistryPath string `koanf:"registry_path"`

	// MetricsFile, when set, receives a Prometheus textfile after each command.
	MetricsFile string `koanf:"metrics_file"`

	// Blob storage for packaged artifacts.
	BlobDriver string `koanf:"blob_driver"`
	BlobRoot   string `koanf:"blob_root"`

	S3Bucket          string `koanf:"s3_bucket"`
	S3Region          string `koanf:"s3_region"`
	S3Endpoint        string `koanf:"s3_endpoint"`
	S3PathStyle       bool   `koanf:"s3_path_style"`
	S3AccessKeyID     string `koanf:"s3_access_key_id"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   string(logger.FormatText),
		AlphaPolicy: string(comparison.DefaultPolicy),
		Delimiter:   "auto",
		WorkerCount: runtime.NumCPU(),
		QueueSize:   1024,
		BlobDriver:  string(core.DriverFilesystem),
		BlobRoot:    "./artifacts",
		S3Region:    "us-east-1",
	}
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := logger.ParseFormat(c.LogFormat); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.DelimiterRune(); err != nil {
		return err
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	}
	switch core.Driver(c.BlobDriver) {
	case core.DriverFilesystem:
		if strings.TrimSpace(c.BlobRoot) == "" {
			return fmt.Errorf("%w: blob_root must not be empty for the fs driver", ErrInvalidConfig)
		}
	case core.DriverS3:
		if strings.TrimSpace(c.S3Bucket) == "" {
			return fmt.Errorf("%w: s3_bucket is required for the s3 driver", ErrInvalidConfig)
		}
	case core.DriverMemory:
	default:
		return fmt.Errorf("%w: unknown blob_driver %q", ErrInvalidConfig, c.BlobDriver)
	}
	return nil
}

// Policy parses AlphaPolicy.
func (c *Config) Policy() (comparison.Policy, error) {
	return comparison.ParsePolicy(c.AlphaPolicy)
}

// DelimiterRune resolves Delimiter. Zero means detect.
func (c *Config) DelimiterRune() (rune, error) {
	// single characters are taken verbatim, including a literal tab
	if utf8.RuneCountInString(c.Delimiter) == 1 {
		r, _ := utf8.DecodeRuneInString(c.Delimiter)
		if r == '"' || r == '\n' || r == '\r' || r == ' ' || r == utf8.RuneError {
			return 0, fmt.Errorf("%w: delimiter %q is not usable", ErrInvalidConfig, c.Delimiter)
		}
		return r, nil
	}
	switch strings.ToLower(strings.TrimSpace(c.Delimiter)) {
	case "", "auto":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	}
	return 0, fmt.Errorf("%w: delimiter must be auto, tab, comma or one character, got %q", ErrInvalidConfig, c.Delimiter)
}

// Blob returns the blob store configuration.
func (c *Config) Blob() blob.Config {
	return blob.Config{
		Driver: core.Driver(c.BlobDriver),
		Root:   c.BlobRoot,
		S3: s3.Config{
			Region:          c.S3Region,
			Bucket:          c.S3Bucket,
			Endpoint:        c.S3Endpoint,
			AccessKeyID:     c.S3AccessKeyID,
			SecretAccessKey: c.S3SecretAccessKey,
			PathStyle:       c.S3PathStyle,
		},
	}
}
