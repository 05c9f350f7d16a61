// Package config loads predgt run configuration from YAML files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate for unusable settings.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config represents the complete predgt configuration.
type Config struct {
	// Dataset shape and search settings
	Generate GenerateConfig `yaml:"generate" json:"generate"`

	// Dataset file settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Optional publication target
	Publish PublishConfig `yaml:"publish" json:"publish"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// GenerateConfig describes the synthetic corpus, the queries and the search.
type GenerateConfig struct {
	N       int    `yaml:"n" json:"n"`
	P       int    `yaml:"p" json:"p"`
	X       int    `yaml:"x" json:"x"`
	Seed    int64  `yaml:"seed" json:"seed"`
	Metric  string `yaml:"metric" json:"metric"`
	K       int    `yaml:"k" json:"k"`
	Workers int    `yaml:"workers" json:"workers"`
}

// OutputConfig contains dataset file settings.
type OutputConfig struct {
	Path        string `yaml:"path" json:"path"`
	Compression string `yaml:"compression" json:"compression"`
}

// PublishConfig contains publication settings.
type PublishConfig struct {
	// Target is local://dir, s3://bucket/prefix or minio://endpoint/bucket/prefix.
	// Empty disables publishing.
	Target string `yaml:"target" json:"target"`

	// CatalogTable is the DynamoDB table publications are recorded in.
	CatalogTable string `yaml:"catalog_table" json:"catalog_table"`

	// Static credentials. Required for minio:// targets; for s3:// targets
	// they replace the AWS default credential chain when set.
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	Secure    bool   `yaml:"secure" json:"secure"`

	// Region and Endpoint override the AWS settings for s3:// targets,
	// e.g. for LocalStack or another S3-compatible service.
	Region   string `yaml:"region" json:"region"`
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// Multipart upload tuning for s3:// targets
	PartSize    int64 `yaml:"part_size" json:"part_size"`
	Concurrency int   `yaml:"concurrency" json:"concurrency"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig contains Prometheus export settings.
type MetricsConfig struct {
	// Addr serves /metrics while the run is in progress (e.g. ":2112").
	Addr string `yaml:"addr" json:"addr"`
	// File receives the final metrics in the node_exporter textfile format.
	File string `yaml:"file" json:"file"`
}

// Default returns the default configuration. N, P, X and the output path
// have no defaults and must be supplied.
func Default() *Config {
	return &Config{
		Generate: GenerateConfig{
			Seed:   4242,
			Metric: "l2",
			K:      100,
		},
		Output: OutputConfig{
			Compression: "none",
		},
		Publish: PublishConfig{
			PartSize:    8 * 1024 * 1024,
			Concurrency: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults and applies PREDGT_* environment
// overrides. An empty path skips the file. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("PREDGT_PUBLISH"); v != "" {
		cfg.Publish.Target = v
	}
	if v := os.Getenv("PREDGT_CATALOG_TABLE"); v != "" {
		cfg.Publish.CatalogTable = v
	}
	if v := os.Getenv("PREDGT_MINIO_ACCESS_KEY"); v != "" {
		cfg.Publish.AccessKey = v
	}
	if v := os.Getenv("PREDGT_MINIO_SECRET_KEY"); v != "" {
		cfg.Publish.SecretKey = v
	}
	if v := os.Getenv("PREDGT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Generate.Workers = n
		}
	}
	if v := os.Getenv("PREDGT_S3_ENDPOINT"); v != "" {
		cfg.Publish.Endpoint = v
	}
	if v := os.Getenv("PREDGT_METRICS_FILE"); v != "" {
		cfg.Metrics.File = v
	}
	if v := os.Getenv("PREDGT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks every field; failures wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	g := c.Generate
	if g.N <= 0 || g.P <= 0 || g.X <= 0 {
		return fmt.Errorf("%w: n, p and x must be positive (n=%d p=%d x=%d)", ErrInvalidConfig, g.N, g.P, g.X)
	}
	if g.K <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, g.K)
	}
	if g.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, g.Workers)
	}

	validMetrics := map[string]bool{
		"l2":        true,
		"euclidean": true,
		"cosine":    true,
		"angular":   true,
	}
	if !validMetrics[strings.ToLower(g.Metric)] {
		return fmt.Errorf("%w: invalid distance metric: %s", ErrInvalidConfig, g.Metric)
	}

	if c.Output.Path == "" {
		return fmt.Errorf("%w: output path is required", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Output.Compression) {
	case "", "none", "lz4", "zstd":
	default:
		return fmt.Errorf("%w: invalid compression: %s", ErrInvalidConfig, c.Output.Compression)
	}

	if t := c.Publish.Target; t != "" {
		if _, err := ParseTarget(t); err != nil {
			return err
		}
	}
	if c.Publish.CatalogTable != "" && !strings.HasPrefix(c.Publish.Target, "s3://") {
		return fmt.Errorf("%w: catalog_table requires an s3:// publish target", ErrInvalidConfig)
	}
	if (c.Publish.AccessKey == "") != (c.Publish.SecretKey == "") {
		return fmt.Errorf("%w: access_key and secret_key must be set together", ErrInvalidConfig)
	}
	if c.Publish.PartSize < 0 || c.Publish.Concurrency < 0 {
		return fmt.Errorf("%w: part_size and concurrency must not be negative", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: invalid log level: %s", ErrInvalidConfig, c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: invalid log format: %s", ErrInvalidConfig, c.Logging.Format)
	}

	return nil
}
