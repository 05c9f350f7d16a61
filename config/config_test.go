package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Generate.N = 1000
	cfg.Generate.P = 8
	cfg.Generate.X = 5
	cfg.Output.Path = "out.pgt"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 100, cfg.Generate.K)
	assert.Equal(t, "l2", cfg.Generate.Metric)
	assert.Equal(t, "none", cfg.Output.Compression)

	// Shape and path are required.
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	assert.NoError(t, validConfig().Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predgt.yaml")
	yml := `
generate:
  n: 2000
  p: 16
  x: 10
  seed: 7
  metric: cosine
  workers: 4
output:
  path: /tmp/run.pgt
  compression: zstd
publish:
  target: s3://bucket/datasets
  catalog_table: predgt-datasets
logging:
  level: debug
  format: json
metrics:
  file: /tmp/predgt.prom
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2000, cfg.Generate.N)
	assert.Equal(t, 16, cfg.Generate.P)
	assert.Equal(t, 10, cfg.Generate.X)
	assert.Equal(t, int64(7), cfg.Generate.Seed)
	assert.Equal(t, "cosine", cfg.Generate.Metric)
	assert.Equal(t, 100, cfg.Generate.K) // default kept
	assert.Equal(t, 4, cfg.Generate.Workers)
	assert.Equal(t, "zstd", cfg.Output.Compression)
	assert.Equal(t, "predgt-datasets", cfg.Publish.CatalogTable)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/predgt.prom", cfg.Metrics.File)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generate: [1, 2"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PREDGT_PUBLISH", "local:///tmp/pub")
	t.Setenv("PREDGT_WORKERS", "3")
	t.Setenv("PREDGT_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "local:///tmp/pub", cfg.Publish.Target)
	assert.Equal(t, 3, cfg.Generate.Workers)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero n", func(c *Config) { c.Generate.N = 0 }},
		{"negative p", func(c *Config) { c.Generate.P = -1 }},
		{"zero x", func(c *Config) { c.Generate.X = 0 }},
		{"zero k", func(c *Config) { c.Generate.K = 0 }},
		{"negative workers", func(c *Config) { c.Generate.Workers = -2 }},
		{"bad metric", func(c *Config) { c.Generate.Metric = "hamming" }},
		{"no output", func(c *Config) { c.Output.Path = "" }},
		{"bad compression", func(c *Config) { c.Output.Compression = "gzip" }},
		{"bad target", func(c *Config) { c.Publish.Target = "ftp://host" }},
		{"catalog without s3", func(c *Config) { c.Publish.CatalogTable = "t" }},
		{"half credentials", func(c *Config) { c.Publish.AccessKey = "ak" }},
		{"negative part size", func(c *Config) { c.Publish.PartSize = -1 }},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    Target
		wantErr bool
	}{
		{in: "local:///tmp/out", want: Target{Scheme: "local", Prefix: "/tmp/out"}},
		{in: "s3://bucket", want: Target{Scheme: "s3", Bucket: "bucket"}},
		{in: "s3://bucket/a/b", want: Target{Scheme: "s3", Bucket: "bucket", Prefix: "a/b"}},
		{in: "minio://localhost:9000/bucket", want: Target{Scheme: "minio", Endpoint: "localhost:9000", Bucket: "bucket"}},
		{in: "minio://localhost:9000/bucket/p", want: Target{Scheme: "minio", Endpoint: "localhost:9000", Bucket: "bucket", Prefix: "p"}},
		{in: "s3:///prefix", wantErr: true},
		{in: "minio://localhost:9000", wantErr: true},
		{in: "minio://localhost:9000//prefix", wantErr: true},
		{in: "bucket/prefix", wantErr: true},
		{in: "gs://bucket", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
