// Command predgt generates a predicate-filtered nearest-neighbor ground-truth
// dataset.
//
// Usage:
//
//	predgt -n 10000 -p 128 -x 1000 -out gt.pgt [-metric cosine] [-publish s3://bucket/prefix]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/predgt"
	"github.com/hupe1980/predgt/blobstore"
	minioblob "github.com/hupe1980/predgt/blobstore/minio"
	"github.com/hupe1980/predgt/blobstore/s3"
	"github.com/hupe1980/predgt/config"
	"github.com/hupe1980/predgt/dataset"
	"github.com/hupe1980/predgt/distance"
	"github.com/hupe1980/predgt/observability"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case errors.Is(err, predgt.ErrConfiguration):
		fmt.Fprintf(os.Stderr, "predgt: %v\n", err)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "predgt: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("predgt", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath   = fs.String("config", "", "YAML configuration file")
		n            = fs.Int("n", 0, "Corpus size")
		p            = fs.Int("p", 0, "Vector dimensionality")
		x            = fs.Int("x", 0, "Number of queries")
		out          = fs.String("out", "", "Output dataset path")
		metric       = fs.String("metric", "l2", "Neighbor semantics: l2, cosine")
		seed         = fs.Int64("seed", predgt.DefaultSeed, "Random seed")
		k            = fs.Int("k", 100, "Neighbors per query")
		workers      = fs.Int("workers", 0, "Parallel query searches (0 = GOMAXPROCS)")
		compression  = fs.String("compression", "none", "Block compression: none, lz4, zstd")
		publish      = fs.String("publish", "", "Publish target: local://dir, s3://bucket/prefix, minio://endpoint/bucket/prefix")
		catalogTable = fs.String("catalog-table", "", "DynamoDB table to record s3 publications in")
		logLevel     = fs.String("log-level", "info", "Log level: debug, info, warn, error")
		logFormat    = fs.String("log-format", "text", "Log format: text, json")
		metricsAddr  = fs.String("metrics-addr", "", "Serve Prometheus metrics on this address during the run")
		metricsFile  = fs.String("metrics-file", "", "Write final Prometheus metrics to this textfile")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return &predgt.ConfigurationError{Op: "load config", Err: err}
	}

	// Flags given on the command line override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "n":
			cfg.Generate.N = *n
		case "p":
			cfg.Generate.P = *p
		case "x":
			cfg.Generate.X = *x
		case "out":
			cfg.Output.Path = *out
		case "metric":
			cfg.Generate.Metric = *metric
		case "seed":
			cfg.Generate.Seed = *seed
		case "k":
			cfg.Generate.K = *k
		case "workers":
			cfg.Generate.Workers = *workers
		case "compression":
			cfg.Output.Compression = *compression
		case "publish":
			cfg.Publish.Target = *publish
		case "catalog-table":
			cfg.Publish.CatalogTable = *catalogTable
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "log-format":
			cfg.Logging.Format = *logFormat
		case "metrics-addr":
			cfg.Metrics.Addr = *metricsAddr
		case "metrics-file":
			cfg.Metrics.File = *metricsFile
		}
	})

	if err := cfg.Validate(); err != nil {
		return &predgt.ConfigurationError{Op: "validate config", Err: err}
	}

	logger := newLogger(cfg.Logging, stderr)

	opts, err := buildOptions(ctx, cfg, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	opts = append(opts, predgt.WithMetricsCollector(observability.NewPrometheusCollector(reg)))
	if cfg.Metrics.Addr != "" {
		shutdown, err := serveMetrics(cfg.Metrics.Addr, reg, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	params := predgt.Params{N: cfg.Generate.N, P: cfg.Generate.P, X: cfg.Generate.X}
	res, err := predgt.Run(ctx, params, cfg.Output.Path, opts...)
	if cfg.Metrics.File != "" {
		if werr := prometheus.WriteToTextfile(cfg.Metrics.File, reg); werr != nil {
			logger.Error("failed to write metrics file", "path", cfg.Metrics.File, "error", werr)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "dataset %s: %d train, %d test, k=%d, %d degenerate, %d bytes -> %s\n",
		res.Dataset.ID, len(res.Dataset.Train), len(res.Dataset.Test), res.Dataset.K(),
		res.Neighbors.Degenerate, res.Bytes, res.Path)
	if res.Location != "" {
		fmt.Fprintf(stdout, "published: %s\n", res.Location)
	}
	return nil
}

func buildOptions(ctx context.Context, cfg *config.Config, logger *predgt.Logger) ([]predgt.Option, error) {
	m, err := distance.ParseMetric(cfg.Generate.Metric)
	if err != nil {
		return nil, &predgt.ConfigurationError{Op: "metric", Err: fmt.Errorf("%w: %w", predgt.ErrUnsupportedMetric, err)}
	}
	c, err := dataset.ParseCompression(cfg.Output.Compression)
	if err != nil {
		return nil, &predgt.ConfigurationError{Op: "compression", Err: fmt.Errorf("%w: %w", predgt.ErrUnsupportedCompression, err)}
	}

	opts := []predgt.Option{
		predgt.WithSeed(cfg.Generate.Seed),
		predgt.WithMetric(m),
		predgt.WithK(cfg.Generate.K),
		predgt.WithWorkers(cfg.Generate.Workers),
		predgt.WithCompression(c),
		predgt.WithLogger(logger),
	}

	if cfg.Publish.Target == "" {
		return opts, nil
	}

	store, catalog, err := newPublisher(ctx, cfg.Publish)
	if err != nil {
		return nil, err
	}
	opts = append(opts, predgt.WithPublisher(store, ""))
	if catalog != nil {
		opts = append(opts, predgt.WithCatalog(catalog))
	}
	return opts, nil
}

func newPublisher(ctx context.Context, pc config.PublishConfig) (blobstore.Store, blobstore.Catalog, error) {
	target, err := config.ParseTarget(pc.Target)
	if err != nil {
		return nil, nil, &predgt.ConfigurationError{Op: "publish target", Err: err}
	}

	switch target.Scheme {
	case "local":
		return blobstore.NewLocalStore(target.Prefix), nil, nil
	case "s3":
		var loadOpts []func(*awsconfig.LoadOptions) error
		if pc.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(pc.Region))
		}
		if pc.AccessKey != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(pc.AccessKey, pc.SecretKey, ""),
			))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		upload := s3.DefaultUploadConfig()
		if pc.PartSize > 0 {
			upload.PartSize = pc.PartSize
		}
		if pc.Concurrency > 0 {
			upload.Concurrency = pc.Concurrency
		}
		client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
			if pc.Endpoint != "" {
				o.BaseEndpoint = aws.String(pc.Endpoint)
				o.UsePathStyle = true
			}
		})
		store := s3.NewStore(client, target.Bucket, target.Prefix, s3.WithUploadConfig(upload))

		var catalog blobstore.Catalog
		if pc.CatalogTable != "" {
			catalog = s3.NewCatalog(dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
				if pc.Endpoint != "" {
					o.BaseEndpoint = aws.String(pc.Endpoint)
				}
			}), pc.CatalogTable)
		}
		return store, catalog, nil
	case "minio":
		client, err := minio.New(target.Endpoint, &minio.Options{
			Creds:  miniocreds.NewStaticV4(pc.AccessKey, pc.SecretKey, ""),
			Secure: pc.Secure,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create MinIO client: %w", err)
		}
		return minioblob.NewStore(client, target.Bucket, target.Prefix), nil, nil
	default:
		return nil, nil, &predgt.ConfigurationError{Op: "publish target", Err: fmt.Errorf("%w: %s", config.ErrInvalidConfig, target.Scheme)}
	}
}

// serveMetrics exposes reg on addr until the returned shutdown is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *predgt.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &predgt.ConfigurationError{Op: "metrics listener", Err: err}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func newLogger(lc config.LoggingConfig, w io.Writer) *predgt.Logger {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	hopts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(lc.Format) == "json" {
		return predgt.NewLogger(slog.NewJSONHandler(w, hopts))
	}
	return predgt.NewLogger(slog.NewTextHandler(w, hopts))
}
