package predgt

import (
	"github.com/hupe1980/predgt/blobstore"
	"github.com/hupe1980/predgt/dataset"
	"github.com/hupe1980/predgt/distance"
	"github.com/hupe1980/predgt/search"
)

// DefaultSeed seeds the random source when WithSeed is not given.
const DefaultSeed int64 = 4242

type options struct {
	seed             int64
	metric           distance.Metric
	k                int
	workers          int
	compression      dataset.Compression
	logger           *Logger
	metricsCollector MetricsCollector
	store            blobstore.Store
	publishName      string
	catalog          blobstore.Catalog
}

func defaultOptions() options {
	return options{
		seed:             DefaultSeed,
		metric:           distance.MetricL2,
		k:                search.DefaultK,
		compression:      dataset.CompressionNone,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
}

func newOptions(optFns []Option) options {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// Option configures Generate and Run.
type Option func(*options)

// WithSeed sets the seed of the random source.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithMetric selects the neighbor semantics. Default: distance.MetricL2.
func WithMetric(m distance.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithK sets the neighbor row width. Default: 100.
func WithK(k int) Option {
	return func(o *options) {
		o.k = k
	}
}

// WithWorkers bounds the number of queries searched in parallel.
// Values <= 0 select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithCompression sets the block compression of the dataset file.
func WithCompression(c dataset.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics sink. If nil is passed, metrics
// are discarded.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithPublisher uploads the written dataset to store under name.
// An empty name uses the base name of the output path.
func WithPublisher(store blobstore.Store, name string) Option {
	return func(o *options) {
		o.store = store
		o.publishName = name
	}
}

// WithCatalog records every publication in catalog.
// It has no effect without WithPublisher.
func WithCatalog(catalog blobstore.Catalog) Option {
	return func(o *options) {
		o.catalog = catalog
	}
}
