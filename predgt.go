package predgt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/predgt/blobstore"
	"github.com/hupe1980/predgt/dataset"
	"github.com/hupe1980/predgt/distance"
	"github.com/hupe1980/predgt/internal/hash"
	"github.com/hupe1980/predgt/search"
	"github.com/hupe1980/predgt/synth"
)

// Params are the shape parameters of a run: corpus size n, dimensionality p
// and query count x.
type Params = synth.Params

// Result is the outcome of a generation run.
type Result struct {
	// Dataset is the bundle that is (or would be) written.
	Dataset *dataset.Dataset
	// Neighbors carries per-row valid counts and the degenerate query count.
	Neighbors *search.Neighbors
	// Path is the dataset file written by Run.
	Path string
	// Bytes is the size of the written file.
	Bytes int64
	// Location is the publication URI, empty when nothing was published.
	Location string
}

// Generate synthesizes a corpus and queries for params and computes their
// predicate-restricted ground truth. Nothing is written.
func Generate(ctx context.Context, params Params, optFns ...Option) (*Result, error) {
	o := newOptions(optFns)
	return generate(ctx, params, &o)
}

func generate(ctx context.Context, params Params, o *options) (*Result, error) {
	if err := o.validate(); err != nil {
		return nil, translateError("generate", err)
	}

	logger := o.logger.WithParams(params)

	start := time.Now()
	rng := synth.NewRNG(o.seed)
	corpus, queries, err := synth.Generate(rng, params)
	o.metricsCollector.RecordGenerate(params.N, params.X, time.Since(start), err)
	if err != nil {
		logger.LogGenerate(ctx, 0, err)
		return nil, translateError("generate", err)
	}
	logger.LogGenerate(ctx, corpus.Groups(), nil)

	return groundTruth(ctx, corpus, queries, o, logger)
}

// FromCorpus computes the ground truth for a caller-supplied corpus and
// query set. Every predicate identifier must label at least one corpus
// vector; predicates may be given in any order.
func FromCorpus(ctx context.Context, corpus *synth.Corpus, queries []synth.Query, optFns ...Option) (*Result, error) {
	o := newOptions(optFns)
	if err := o.validate(); err != nil {
		return nil, translateError("ground truth", err)
	}
	if corpus == nil || corpus.Len() == 0 {
		return nil, translateError("ground truth", search.ErrEmptyCorpus)
	}
	if len(queries) == 0 {
		return nil, translateError("ground truth", fmt.Errorf("%w: query set is empty", synth.ErrInvalidParams))
	}

	logger := o.logger.WithParams(Params{N: corpus.Len(), P: corpus.Dim, X: len(queries)})
	return groundTruth(ctx, corpus, queries, &o, logger)
}

func groundTruth(ctx context.Context, corpus *synth.Corpus, queries []synth.Query, o *options, logger *Logger) (*Result, error) {
	if err := synth.ValidatePredicates(queries, corpus.Groups()); err != nil {
		return nil, translateError("validate predicates", err)
	}
	for i, q := range queries {
		if len(q.Vector) != corpus.Dim {
			return nil, translateError("validate queries",
				fmt.Errorf("%w: query %d has dimension %d, corpus has %d", synth.ErrInvalidParams, i, len(q.Vector), corpus.Dim))
		}
	}

	searcher, err := search.New(o.metric, corpus, o.k)
	if err != nil {
		return nil, translateError("search", err)
	}
	if err := checkMembership(searcher, queries, corpus.Groups()); err != nil {
		return nil, translateError("validate predicates", err)
	}

	start := time.Now()
	nb, err := search.Run(ctx, searcher, queries,
		search.WithWorkers(o.workers),
		search.WithLogger(logger.Logger),
		search.WithObserver(func(s search.QueryStats) {
			o.metricsCollector.RecordQuery(s.Found, s.Duration)
		}),
	)
	degenerate := 0
	if nb != nil {
		degenerate = nb.Degenerate
	}
	o.metricsCollector.RecordSearch(len(queries), degenerate, time.Since(start), err)
	logger.LogSearch(ctx, metricName(o.metric), o.k, degenerate, err)
	if err != nil {
		return nil, err
	}

	return &Result{
		Dataset:   assemble(corpus, queries, nb, o),
		Neighbors: nb,
	}, nil
}

// checkMembership rejects predicate identifiers that label no corpus vector.
// Such identifiers are in range only when a reloaded corpus leaves gaps.
func checkMembership(s *search.Restricted, queries []synth.Query, groups int) error {
	for i, q := range queries {
		for _, g := range q.Predicate {
			if s.Members(g) == 0 {
				return &synth.PredicateError{Query: i, Group: g, Groups: groups, Reason: "group has no members"}
			}
		}
	}
	return nil
}

func assemble(corpus *synth.Corpus, queries []synth.Query, nb *search.Neighbors, o *options) *dataset.Dataset {
	test := make([][]float32, len(queries))
	testIDs := make([][]int32, len(queries))
	for i, q := range queries {
		test[i] = q.Vector
		ids := make([]int32, len(q.Predicate))
		for j, g := range q.Predicate {
			ids[j] = int32(g)
		}
		testIDs[i] = ids
	}

	return &dataset.Dataset{
		ID:        uuid.New(),
		Metric:    o.metric,
		Dim:       corpus.Dim,
		Train:     corpus.Vectors,
		TrainIDs:  corpus.GroupIDs,
		Test:      test,
		TestIDs:   testIDs,
		Neighbors: nb.Matrix(),
	}
}

// Run generates a dataset for params and writes it to path. With
// WithPublisher the written file is also uploaded and Result.Location holds
// its URI.
//
// Configuration errors, including an output directory that does not exist,
// are reported before any output is written.
func Run(ctx context.Context, params Params, path string, optFns ...Option) (*Result, error) {
	if err := checkOutputPath(path); err != nil {
		return nil, translateError("run", err)
	}

	o := newOptions(optFns)
	res, err := generate(ctx, params, &o)
	if err != nil {
		return nil, err
	}

	logger := o.logger.WithParams(params).WithDatasetID(res.Dataset.ID)

	start := time.Now()
	n, err := dataset.WriteFile(path, res.Dataset, dataset.WithCompression(o.compression))
	o.metricsCollector.RecordWrite(n, time.Since(start), err)
	logger.LogWrite(ctx, path, n, err)
	if err != nil {
		return nil, translateError("write", fmt.Errorf("failed to write dataset: %w", err))
	}
	res.Path = path
	res.Bytes = n

	if o.store == nil {
		return res, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset for publishing: %w", err)
	}

	name := o.publishName
	if name == "" {
		name = filepath.Base(path)
	}

	uri, err := publish(ctx, o.store, name, data, &o, logger)
	if err != nil {
		return nil, err
	}
	res.Location = uri

	if o.catalog != nil {
		pub := blobstore.Publication{
			DatasetID: res.Dataset.ID.String(),
			Name:      name,
			URI:       uri,
			Metric:    metricName(o.metric),
			N:         params.N,
			P:         params.P,
			X:         params.X,
			K:         o.k,
			Size:      int64(len(data)),
			Checksum:  hash.CRC32C(data),
			CreatedAt: time.Now().UTC(),
		}
		if err := o.catalog.Register(ctx, pub); err != nil {
			return nil, fmt.Errorf("failed to register publication: %w", err)
		}
	}

	return res, nil
}

// Publish uploads an encoded dataset to store and returns its URI.
func Publish(ctx context.Context, store blobstore.Store, name string, data []byte) (string, error) {
	o := defaultOptions()
	return publish(ctx, store, name, data, &o, o.logger)
}

func publish(ctx context.Context, store blobstore.Store, name string, data []byte, o *options, logger *Logger) (string, error) {
	uri := store.URI(name)

	start := time.Now()
	err := store.Put(ctx, name, data)
	o.metricsCollector.RecordPublish(int64(len(data)), time.Since(start), err)
	logger.LogPublish(ctx, uri, int64(len(data)), err)
	if err != nil {
		return "", fmt.Errorf("failed to publish %s: %w", name, err)
	}
	return uri, nil
}

func (o *options) validate() error {
	if o.k <= 0 {
		return fmt.Errorf("%w: got %d", search.ErrInvalidK, o.k)
	}
	switch o.metric {
	case distance.MetricL2, distance.MetricCosine:
	default:
		return fmt.Errorf("%w: %v", search.ErrUnsupportedMetric, o.metric)
	}
	switch o.compression {
	case dataset.CompressionNone, dataset.CompressionLZ4, dataset.CompressionZSTD:
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedCompression, o.compression)
	}
	return nil
}

func metricName(m distance.Metric) string {
	return strings.ToLower(m.String())
}

// checkOutputPath fails when the file could not be created because its
// directory is missing or path names a directory.
func checkOutputPath(path string) error {
	if path == "" {
		return &os.PathError{Op: "create", Path: path, Err: os.ErrInvalid}
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return &os.PathError{Op: "create", Path: path, Err: fmt.Errorf("is a directory")}
	}
	dir := filepath.Dir(path)
	fi, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return &os.PathError{Op: "create", Path: path, Err: fmt.Errorf("%s is not a directory", dir)}
	}
	return nil
}
