package search

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/hupe1980/predgt/synth"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Neighbors is the neighbor matrix of a query set.
type Neighbors struct {
	K int
	// Rows[i] is the fixed-width row of query i.
	Rows []Row
	// Degenerate is the number of queries without any matching candidate.
	Degenerate int
}

// Matrix returns the rows as a plain x × K matrix.
func (n *Neighbors) Matrix() [][]int32 {
	out := make([][]int32, len(n.Rows))
	for i, r := range n.Rows {
		out[i] = r.IDs
	}
	return out
}

// QueryStats describes one completed query search.
type QueryStats struct {
	Query      int
	Found      int
	Degenerate bool
	Duration   time.Duration
}

type runOptions struct {
	workers          int
	logger           *slog.Logger
	progressInterval time.Duration
	observer         func(QueryStats)
}

// RunOption configures Run.
type RunOption func(*runOptions)

// WithWorkers sets the number of concurrent query searches.
// Values <= 0 select GOMAXPROCS.
func WithWorkers(n int) RunOption {
	return func(o *runOptions) {
		o.workers = n
	}
}

// WithLogger sets the logger for progress and degenerate-query reports.
func WithLogger(l *slog.Logger) RunOption {
	return func(o *runOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProgressInterval sets the minimum time between progress log lines.
func WithProgressInterval(d time.Duration) RunOption {
	return func(o *runOptions) {
		o.progressInterval = d
	}
}

// WithObserver registers a callback invoked after every query.
// It may be called concurrently.
func WithObserver(fn func(QueryStats)) RunOption {
	return func(o *runOptions) {
		o.observer = fn
	}
}

// Run searches all queries and returns their rows in query order.
//
// Queries are independent, so they are fanned out over a bounded worker pool;
// the result does not depend on the number of workers. Run stops early with
// the context error if ctx is cancelled.
func Run(ctx context.Context, s Searcher, queries []synth.Query, optFns ...RunOption) (*Neighbors, error) {
	opts := runOptions{
		workers:          runtime.GOMAXPROCS(0),
		logger:           slog.New(slog.DiscardHandler),
		progressInterval: 5 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.workers <= 0 {
		opts.workers = runtime.GOMAXPROCS(0)
	}

	rows := make([]Row, len(queries))

	var (
		done       atomic.Int64
		degenerate atomic.Int64
	)
	progress := rate.Sometimes{Interval: opts.progressInterval}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)

	for i := range queries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			row := s.Search(queries[i])
			rows[i] = row

			if row.Degenerate() {
				degenerate.Add(1)
				opts.logger.WarnContext(gctx, "query matched no candidates",
					"query", i,
					"predicate", queries[i].Predicate,
				)
			}

			if opts.observer != nil {
				opts.observer(QueryStats{
					Query:      i,
					Found:      row.Count,
					Degenerate: row.Degenerate(),
					Duration:   time.Since(start),
				})
			}

			n := done.Add(1)
			progress.Do(func() {
				opts.logger.InfoContext(gctx, "search progress",
					"done", n,
					"total", len(queries),
				)
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Neighbors{
		K:          s.K(),
		Rows:       rows,
		Degenerate: int(degenerate.Load()),
	}, nil
}
