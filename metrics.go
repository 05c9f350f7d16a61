package predgt

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting run metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordGenerate is called after corpus and query synthesis.
	RecordGenerate(n, x int, duration time.Duration, err error)

	// RecordQuery is called after each restricted search. found is the number
	// of valid neighbors, zero for a degenerate query. It may be called
	// concurrently.
	RecordQuery(found int, duration time.Duration)

	// RecordSearch is called once after all queries were searched.
	RecordSearch(queries, degenerate int, duration time.Duration, err error)

	// RecordWrite is called after the dataset file was written.
	RecordWrite(bytes int64, duration time.Duration, err error)

	// RecordPublish is called after an upload to a blob store.
	RecordPublish(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordGenerate(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration)                {}
func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordWrite(int64, time.Duration, error)       {}
func (NoopMetricsCollector) RecordPublish(int64, time.Duration, error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	GenerateCount    atomic.Int64
	GenerateErrors   atomic.Int64
	QueryCount       atomic.Int64
	QueryTotalNanos  atomic.Int64
	NeighborsFound   atomic.Int64
	DegenerateCount  atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	WriteCount       atomic.Int64
	WriteErrors      atomic.Int64
	BytesWritten     atomic.Int64
	PublishCount     atomic.Int64
	PublishErrors    atomic.Int64
	BytesPublished   atomic.Int64
}

// RecordGenerate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGenerate(_, _ int, _ time.Duration, err error) {
	b.GenerateCount.Add(1)
	if err != nil {
		b.GenerateErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(found int, duration time.Duration) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	b.NeighborsFound.Add(int64(found))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_, degenerate int, duration time.Duration, err error) {
	b.DegenerateCount.Add(int64(degenerate))
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(bytes int64, _ time.Duration, err error) {
	b.WriteCount.Add(1)
	if err != nil {
		b.WriteErrors.Add(1)
		return
	}
	b.BytesWritten.Add(bytes)
}

// RecordPublish implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPublish(bytes int64, _ time.Duration, err error) {
	b.PublishCount.Add(1)
	if err != nil {
		b.PublishErrors.Add(1)
		return
	}
	b.BytesPublished.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		GenerateCount:   b.GenerateCount.Load(),
		GenerateErrors:  b.GenerateErrors.Load(),
		QueryCount:      b.QueryCount.Load(),
		QueryAvgNanos:   b.getAvgQueryNanos(),
		NeighborsFound:  b.NeighborsFound.Load(),
		DegenerateCount: b.DegenerateCount.Load(),
		SearchErrors:    b.SearchErrors.Load(),
		WriteCount:      b.WriteCount.Load(),
		WriteErrors:     b.WriteErrors.Load(),
		BytesWritten:    b.BytesWritten.Load(),
		PublishCount:    b.PublishCount.Load(),
		PublishErrors:   b.PublishErrors.Load(),
		BytesPublished:  b.BytesPublished.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgQueryNanos() int64 {
	count := b.QueryCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	GenerateCount   int64
	GenerateErrors  int64
	QueryCount      int64
	QueryAvgNanos   int64
	NeighborsFound  int64
	DegenerateCount int64
	SearchErrors    int64
	WriteCount      int64
	WriteErrors     int64
	BytesWritten    int64
	PublishCount    int64
	PublishErrors   int64
	BytesPublished  int64
}
