// Package observability exports predgt run metrics to Prometheus.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements predgt.MetricsCollector with Prometheus
// counters and histograms.
type PrometheusCollector struct {
	opLatency  *prometheus.HistogramVec
	queries    prometheus.Counter
	queryTime  prometheus.Histogram
	found      prometheus.Histogram
	degenerate prometheus.Counter
	bytes      *prometheus.CounterVec
}

// NewPrometheusCollector creates the collector and registers its metrics with reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "predgt_operation_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predgt_queries_total",
			Help: "Total restricted searches completed",
		}),
		queryTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "predgt_query_duration_seconds",
			Help:    "Latency of one restricted search",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
		found: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "predgt_query_neighbors",
			Help:    "Valid neighbors found per query",
			Buckets: []float64{0, 1, 10, 50, 99, 100},
		}),
		degenerate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predgt_degenerate_queries_total",
			Help: "Queries whose predicate matched no corpus vector",
		}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "predgt_bytes_total",
			Help: "Dataset bytes written and published",
		}, []string{"op"}),
	}

	reg.MustRegister(c.opLatency, c.queries, c.queryTime, c.found, c.degenerate, c.bytes)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordGenerate implements predgt.MetricsCollector.
func (c *PrometheusCollector) RecordGenerate(_, _ int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("generate", status(err)).Observe(d.Seconds())
}

// RecordQuery implements predgt.MetricsCollector.
func (c *PrometheusCollector) RecordQuery(found int, d time.Duration) {
	c.queries.Inc()
	c.queryTime.Observe(d.Seconds())
	c.found.Observe(float64(found))
}

// RecordSearch implements predgt.MetricsCollector.
func (c *PrometheusCollector) RecordSearch(_, degenerate int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("search", status(err)).Observe(d.Seconds())
	c.degenerate.Add(float64(degenerate))
}

// RecordWrite implements predgt.MetricsCollector.
func (c *PrometheusCollector) RecordWrite(n int64, d time.Duration, err error) {
	c.opLatency.WithLabelValues("write", status(err)).Observe(d.Seconds())
	if err == nil {
		c.bytes.WithLabelValues("write").Add(float64(n))
	}
}

// RecordPublish implements predgt.MetricsCollector.
func (c *PrometheusCollector) RecordPublish(n int64, d time.Duration, err error) {
	c.opLatency.WithLabelValues("publish", status(err)).Observe(d.Seconds())
	if err == nil {
		c.bytes.WithLabelValues("publish").Add(float64(n))
	}
}
