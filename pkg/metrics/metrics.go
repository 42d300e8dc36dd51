// Package metrics backs the index's performance counters. spec.md §6
// specifies a TSV side channel (see tsv.go) and §9 calls for "global mutable
// counters... atomic or sharded"; SesameStream satisfies both by keeping the
// counts in Prometheus CounterVec/HistogramVec metrics (write-only from
// inside the index, as the concurrency model requires) and having the TSV
// writer read the same counters back out.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Metrics holds every counter and histogram the index and reaper report.
type Metrics struct {
	queriesTotal    prometheus.Counter
	statementsTotal prometheus.Counter
	solutionsTotal  prometheus.Counter

	reapRunsTotal           *prometheus.CounterVec
	partialSolutionsEvicted prometheus.Counter
	subscriptionsEvicted    prometheus.Counter
	reapDuration            prometheus.Histogram

	fetchesTotal *prometheus.CounterVec

	logger *zap.Logger

	// Plain atomics mirroring the counters above, read by the TSV side
	// channel; Prometheus counters are write-mostly and awkward to read
	// back synchronously.
	queriesCount    int64
	statementsCount int64
	solutionsCount  int64
}

// New creates a Metrics registered against the default Prometheus registry.
func New(namespace string, logger *zap.Logger) *Metrics {
	return NewWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewWithRegistry creates a Metrics registered against registerer, letting
// tests use a fresh prometheus.NewRegistry() to avoid collisions across
// test runs.
func NewWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Metrics{logger: logger}

	m.queriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "queries_admitted_total",
		Help:      "Total queries admitted into the index.",
	})
	m.statementsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "statements_ingested_total",
		Help:      "Total triples ingested into the index.",
	})
	m.solutionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "solutions_emitted_total",
		Help:      "Total solutions delivered to subscription handlers.",
	})
	m.reapRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reaper",
		Name:      "runs_total",
		Help:      "Total reap cycles run, by outcome.",
	}, []string{"outcome"})
	m.partialSolutionsEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reaper",
		Name:      "partial_solutions_evicted_total",
		Help:      "Total expired partial solutions reclaimed.",
	})
	m.subscriptionsEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reaper",
		Name:      "subscriptions_evicted_total",
		Help:      "Total subscriptions deactivated by TTL expiry.",
	})
	m.reapDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "reaper",
		Name:      "run_duration_seconds",
		Help:      "Duration of a reap cycle.",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
	})
	m.fetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "linkeddata",
		Name:      "fetches_total",
		Help:      "Total Linked Data dereference attempts, by outcome.",
	}, []string{"outcome"})

	registerer.MustRegister(
		m.queriesTotal,
		m.statementsTotal,
		m.solutionsTotal,
		m.reapRunsTotal,
		m.partialSolutionsEvicted,
		m.subscriptionsEvicted,
		m.reapDuration,
		m.fetchesTotal,
	)

	return m
}

// RecordQueryAdded increments the admitted-queries counter.
func (m *Metrics) RecordQueryAdded() {
	m.queriesTotal.Inc()
	atomic.AddInt64(&m.queriesCount, 1)
}

// RecordStatementsAdded increments the ingested-triples counter by n.
func (m *Metrics) RecordStatementsAdded(n int) {
	m.statementsTotal.Add(float64(n))
	atomic.AddInt64(&m.statementsCount, int64(n))
}

// RecordSolutionEmitted increments the emitted-solutions counter.
func (m *Metrics) RecordSolutionEmitted() {
	m.solutionsTotal.Inc()
	atomic.AddInt64(&m.solutionsCount, 1)
}

// RecordReapRun records the outcome ("ok" or "skipped") of a reap cycle.
func (m *Metrics) RecordReapRun(outcome string) {
	m.reapRunsTotal.WithLabelValues(outcome).Inc()
}

// RecordReapDuration records how long a reap cycle took.
func (m *Metrics) RecordReapDuration(seconds float64) {
	m.reapDuration.Observe(seconds)
}

// RecordPartialSolutionsEvicted increments the evicted-partial-solutions
// counter by n.
func (m *Metrics) RecordPartialSolutionsEvicted(n int) {
	m.partialSolutionsEvicted.Add(float64(n))
}

// RecordSubscriptionsEvicted increments the evicted-subscriptions counter by
// n.
func (m *Metrics) RecordSubscriptionsEvicted(n int) {
	m.subscriptionsEvicted.Add(float64(n))
}

// RecordFetch records the outcome ("succeeded", "failed", or "skipped_cached")
// of one Linked Data dereference attempt.
func (m *Metrics) RecordFetch(outcome string) {
	m.fetchesTotal.WithLabelValues(outcome).Inc()
}

// Snapshot returns the plain running totals needed for the TSV header line
// (spec.md §6): Queries, Statements, Solutions.
func (m *Metrics) Snapshot() (queries, statements, solutions int64) {
	return atomic.LoadInt64(&m.queriesCount),
		atomic.LoadInt64(&m.statementsCount),
		atomic.LoadInt64(&m.solutionsCount)
}
