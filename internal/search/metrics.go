package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the index actor.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	WaitDuration    prometheus.Histogram
	Documents       prometheus.Gauge
	ParseFailures   prometheus.Counter
	CacheHitsTotal  prometheus.Counter
}

// NewMetrics creates the index collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantry_index_requests_total",
				Help: "Index requests by operation and outcome (ok, error, shutting_down, protocol, timeout).",
			},
			[]string{"op", "outcome"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pantry_index_request_duration_seconds",
				Help:    "Time the index worker spent on a request.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"op"},
		),
		WaitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pantry_index_wait_seconds",
				Help:    "Time a caller waited before the worker accepted its request.",
				Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		Documents: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pantry_index_documents",
				Help: "Number of recipe documents in the index.",
			},
		),
		ParseFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pantry_index_parse_failures_total",
				Help: "Recipe files skipped because they could not be loaded.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pantry_index_cache_hits_total",
				Help: "Searches answered from the result cache.",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.WaitDuration,
			m.Documents,
			m.ParseFailures,
			m.CacheHitsTotal,
		)
	}
	return m
}

func (m *Metrics) observeRequest(op RequestKind, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(op.String(), outcome).Inc()
	if took > 0 {
		m.RequestDuration.WithLabelValues(op.String()).Observe(took.Seconds())
	}
}

func (m *Metrics) observeWait(d time.Duration) {
	if m == nil {
		return
	}
	m.WaitDuration.Observe(d.Seconds())
}

func (m *Metrics) setDocuments(n uint64) {
	if m == nil {
		return
	}
	m.Documents.Set(float64(n))
}

func (m *Metrics) parseFailure() {
	if m == nil {
		return
	}
	m.ParseFailures.Inc()
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}
