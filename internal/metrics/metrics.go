// Package metrics exposes Prometheus collectors for extraction and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quoteshelf"

// Ingest job results.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	chunks      *prometheus.CounterVec
	quotes      prometheus.Counter
	jobs        *prometheus.CounterVec
	jobDuration prometheus.Histogram
	requests    *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		chunks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extract_chunks_total",
			Help:      "Page ranges processed, by outcome.",
		}, []string{"outcome"}),
		quotes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_extracted_total",
			Help:      "Quotes returned by the model.",
		}),
		jobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_jobs_total",
			Help:      "PDF ingest jobs, by result.",
		}, []string{"result"}),
		jobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Wall time of PDF ingest jobs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests, by method, route and status code.",
		}, []string{"method", "route", "code"}),
	}
}

// ObserveChunk records one processed range and the quotes it produced.
func (m *Metrics) ObserveChunk(outcome string, quotes int) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(outcome).Inc()
	if quotes > 0 {
		m.quotes.Add(float64(quotes))
	}
}

// ObserveJob records a finished ingest job.
func (m *Metrics) ObserveJob(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(result).Inc()
	m.jobDuration.Observe(elapsed.Seconds())
}

// ObserveRequest records one HTTP API request.
func (m *Metrics) ObserveRequest(method, route string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
