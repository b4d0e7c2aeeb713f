// Package telemetry exports Prometheus metrics for the job tracker.
// A nil *Provider is valid and records nothing, so components can be built without metrics in tests.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aritana"

// Metrics holds all Prometheus collectors of the service.
type Metrics struct {
	// Gateway metrics
	GatewayRequests *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec

	// Tracking metrics
	Polls       *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Uploads     *prometheus.CounterVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// Provider owns a registry and the metrics registered on it.
type Provider struct {
	Registry *prometheus.Registry
	Metrics  *Metrics
}

// NewProvider creates a fresh registry with process and Go runtime collectors plus the service metrics.
// Each provider has its own registry, so tests may create as many as they need.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Provider{
		Registry: reg,
		Metrics:  initMetrics(promauto.With(reg)),
	}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (p *Provider) Handler() http.Handler {
	if p == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{Registry: p.Registry})
}

func initMetrics(f promauto.Factory) *Metrics {
	m := &Metrics{}
	initGatewayMetrics(f, m)
	initTrackingMetrics(f, m)
	initCacheMetrics(f, m)
	initHTTPMetrics(f, m)
	return m
}

func initGatewayMetrics(f promauto.Factory, m *Metrics) {
	m.GatewayRequests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_requests_total",
		Help:      "Requests sent to the classification gateway by operation and outcome",
	}, []string{"operation", "outcome"})

	m.GatewayDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_request_duration_seconds",
		Help:      "Gateway call latency including retries",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 30, 60, 180},
	}, []string{"operation"})
}

func initTrackingMetrics(f promauto.Factory, m *Metrics) {
	m.Polls = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_polls_total",
		Help:      "Reconciliation rounds by observed outcome",
	}, []string{"outcome"})

	m.Transitions = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_transitions_total",
		Help:      "Job state transitions by target state",
	}, []string{"state"})

	m.Uploads = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Image uploads by outcome",
	}, []string{"outcome"})
}

func initCacheMetrics(f promauto.Factory, m *Metrics) {
	m.CacheLookups = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Result cache lookups by entry kind and result",
	}, []string{"kind", "result"})
}

func initHTTPMetrics(f promauto.Factory, m *Metrics) {
	m.HTTPRequests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served by method and status code",
	}, []string{"method", "status"})

	m.HTTPDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
}

// RecordGatewayCall records one gateway operation and its latency.
func (p *Provider) RecordGatewayCall(operation string, err error, duration time.Duration) {
	if p == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	p.Metrics.GatewayRequests.WithLabelValues(operation, outcome).Inc()
	p.Metrics.GatewayDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordPoll records the outcome of one reconciliation round.
func (p *Provider) RecordPoll(outcome string) {
	if p == nil {
		return
	}
	p.Metrics.Polls.WithLabelValues(outcome).Inc()
}

// RecordTransition records a job moving into state.
func (p *Provider) RecordTransition(state string) {
	if p == nil {
		return
	}
	p.Metrics.Transitions.WithLabelValues(state).Inc()
}

// RecordUpload records an upload outcome (accepted, invalid, gateway_error, no_job_id).
func (p *Provider) RecordUpload(outcome string) {
	if p == nil {
		return
	}
	p.Metrics.Uploads.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup records a cache hit or miss for an entry kind.
func (p *Provider) RecordCacheLookup(kind string, hit bool) {
	if p == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	p.Metrics.CacheLookups.WithLabelValues(kind, result).Inc()
}

// RecordHTTPRequest records one served request.
func (p *Provider) RecordHTTPRequest(method string, status int, duration time.Duration) {
	if p == nil {
		return
	}
	p.Metrics.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	p.Metrics.HTTPDuration.WithLabelValues(method).Observe(duration.Seconds())
}
