// Package metrics holds the Prometheus collectors for AI calls, prompt
// usage, batch runs, caching and HTTP traffic.
package metrics

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/choishiam0906/govhelper/internal/generation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
	OutcomeSkipped     = "skipped"
)

// Metrics groups every collector the service exports.
type Metrics struct {
	aiCalls       *prometheus.CounterVec
	aiDuration    *prometheus.HistogramVec
	promptUsage   *prometheus.CounterVec
	batchItems    *prometheus.CounterVec
	cacheRequests *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide metrics registered on the default
// Prometheus registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return defaultMetrics
}

// New builds and registers a fresh set of collectors. Tests pass their own
// prometheus.NewRegistry().
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	buckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60}
	m := &Metrics{
		aiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "govhelper_ai_calls_total",
			Help: "AI provider calls by provider, operation and outcome",
		}, []string{"provider", "operation", "outcome"}),
		aiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "govhelper_ai_call_seconds",
			Help:    "AI provider call latency",
			Buckets: buckets,
		}, []string{"provider", "operation"}),
		promptUsage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "govhelper_prompt_usage_total",
			Help: "Prompt executions by prompt type and outcome",
		}, []string{"prompt_type", "outcome"}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "govhelper_batch_items_total",
			Help: "Batch extraction items by job kind and outcome",
		}, []string{"kind", "outcome"}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "govhelper_cache_requests_total",
			Help: "Cache lookups by cache name and result",
		}, []string{"cache", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "govhelper_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "govhelper_http_request_seconds",
			Help:    "HTTP request latency",
			Buckets: buckets,
		}, []string{"route", "method"}),
		gatherer: gatherer,
	}
	reg.MustRegister(
		m.aiCalls, m.aiDuration,
		m.promptUsage, m.batchItems, m.cacheRequests,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// ObserveCall implements generation.Observer.
func (m *Metrics) ObserveCall(provider, operation string, elapsed time.Duration, err error) {
	m.aiCalls.WithLabelValues(provider, operation, callOutcome(err)).Inc()
	m.aiDuration.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}

// ObservePromptUsage counts one prompt execution.
func (m *Metrics) ObservePromptUsage(promptType string, success bool) {
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeError
	}
	m.promptUsage.WithLabelValues(promptType, outcome).Inc()
}

// ObserveBatchItem counts one processed batch item.
func (m *Metrics) ObserveBatchItem(kind, outcome string) {
	m.batchItems.WithLabelValues(kind, outcome).Inc()
}

// ObserveCache counts a cache lookup.
func (m *Metrics) ObserveCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(cache, result).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method, status string, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func callOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, generation.ErrRateLimited), generation.IsRateLimited(err):
		return OutcomeRateLimited
	default:
		return OutcomeError
	}
}

var _ generation.Observer = (*Metrics)(nil)
