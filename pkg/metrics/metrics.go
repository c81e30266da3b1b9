// Package metrics exposes Prometheus instrumentation for question handling.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LLM call outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeCircuit = "circuit_open"
)

var (
	intentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_intents_total",
			Help: "Questions classified, by intent.",
		},
		[]string{"intent"},
	)

	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_llm_calls_total",
			Help: "Model calls, by outcome.",
		},
		[]string{"outcome"},
	)

	llmRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_llm_retries_total",
			Help: "Model call retries, by error type.",
		},
		[]string{"error_type"},
	)

	generationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insight_generation_duration_seconds",
			Help:    "Time to produce a generated query, by response branch.",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"branch"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insight_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		intentsTotal,
		llmCallsTotal,
		llmRetriesTotal,
		generationDurationSeconds,
		httpRequestsTotal,
		httpRequestDurationSeconds,
	)
}

func ObserveIntent(intent string) {
	intentsTotal.WithLabelValues(intent).Inc()
}

func ObserveLLMCall(outcome string) {
	llmCallsTotal.WithLabelValues(outcome).Inc()
}

func ObserveRetry(errorType string) {
	if errorType == "" {
		errorType = "unknown"
	}
	llmRetriesTotal.WithLabelValues(errorType).Inc()
}

func ObserveGeneration(branch string, elapsed time.Duration) {
	generationDurationSeconds.WithLabelValues(branch).Observe(elapsed.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency per route. Routes are
// labelled by the ServeMux pattern that matched; anything else is "unmatched".
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(recorder.status)
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		httpRequestDurationSeconds.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
