package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "payment_service",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payment_service",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "payment_service",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	providerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payment_service",
			Subsystem: "providers",
			Name:      "calls_total",
			Help:      "Total number of provider operations dispatched.",
		},
		[]string{"provider", "operation", "outcome"},
	)

	providerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "payment_service",
			Subsystem: "providers",
			Name:      "call_duration_seconds",
			Help:      "Duration of provider operations.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~51s
		},
		[]string{"provider", "operation"},
	)

	reconcilerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payment_service",
			Subsystem: "reconciler",
			Name:      "transitions_total",
			Help:      "Transaction status transitions applied by the reconciler.",
		},
		[]string{"status"},
	)

	tokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payment_service",
			Subsystem: "providers",
			Name:      "token_refreshes_total",
			Help:      "Authentication handshakes performed per credential class.",
		},
		[]string{"class", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		providerCalls,
		providerDuration,
		reconcilerTransitions,
		tokenRefreshes,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordProviderCall records one provider operation.
func RecordProviderCall(provider, operation string, success bool, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	providerCalls.WithLabelValues(provider, operation, outcome).Inc()
	providerDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordTokenRefresh records one authentication handshake for a credential
// class.
func RecordTokenRefresh(class string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	tokenRefreshes.WithLabelValues(class, outcome).Inc()
}

// RecordReconcilerTransition records a status transition applied by the
// reconciler.
func RecordReconcilerTransition(status string) {
	reconcilerTransitions.WithLabelValues(status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "payments" && parts[0] != "callbacks" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/" + parts[0]
	}
	if parts[0] == "callbacks" {
		return "/callbacks/:provider"
	}
	if parts[1] == "payin" || parts[1] == "payout" {
		return "/payments/" + parts[1]
	}
	if len(parts) == 2 {
		return "/payments/:reference"
	}
	return "/payments/:reference/" + parts[2]
}
