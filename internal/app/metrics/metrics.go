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
			Namespace: "app_registry",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "app_registry",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "app_registry",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	storeOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "app_registry",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Record store operations by outcome (ok, not_found, read_error, write_error).",
		},
		[]string{"op", "outcome"},
	)

	storeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "app_registry",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of record store operations including storage I/O.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"op"},
	)

	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "app_registry",
			Subsystem: "gateway",
			Name:      "upstream_requests_total",
			Help:      "Gateway calls to the backend by route and upstream status (\"unavailable\" on transport failure).",
		},
		[]string{"route", "status"},
	)

	auditRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "app_registry",
			Subsystem: "audit",
			Name:      "runs_total",
			Help:      "Collection audits by result.",
		},
		[]string{"result"},
	)

	auditFindings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "app_registry",
			Subsystem: "audit",
			Name:      "invalid_records",
			Help:      "Structural problems found by the most recent collection audit.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		storeOperations,
		storeDuration,
		upstreamRequests,
		auditRuns,
		auditFindings,
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

// RecordStoreOperation records one record store call.
func RecordStoreOperation(op, outcome string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Microsecond
	}
	storeOperations.WithLabelValues(op, outcome).Inc()
	storeDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordUpstream records one gateway call to the backend. A zero status means
// the backend could not be reached.
func RecordUpstream(route string, status int) {
	label := "unavailable"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	upstreamRequests.WithLabelValues(route, label).Inc()
}

// RecordAudit records the outcome of one collection audit.
func RecordAudit(findings int, err error) {
	if err != nil {
		auditRuns.WithLabelValues("error").Inc()
		return
	}
	result := "clean"
	if findings > 0 {
		result = "invalid"
	}
	auditRuns.WithLabelValues(result).Inc()
	auditFindings.Set(float64(findings))
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

// canonicalPath collapses record names so label cardinality stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 || parts[0] != "api" || parts[1] != "apps" {
		return "/" + parts[0]
	}
	if len(parts) == 2 {
		return "/api/apps"
	}
	if len(parts) == 3 && parts[2] == "search" {
		return "/api/apps/search"
	}
	return "/api/apps/:appName"
}
