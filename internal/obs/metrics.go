package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Authentication events by kind and outcome.",
		},
		[]string{"event", "outcome"},
	)

	graphqlOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphql_operations_total",
			Help: "GraphQL operations by outcome.",
		},
		[]string{"outcome"},
	)

	initOnce sync.Once
)

var knownPaths = map[string]struct{}{
	"/":        {},
	"/graphql": {},
	"/healthz": {},
	"/readyz":  {},
	"/metrics": {},
	"/v1/info": {},
}

// Init registers metrics in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration,
			authEventsTotal, graphqlOperationsTotal)
	})
}

// Handler exposes the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AuthEvent counts an authentication event such as login, refresh or logout.
func AuthEvent(event, outcome string) {
	authEventsTotal.WithLabelValues(event, outcome).Inc()
}

// GraphQLOperation counts an executed GraphQL request.
func GraphQLOperation(outcome string) {
	graphqlOperationsTotal.WithLabelValues(outcome).Inc()
}

// CanonicalPath bounds label cardinality: unknown paths collapse to "other".
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if _, ok := knownPaths[path]; ok {
		return path
	}
	return "other"
}

// Instrument records in-flight gauge, request counter and latency histogram.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
