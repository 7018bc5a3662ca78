package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AuthzDecisionsTotal   *prometheus.CounterVec
	ResolverFailuresTotal *prometheus.CounterVec
	MaskedEntitiesTotal   *prometheus.CounterVec

	// Credential metrics
	LoginAttemptsTotal   *prometheus.CounterVec
	TokenOperationsTotal *prometheus.CounterVec
	TokensSweptTotal     prometheus.Counter

	// Rate limiting
	RateLimitedTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fablekeep_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fablekeep_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fablekeep_authz_decisions_total",
				Help: "Authorization decisions by role, action, resource and outcome",
			},
			[]string{"role", "action", "resource", "decision"},
		),
		ResolverFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fablekeep_resolver_failures_total",
				Help: "Ownership lookups that failed at the storage layer",
			},
			[]string{"resource"},
		),
		MaskedEntitiesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fablekeep_masked_entities_total",
				Help: "Entities redacted before serialization",
			},
			[]string{"entity"},
		),

		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fablekeep_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		TokenOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fablekeep_token_operations_total",
				Help: "Token operations (issue, verify, rotate, revoke) by outcome",
			},
			[]string{"operation", "outcome"},
		),
		TokensSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fablekeep_tokens_swept_total",
				Help: "Expired refresh token rows removed by the sweeper",
			},
		),

		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fablekeep_rate_limited_total",
				Help: "Requests rejected by rate limiting",
			},
			[]string{"scope"},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fablekeep_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fablekeep_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		m.ResolverFailuresTotal,
		m.MaskedEntitiesTotal,
		m.LoginAttemptsTotal,
		m.TokenOperationsTotal,
		m.TokensSweptTotal,
		m.RateLimitedTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
