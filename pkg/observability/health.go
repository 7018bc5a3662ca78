package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// Dependency health ranks. PostgreSQL is the engine's source of truth and
// gates readiness; Redis only backs the login throttle, so losing it degrades
// the report without failing it.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const readinessTimeout = 5 * time.Second

// HealthChecker probes the storage dependencies for the side server's
// health endpoints. Either dependency may be nil; nil dependencies are
// simply absent from the report.
type HealthChecker struct {
	db    *sql.DB
	redis *redis.Client
}

// NewHealthChecker creates a checker over the given dependencies.
func NewHealthChecker(db *sql.DB, redis *redis.Client) *HealthChecker {
	return &HealthChecker{db: db, redis: redis}
}

// HealthStatus is the readiness report: the folded overall rank plus one
// entry per probed dependency.
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is a single dependency probe result.
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Liveness reports process-up. It never probes dependencies, so a wedged
// database cannot make the orchestrator restart a healthy process.
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
	})
}

// Readiness probes every dependency and returns 503 only when the report is
// unhealthy; degraded still serves traffic.
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	report := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if report.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(report)
}

// Check probes each configured dependency and folds the ranks: the database
// rank carries through as-is, a failed Redis probe caps out at degraded.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	report := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now().UTC(),
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.db != nil {
		dep := h.probeDatabase(ctx)
		report.Dependencies["database"] = dep
		report.Status = worseOf(report.Status, dep.Status)
	}

	if h.redis != nil {
		dep := h.probeRedis(ctx)
		report.Dependencies["redis"] = dep
		if dep.Status != StatusHealthy {
			report.Status = worseOf(report.Status, StatusDegraded)
		}
	}

	return report
}

// worseOf picks the lower of two health ranks.
func worseOf(a, b string) string {
	rank := map[string]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// probeDatabase pings, runs a trivial query, then inspects the pool. An
// exhausted pool answers probes fine while starving real requests, so it
// counts as degraded.
func (h *HealthChecker) probeDatabase(ctx context.Context) DependencyStatus {
	start := time.Now()
	dep := DependencyStatus{Status: StatusHealthy, Timestamp: start.UTC()}

	err := h.db.PingContext(ctx)
	dep.Latency = time.Since(start)
	if err != nil {
		dep.Status = StatusUnhealthy
		dep.Message = err.Error()
		return dep
	}

	var one int
	if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		dep.Status = StatusUnhealthy
		dep.Message = "query failed: " + err.Error()
		return dep
	}

	// MaxOpenConnections of zero means unlimited, which never exhausts.
	if stats := h.db.Stats(); stats.MaxOpenConnections > 0 && stats.OpenConnections >= stats.MaxOpenConnections {
		dep.Status = StatusDegraded
		dep.Message = "connection pool exhausted"
	}
	return dep
}

func (h *HealthChecker) probeRedis(ctx context.Context) DependencyStatus {
	start := time.Now()
	dep := DependencyStatus{Status: StatusHealthy, Timestamp: start.UTC()}

	err := h.redis.Ping(ctx).Err()
	dep.Latency = time.Since(start)
	if err != nil {
		dep.Status = StatusUnhealthy
		dep.Message = err.Error()
	}
	return dep
}

// RegisterHealthRoutes mounts the health endpoints on the side server mux.
// /health is an alias for readiness so a bare probe does the useful thing.
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
}
