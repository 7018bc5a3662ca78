// Package observability provides structured logging, Prometheus metrics and health checks.
//
// # Overview
//
// This package centralizes observability infrastructure including JSON logging,
// metrics collection, health checks and graceful shutdown.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.Info("server started")
//
// Context-aware logging:
//
//	observability.FromContext(ctx).WithError(err).Error("rotation failed")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.AuthzDecisionsTotal.WithLabelValues("USER", "read", "characters", "allow").Inc()
//	metrics.TokenOperationsTotal.WithLabelValues("rotate", "success").Inc()
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/httputil: Request logging middleware
package observability
