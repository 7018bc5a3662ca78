package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/fablekeep/fablekeep/pkg/api"
	"github.com/fablekeep/fablekeep/pkg/config"
	"github.com/fablekeep/fablekeep/pkg/observability"
	"github.com/fablekeep/fablekeep/pkg/storage/postgres"
	"github.com/fablekeep/fablekeep/pkg/token"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	db, err := postgres.Connect(postgres.ConnectionConfig{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: 30 * time.Minute,
		MaxIdleTime: 5 * time.Minute,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to postgres")
		os.Exit(1)
	}
	store := postgres.NewStore(db)

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			// The login throttle fails open without Redis; keep serving.
			logger.WithError(err).Warn("Redis unreachable at startup, continuing without it")
		}
	}

	secret, err := cfg.Auth.SecretProvider(logger)
	if err != nil {
		logger.WithError(err).Error("Failed to load signing secret")
		os.Exit(1)
	}

	tokens, err := token.NewService(store, secret, token.Config{
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create token service")
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	server := api.NewServer(api.Options{
		Store:   store,
		Tokens:  tokens,
		Logger:  logger,
		Metrics: metrics,
		Redis:   redisClient,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if metrics != nil {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	sweeper := token.NewSweeper(store, cfg.Auth.SweepRetention, logger)
	if metrics != nil {
		sweeper.OnSwept = func(deleted int64) {
			metrics.TokensSweptTotal.Add(float64(deleted))
		}
	}
	if cfg.Auth.SweepSchedule != "" {
		if err := sweeper.Start(cfg.Auth.SweepSchedule); err != nil {
			logger.WithError(err).Error("Failed to schedule token sweeper")
			os.Exit(1)
		}
		logger.WithField("schedule", cfg.Auth.SweepSchedule).Info("Token sweeper scheduled")
	}

	if metrics != nil {
		go reportDBPoolStats(db, metrics, logger)
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(healthServer.Shutdown)
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		sweeper.Stop()
		return nil
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return db.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}

	var g errgroup.Group
	g.Go(func() error {
		logger.WithField("addr", httpServer.Addr).Info("Starting API server")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Starting health/metrics server")
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(shutdown.WaitForShutdown)

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
}

// reportDBPoolStats mirrors the connection pool into the gauges every few
// seconds for the lifetime of the process.
func reportDBPoolStats(db *sql.DB, metrics *observability.Metrics, logger *observability.Logger) {
	defer observability.RecoverPanic(logger, "db pool stats reporter")

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		stats := db.Stats()
		metrics.DBConnectionsActive.Set(float64(stats.InUse))
		metrics.DBConnectionsIdle.Set(float64(stats.Idle))
	}
}
