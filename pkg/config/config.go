package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fablekeep/fablekeep/pkg/observability"
	"github.com/fablekeep/fablekeep/pkg/token"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration (optional; empty URL disables redis features)
	Redis RedisConfig

	// Auth configuration
	Auth AuthConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
	Timeout  time.Duration
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// AuthConfig holds token signing and lifecycle settings
type AuthConfig struct {
	// Secret is the HMAC signing secret. When SecretFile is set the file
	// contents win and the secret reloads on change.
	Secret     string
	SecretFile string

	Issuer   string
	Audience string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// SweepSchedule is a cron expression for the expired-token sweeper.
	// Empty disables the sweeper.
	SweepSchedule  string
	SweepRetention time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// fileConfig is the YAML shape of the optional config file. Durations are
// written in the same total notation the env variables use.
type fileConfig struct {
	Server struct {
		Host       string `yaml:"host"`
		Port       string `yaml:"port"`
		HealthPort string `yaml:"health_port"`
	} `yaml:"server"`
	Database struct {
		URL      string `yaml:"url"`
		MaxConns int    `yaml:"max_conns"`
		MinConns int    `yaml:"min_conns"`
	} `yaml:"database"`
	Redis struct {
		URL      string `yaml:"url"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Auth struct {
		SecretFile     string `yaml:"secret_file"`
		Issuer         string `yaml:"issuer"`
		Audience       string `yaml:"audience"`
		AccessTTL      string `yaml:"access_ttl"`
		RefreshTTL     string `yaml:"refresh_ttl"`
		SweepSchedule  string `yaml:"sweep_schedule"`
		SweepRetention string `yaml:"sweep_retention"`
	} `yaml:"auth"`
	Observability struct {
		LogLevel       string `yaml:"log_level"`
		MetricsEnabled *bool  `yaml:"metrics_enabled"`
	} `yaml:"observability"`
}

// LoadConfig loads configuration from the optional YAML file named by
// FABLEKEEP_CONFIG_FILE, then applies environment overrides. Environment
// always wins.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("FABLEKEEP_CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Database: DatabaseConfig{
			MaxConns: 20,
			MinConns: 2,
			Timeout:  10 * time.Second,
		},
		Auth: AuthConfig{
			Issuer:         "fablekeep",
			Audience:       "fablekeep-api",
			AccessTTL:      15 * time.Minute,
			RefreshTTL:     7 * 24 * time.Hour,
			SweepRetention: token.DefaultRetention,
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.InfoLevel,
			MetricsEnabled: true,
		},
	}
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}

	setString(&cfg.Server.Host, fc.Server.Host)
	setString(&cfg.Server.Port, fc.Server.Port)
	setString(&cfg.Server.HealthPort, fc.Server.HealthPort)

	setString(&cfg.Database.URL, fc.Database.URL)
	if fc.Database.MaxConns > 0 {
		cfg.Database.MaxConns = fc.Database.MaxConns
	}
	if fc.Database.MinConns > 0 {
		cfg.Database.MinConns = fc.Database.MinConns
	}

	setString(&cfg.Redis.URL, fc.Redis.URL)
	setString(&cfg.Redis.Password, fc.Redis.Password)
	if fc.Redis.DB > 0 {
		cfg.Redis.DB = fc.Redis.DB
	}

	setString(&cfg.Auth.SecretFile, fc.Auth.SecretFile)
	setString(&cfg.Auth.Issuer, fc.Auth.Issuer)
	setString(&cfg.Auth.Audience, fc.Auth.Audience)
	setString(&cfg.Auth.SweepSchedule, fc.Auth.SweepSchedule)
	if err := setTTL(&cfg.Auth.AccessTTL, fc.Auth.AccessTTL); err != nil {
		return fmt.Errorf("auth.access_ttl: %w", err)
	}
	if err := setTTL(&cfg.Auth.RefreshTTL, fc.Auth.RefreshTTL); err != nil {
		return fmt.Errorf("auth.refresh_ttl: %w", err)
	}
	if err := setTTL(&cfg.Auth.SweepRetention, fc.Auth.SweepRetention); err != nil {
		return fmt.Errorf("auth.sweep_retention: %w", err)
	}

	if fc.Observability.LogLevel != "" {
		cfg.Observability.LogLevel = parseLogLevel(fc.Observability.LogLevel)
	}
	if fc.Observability.MetricsEnabled != nil {
		cfg.Observability.MetricsEnabled = *fc.Observability.MetricsEnabled
	}

	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Server.Host = getEnv("FABLEKEEP_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("FABLEKEEP_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("FABLEKEEP_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("FABLEKEEP_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("FABLEKEEP_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("FABLEKEEP_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.HealthPort = getEnv("FABLEKEEP_HEALTH_PORT", cfg.Server.HealthPort)

	cfg.Database.URL = getEnv("FABLEKEEP_POSTGRES_URL", cfg.Database.URL)
	cfg.Database.MaxConns = getEnvInt("FABLEKEEP_POSTGRES_MAX_CONNS", cfg.Database.MaxConns)
	cfg.Database.MinConns = getEnvInt("FABLEKEEP_POSTGRES_MIN_CONNS", cfg.Database.MinConns)
	cfg.Database.Timeout = getEnvDuration("FABLEKEEP_POSTGRES_TIMEOUT", cfg.Database.Timeout)

	cfg.Redis.URL = getEnv("FABLEKEEP_REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Password = getEnv("FABLEKEEP_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("FABLEKEEP_REDIS_DB", cfg.Redis.DB)

	cfg.Auth.Secret = getEnv("FABLEKEEP_AUTH_SECRET", cfg.Auth.Secret)
	cfg.Auth.SecretFile = getEnv("FABLEKEEP_AUTH_SECRET_FILE", cfg.Auth.SecretFile)
	cfg.Auth.Issuer = getEnv("FABLEKEEP_AUTH_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.Audience = getEnv("FABLEKEEP_AUTH_AUDIENCE", cfg.Auth.Audience)
	cfg.Auth.SweepSchedule = getEnv("FABLEKEEP_SWEEP_SCHEDULE", cfg.Auth.SweepSchedule)

	if err := setTTL(&cfg.Auth.AccessTTL, os.Getenv("FABLEKEEP_ACCESS_TTL")); err != nil {
		return fmt.Errorf("FABLEKEEP_ACCESS_TTL: %w", err)
	}
	if err := setTTL(&cfg.Auth.RefreshTTL, os.Getenv("FABLEKEEP_REFRESH_TTL")); err != nil {
		return fmt.Errorf("FABLEKEEP_REFRESH_TTL: %w", err)
	}
	if err := setTTL(&cfg.Auth.SweepRetention, os.Getenv("FABLEKEEP_SWEEP_RETENTION")); err != nil {
		return fmt.Errorf("FABLEKEEP_SWEEP_RETENTION: %w", err)
	}

	if level := os.Getenv("FABLEKEEP_LOG_LEVEL"); level != "" {
		cfg.Observability.LogLevel = parseLogLevel(level)
	}
	cfg.Observability.MetricsEnabled = getEnvBool("FABLEKEEP_METRICS_ENABLED", cfg.Observability.MetricsEnabled)

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Auth.Secret == "" && c.Auth.SecretFile == "" {
		return fmt.Errorf("auth secret or secret file is required")
	}
	if c.Auth.Secret != "" && len(c.Auth.Secret) < token.MinSecretLen {
		return fmt.Errorf("auth secret must be at least %d bytes", token.MinSecretLen)
	}
	if c.Auth.Issuer == "" {
		return fmt.Errorf("auth issuer is required")
	}
	if c.Auth.Audience == "" {
		return fmt.Errorf("auth audience is required")
	}
	if c.Auth.AccessTTL <= 0 {
		return fmt.Errorf("access TTL must be positive")
	}
	if c.Auth.RefreshTTL <= 0 {
		return fmt.Errorf("refresh TTL must be positive")
	}
	if c.Auth.AccessTTL >= c.Auth.RefreshTTL {
		return fmt.Errorf("access TTL must be shorter than refresh TTL")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// setTTL parses a total duration string ("900", "15m", "7d") into dst,
// leaving dst untouched when the value is empty.
func setTTL(dst *time.Duration, value string) error {
	if value == "" {
		return nil
	}
	d, err := token.ParseTTL(value)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
