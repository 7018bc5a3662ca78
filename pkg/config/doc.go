// Package config provides application configuration management.
//
// # Overview
//
// Configuration comes from an optional YAML file named by
// FABLEKEEP_CONFIG_FILE, with environment variables layered on top.
// Environment always wins. All settings have sensible defaults.
//
// # Configuration Structure
//
// Server settings:
//
//	FABLEKEEP_HOST="0.0.0.0"
//	FABLEKEEP_PORT="8080"
//	FABLEKEEP_HEALTH_PORT="9090"
//	FABLEKEEP_READ_TIMEOUT="15s"
//	FABLEKEEP_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	FABLEKEEP_POSTGRES_URL="postgres://localhost/fablekeep"
//	FABLEKEEP_POSTGRES_MAX_CONNS="20"
//
// Redis settings (optional; unset disables the login throttle):
//
//	FABLEKEEP_REDIS_URL="localhost:6379"
//	FABLEKEEP_REDIS_DB="0"
//
// Auth settings:
//
//	FABLEKEEP_AUTH_SECRET="..."                     # at least 32 bytes
//	FABLEKEEP_AUTH_SECRET_FILE="/run/secrets/jwt"   # wins over the env secret
//	FABLEKEEP_AUTH_ISSUER="fablekeep"
//	FABLEKEEP_ACCESS_TTL="15m"    # raw seconds, Go durations, or "7d"
//	FABLEKEEP_REFRESH_TTL="7d"
//	FABLEKEEP_SWEEP_SCHEDULE="0 3 * * *"
//
// Observability settings:
//
//	FABLEKEEP_LOG_LEVEL="info"  # debug, info, warn, error
//	FABLEKEEP_METRICS_ENABLED="true"
//
// # Secret Rotation
//
// When FABLEKEEP_AUTH_SECRET_FILE is set, the signing secret is read from
// that file and reloaded whenever the file changes, so mounted secrets can
// rotate without a restart. A reload that fails validation keeps the
// previous secret.
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	secret, err := cfg.Auth.SecretProvider(logger)
//
// # Related Packages
//
//   - pkg/token: consumes the auth configuration and secret provider
//   - pkg/observability: consumes the observability configuration
package config
