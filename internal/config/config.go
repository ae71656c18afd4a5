package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/daimoniac/apilog/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Admin         AdminConfig
	Session       SessionConfig
	Tracing       TracingConfig
	Observability ObservabilityConfig
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	Port      int
	AccessLog bool
}

// AdminConfig configures the administrative trace endpoints
type AdminConfig struct {
	// RequireAuth restricts the admin endpoints to super admins. It is
	// switched off by setting APP_ENV, which marks a non-production deployment.
	RequireAuth bool

	// ProcessID and HostID are echoed in admin responses so operators can
	// tell which instance answered
	ProcessID string
	HostID    string
}

// SessionConfig configures the session store
type SessionConfig struct {
	Store      string
	SQLitePath string
	CookieName string
	TTL        time.Duration
}

// TracingConfig configures the trace filter presets
type TracingConfig struct {
	PresetsPath string
}

// ObservabilityConfig configures logging, metrics and health checks
type ObservabilityConfig struct {
	LogLevel            string
	LogFormat           string
	LogOutput           string
	MetricsPort         int
	HealthCheckInterval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:      getEnvInt("API_PORT", 8080),
			AccessLog: getEnvBool("ACCESS_LOG", true),
		},
		Admin: AdminConfig{
			RequireAuth: os.Getenv("APP_ENV") == "",
			ProcessID:   getEnv("PM_ID", "0"),
			HostID:      getEnv("HOST_ID", ""),
		},
		Session: SessionConfig{
			Store:      getEnv("SESSION_STORE", "memory"),
			SQLitePath: getEnv("SQLITE_PATH", "apilog.db"),
			CookieName: getEnv("SESSION_COOKIE", "sid"),
			TTL:        getEnvDuration("SESSION_TTL", 24*time.Hour),
		},
		Tracing: TracingConfig{
			PresetsPath: getEnv("TRACE_PRESETS", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:            getEnv("LOG_LEVEL", "debug"),
			LogFormat:           getEnv("LOG_FORMAT", "console"),
			LogOutput:           getEnv("LOG_OUTPUT", "stdout"),
			MetricsPort:         getEnvInt("METRICS_PORT", 9090),
			HealthCheckInterval: getEnvDuration("HEALTH_CHECK_INTERVAL", 30*time.Second),
		},
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validatePort("API_PORT", c.Server.Port); err != nil {
		return err
	}

	if err := validatePort("METRICS_PORT", c.Observability.MetricsPort); err != nil {
		return err
	}

	if c.Server.Port == c.Observability.MetricsPort {
		return fmt.Errorf("%w: API_PORT and METRICS_PORT must differ (both %d)", errors.ErrInvalidInput, c.Server.Port)
	}

	switch c.Session.Store {
	case "memory":
	case "sqlite":
		if c.Session.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite path is required when using sqlite session store", errors.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: invalid session store type: %s (must be memory or sqlite)", errors.ErrInvalidInput, c.Session.Store)
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("%w: session cookie name is required", errors.ErrInvalidInput)
	}

	if c.Observability.LogFormat != "json" && c.Observability.LogFormat != "console" {
		return fmt.Errorf("%w: invalid log format: %s (must be json or console)", errors.ErrInvalidInput, c.Observability.LogFormat)
	}

	if c.Observability.HealthCheckInterval <= 0 {
		return fmt.Errorf("%w: health check interval must be positive", errors.ErrInvalidInput)
	}

	return nil
}

func validatePort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: %s out of range: %d", errors.ErrInvalidInput, name, port)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
