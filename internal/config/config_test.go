package config

import (
	"errors"
	"testing"
	"time"

	apierrors "github.com/daimoniac/apilog/internal/errors"
)

func TestLoad(t *testing.T) {
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected API port 8080, got %d", cfg.Server.Port)
	}
	if !cfg.Server.AccessLog {
		t.Error("Expected access log to be enabled by default")
	}
	if !cfg.Admin.RequireAuth {
		t.Error("Expected admin auth to be required when APP_ENV is unset")
	}
	if cfg.Admin.ProcessID != "0" {
		t.Errorf("Expected process id 0, got %s", cfg.Admin.ProcessID)
	}
	if cfg.Session.Store != "memory" {
		t.Errorf("Expected memory session store, got %s", cfg.Session.Store)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("Expected 24h session TTL, got %v", cfg.Session.TTL)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("Expected debug log level, got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.LogFormat != "console" {
		t.Errorf("Expected console log format, got %s", cfg.Observability.LogFormat)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default configuration should be valid: %v", err)
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	t.Setenv("API_PORT", "3000")
	t.Setenv("ACCESS_LOG", "false")
	t.Setenv("APP_ENV", "development")
	t.Setenv("PM_ID", "3")
	t.Setenv("HOST_ID", "web-7")
	t.Setenv("SESSION_STORE", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/sessions.db")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("TRACE_PRESETS", "trace.yml")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("METRICS_PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Expected API port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Server.AccessLog {
		t.Error("Expected access log to be disabled")
	}
	if cfg.Admin.RequireAuth {
		t.Error("Expected admin auth to be skipped when APP_ENV is set")
	}
	if cfg.Admin.ProcessID != "3" || cfg.Admin.HostID != "web-7" {
		t.Errorf("unexpected admin identity: %+v", cfg.Admin)
	}
	if cfg.Session.Store != "sqlite" || cfg.Session.SQLitePath != "/tmp/sessions.db" {
		t.Errorf("unexpected session config: %+v", cfg.Session)
	}
	if cfg.Session.TTL != 2*time.Hour {
		t.Errorf("Expected 2h session TTL, got %v", cfg.Session.TTL)
	}
	if cfg.Tracing.PresetsPath != "trace.yml" {
		t.Errorf("Expected trace presets path, got %q", cfg.Tracing.PresetsPath)
	}
	if cfg.Observability.MetricsPort != 9090 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.Observability.MetricsPort)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Session: SessionConfig{Store: "memory", CookieName: "sid"},
			Observability: ObservabilityConfig{
				LogFormat:           "json",
				MetricsPort:         9090,
				HealthCheckInterval: time.Second,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"metrics port zero", func(c *Config) { c.Observability.MetricsPort = 0 }, true},
		{"same ports", func(c *Config) { c.Observability.MetricsPort = 8080 }, true},
		{"unknown store", func(c *Config) { c.Session.Store = "redis" }, true},
		{"sqlite without path", func(c *Config) { c.Session.Store = "sqlite" }, true},
		{"sqlite with path", func(c *Config) { c.Session.Store = "sqlite"; c.Session.SQLitePath = "x.db" }, false},
		{"empty cookie", func(c *Config) { c.Session.CookieName = "" }, true},
		{"bad log format", func(c *Config) { c.Observability.LogFormat = "xml" }, true},
		{"zero health interval", func(c *Config) { c.Observability.HealthCheckInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apierrors.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
