package observability

import (
	"log/slog"
	"strings"
)

// Custom levels on top of the slog defaults
const (
	LevelBoot     = slog.LevelInfo + 1
	LevelDatabase = slog.LevelInfo + 2
	LevelMetrics  = slog.LevelWarn + 2
)

// LevelName returns the name printed for level
func LevelName(level slog.Level) string {
	switch level {
	case LevelBoot:
		return "BOOT"
	case LevelDatabase:
		return "DATABASE"
	case LevelMetrics:
		return "METRICS"
	default:
		return level.String()
	}
}

// ParseLevel maps a configured level name to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "boot":
		return LevelBoot
	case "database":
		return LevelDatabase
	case "warn", "warning":
		return slog.LevelWarn
	case "metrics":
		return LevelMetrics
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
