package observability

// Package observability provides the logging facade, Prometheus metrics,
// and health checking for apilog.
//
// Key features:
// - slog based logger with JSON or colorized console output
// - Custom BOOT, DATABASE and METRICS levels
// - Error lines tagged with hash code and user id
// - Trace calls gated per component through a tracing.Registry
// - Prometheus metrics and health checks served on /metrics, /health, /ready
