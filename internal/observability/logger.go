package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/daimoniac/apilog/internal/errors"
	"github.com/daimoniac/apilog/internal/tracing"
)

// Options configures the logger sink
type Options struct {
	// Level is the minimum level name: debug, info, boot, database, warn, metrics, error
	Level string

	// Format is "json" or "console"
	Format string

	// Output is "stdout", "stderr" or a file path. Ignored when Writer is set.
	Output string

	// Writer overrides Output
	Writer io.Writer
}

// Logger wraps a slog.Logger with error, metrics and trace helpers
type Logger struct {
	base    *slog.Logger
	tracer  *tracing.Registry
	metrics *Metrics
	stdout  io.Writer
	closer  io.Closer
	initErr error
}

// NewLogger creates the application logger. Trace calls are gated by
// tracer; a nil tracer suppresses every trace message.
//
// If the sink cannot be opened the logger falls back to discarding all
// output; the failure is reported by InitErr.
func NewLogger(opts Options, tracer *tracing.Registry) *Logger {
	l := &Logger{
		tracer:  tracer,
		metrics: GetMetrics(),
		stdout:  os.Stdout,
	}

	w, closer, err := openOutput(opts)
	if err != nil {
		l.base = slog.New(slog.DiscardHandler)
		l.initErr = err
		return l
	}

	l.closer = closer
	l.base = slog.New(newHandler(opts.Format, w, ParseLevel(opts.Level)))
	return l
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{
		base:    slog.New(slog.DiscardHandler),
		metrics: GetMetrics(),
		stdout:  io.Discard,
	}
}

func openOutput(opts Options) (io.Writer, io.Closer, error) {
	if opts.Writer != nil {
		return opts.Writer, nil, nil
	}

	switch opts.Output {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	default:
		f, err := os.OpenFile(opts.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log output %s: %w", opts.Output, err)
		}
		return f, f, nil
	}
}

func newHandler(format string, w io.Writer, level slog.Level) slog.Handler {
	if format == "console" {
		return NewConsoleHandler(w, level)
	}

	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{
					Key:   a.Key,
					Value: slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano)),
				}
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					return slog.String(a.Key, LevelName(lvl))
				}
			}
			return a
		},
	})
}

// InitErr returns the error that forced the logger to discard output, if any
func (l *Logger) InitErr() error {
	return l.initErr
}

// Close releases the output file, if the logger opened one
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Slog returns the underlying slog.Logger
func (l *Logger) Slog() *slog.Logger {
	return l.base
}

// Tracer returns the registry trace calls are checked against
func (l *Logger) Tracer() *tracing.Registry {
	return l.tracer
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	l.base.Log(context.Background(), level, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args...) }

// Boot logs a startup event
func (l *Logger) Boot(msg string, args ...any) { l.log(LevelBoot, msg, args...) }

// Database logs a database lifecycle event
func (l *Logger) Database(msg string, args ...any) { l.log(LevelDatabase, msg, args...) }

// Error writes err as one line "<userID> <hashCode> <err>", using "-" for
// missing values.
func (l *Logger) Error(err error, hashCode, userID string) {
	if err == nil {
		return
	}

	user := userID
	if user == "" {
		user = "-"
	}
	code := hashCode
	if code == "" {
		code = "-"
	}

	status := apierrors.StatusCode(err)
	l.log(slog.LevelError, user+" "+code+" "+err.Error(),
		"hash_code", hashCode,
		"user_id", userID,
		"status", status)
	l.metrics.ErrorsLogged.WithLabelValues(strconv.Itoa(status)).Inc()
}

type metricsEvent struct {
	Event string `json:"event"`
	Info  any    `json:"info,omitempty"`
}

// Metrics logs {"event","info"} as JSON at the METRICS level. If info cannot
// be serialized a plain text line is written instead.
func (l *Logger) Metrics(event string, info any) {
	if event == "" {
		event = "NOEVENTPASSED"
	}
	l.metrics.MetricsEvents.Inc()

	payload, err := marshalEvent(event, info)
	if err != nil {
		l.metrics.MetricsFallback.Inc()
		l.log(LevelMetrics, fmt.Sprintf("metrics stringify err || %s :: %s", event, describe(info)))
		return
	}
	l.log(LevelMetrics, string(payload))
}

func marshalEvent(event string, info any) (data []byte, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("marshal panicked: %v", v)
		}
	}()
	return json.Marshal(metricsEvent{Event: event, Info: info})
}

func describe(v any) (s string) {
	defer func() {
		if recover() != nil {
			s = fmt.Sprintf("%T", v)
		}
	}()
	return fmt.Sprint(v)
}

// Trace logs msg at INFO if component is registered in the tracer
func (l *Logger) Trace(msg, component string) {
	if l.tracer == nil || !l.tracer.Enabled(component) {
		return
	}
	l.metrics.TraceEmitted.WithLabelValues(labelValue(component)).Inc()
	l.log(slog.LevelInfo, msg, "component", component)
}

// TraceLevel logs msg at INFO if the tracer lets level through for component
func (l *Logger) TraceLevel(msg, component string, level int) {
	if l.tracer == nil || !l.tracer.EnabledAt(component, level) {
		return
	}
	l.metrics.TraceEmitted.WithLabelValues(labelValue(component)).Inc()
	l.log(slog.LevelInfo, msg, "component", component, "trace_level", level)
}

// labelValue makes s usable as a Prometheus label value, which must be
// valid UTF-8
func labelValue(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// LogPanic records an uncaught panic value and the current stack, both in
// the log and directly on stdout.
func (l *Logger) LogPanic(v any) {
	msg := fmt.Sprintf("Uncaught exception has occurred %v", v)
	stack := strings.TrimSpace(string(debug.Stack()))

	l.log(slog.LevelError, msg)
	l.log(slog.LevelError, stack)
	fmt.Fprintln(l.stdout, msg)
	fmt.Fprintln(l.stdout, stack)
	l.metrics.PanicsLogged.Inc()
}

// Recover logs a panic and re-panics. Use it deferred at the top of main
// and of long running goroutines:
//
//	defer logger.Recover()
func (l *Logger) Recover() {
	if v := recover(); v != nil {
		l.LogPanic(v)
		panic(v)
	}
}
