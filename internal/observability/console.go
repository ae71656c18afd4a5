package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Level colors for console output
var (
	colorDebug    = lipgloss.Color("#94A3B8") // Gray
	colorInfo     = lipgloss.Color("#10B981") // Emerald
	colorBoot     = lipgloss.Color("#8B5CF6") // Violet
	colorDatabase = lipgloss.Color("#06B6D4") // Cyan
	colorWarn     = lipgloss.Color("#F59E0B") // Amber
	colorMetrics  = lipgloss.Color("#3B82F6") // Blue
	colorError    = lipgloss.Color("#EF4444") // Red
	colorTime     = lipgloss.Color("#64748B") // Slate 500
)

type consoleStyles struct {
	time   lipgloss.Style
	key    lipgloss.Style
	levels map[slog.Level]lipgloss.Style
}

func newConsoleStyles(r *lipgloss.Renderer) *consoleStyles {
	level := func(c lipgloss.Color) lipgloss.Style {
		return r.NewStyle().Foreground(c).Bold(true)
	}
	return &consoleStyles{
		time: r.NewStyle().Foreground(colorTime),
		key:  r.NewStyle().Foreground(colorTime),
		levels: map[slog.Level]lipgloss.Style{
			slog.LevelDebug: level(colorDebug),
			slog.LevelInfo:  level(colorInfo),
			LevelBoot:       level(colorBoot),
			LevelDatabase:   level(colorDatabase),
			slog.LevelWarn:  level(colorWarn),
			LevelMetrics:    level(colorMetrics),
			slog.LevelError: level(colorError),
		},
	}
}

func (s *consoleStyles) level(l slog.Level) lipgloss.Style {
	if style, ok := s.levels[l]; ok {
		return style
	}
	if l >= slog.LevelError {
		return s.levels[slog.LevelError]
	}
	return s.levels[slog.LevelInfo]
}

// ConsoleHandler is a slog.Handler writing one colorized line per record:
//
//	2026-01-02T15:04:05.000Z INFO message key=value
//
// Colors are dropped automatically when the writer is not a terminal.
type ConsoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	styles *consoleStyles
	attrs  string
	prefix string
}

// NewConsoleHandler creates a console handler writing to w
func NewConsoleHandler(w io.Writer, level slog.Leveler) *ConsoleHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &ConsoleHandler{
		mu:     &sync.Mutex{},
		w:      w,
		level:  level,
		styles: newConsoleStyles(lipgloss.NewRenderer(w)),
	}
}

// Enabled implements slog.Handler
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(h.styles.time.Render(ts.UTC().Format("2006-01-02T15:04:05.000Z07:00")))
	b.WriteByte(' ')
	b.WriteString(h.styles.level(r.Level).Render(LevelName(r.Level)))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteString(h.attrs)

	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// WithAttrs implements slog.Handler
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	for _, a := range attrs {
		h.appendAttr(&b, h.prefix, a)
	}
	h2 := *h
	h2.attrs = h.attrs + b.String()
	return &h2
}

// WithGroup implements slog.Handler
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func (h *ConsoleHandler) appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.appendAttr(b, groupPrefix, ga)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(h.styles.key.Render(prefix + a.Key + "="))
	b.WriteString(quoteIfNeeded(formatValue(a.Value)))
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
