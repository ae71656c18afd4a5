package observability

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/daimoniac/apilog/internal/tracing"
)

var (
	stateCollectorOnce     sync.Once
	stateCollectorInstance *StateCollector
)

// SessionCounter reports how many sessions are currently active
type SessionCounter interface {
	CountActive(ctx context.Context) (int, error)
}

// StateCollector reports the trace configuration and the session count when
// /metrics is scraped
type StateCollector struct {
	tracer   *tracing.Registry
	sessions SessionCounter
	logger   *Logger

	traceComponentsDesc *prometheus.Desc
	traceLevelsDesc     *prometheus.Desc
	traceExactDesc      *prometheus.Desc
	activeSessionsDesc  *prometheus.Desc

	// Session counts hit the store, so they are cached
	sessionsMu    sync.Mutex
	sessionsCache int
	sessionsTime  time.Time
	sessionsTTL   time.Duration
}

// NewStateCollector creates a collector. sessions may be nil, in which case
// no session metric is reported.
func NewStateCollector(tracer *tracing.Registry, sessions SessionCounter, logger *Logger) *StateCollector {
	return &StateCollector{
		tracer:      tracer,
		sessions:    sessions,
		logger:      logger,
		sessionsTTL: 30 * time.Second,
		traceComponentsDesc: prometheus.NewDesc(
			"apilog_trace_components",
			"Number of components registered for tracing",
			nil,
			nil,
		),
		traceLevelsDesc: prometheus.NewDesc(
			"apilog_trace_levels",
			"Number of trace levels registered per component (0 means every level)",
			[]string{"component"},
			nil,
		),
		traceExactDesc: prometheus.NewDesc(
			"apilog_trace_exact_mode",
			"1 when trace levels must match exactly, 0 for threshold matching",
			nil,
			nil,
		),
		activeSessionsDesc: prometheus.NewDesc(
			"apilog_sessions_active",
			"Current number of unexpired sessions",
			nil,
			nil,
		),
	}
}

// RegisterStateCollector registers the state collector exactly once
func RegisterStateCollector(tracer *tracing.Registry, sessions SessionCounter, logger *Logger) {
	stateCollectorOnce.Do(func() {
		stateCollectorInstance = NewStateCollector(tracer, sessions, logger)
		prometheus.MustRegister(stateCollectorInstance)
		logger.Boot("state metrics collector registered")
	})
}

// Describe sends the metric descriptors to the provided channel
func (c *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.traceComponentsDesc
	ch <- c.traceLevelsDesc
	ch <- c.traceExactDesc
	ch <- c.activeSessionsDesc
}

// Collect sends the current state to the provided channel
func (c *StateCollector) Collect(ch chan<- prometheus.Metric) {
	c.collectTrace(ch)

	if c.sessions == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c.collectSessions(ctx, ch)
}

func (c *StateCollector) collectTrace(ch chan<- prometheus.Metric) {
	if c.tracer == nil {
		return
	}

	snapshot := c.tracer.Snapshot()
	ch <- prometheus.MustNewConstMetric(
		c.traceComponentsDesc,
		prometheus.GaugeValue,
		float64(len(snapshot)),
	)

	for name, levels := range snapshot {
		ch <- prometheus.MustNewConstMetric(
			c.traceLevelsDesc,
			prometheus.GaugeValue,
			float64(len(levels)),
			name,
		)
	}

	exact := 0.0
	if c.tracer.Exact() {
		exact = 1
	}
	ch <- prometheus.MustNewConstMetric(c.traceExactDesc, prometheus.GaugeValue, exact)
}

func (c *StateCollector) collectSessions(ctx context.Context, ch chan<- prometheus.Metric) {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()

	if c.sessionsTime.IsZero() || time.Since(c.sessionsTime) >= c.sessionsTTL {
		n, err := c.sessions.CountActive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Debug("session metric collection timed out (likely database locked)",
					"error", err.Error())
			} else {
				c.logger.Warn("failed to collect session metric",
					"error", err.Error())
			}
			return
		}
		c.sessionsCache = n
		c.sessionsTime = time.Now()
	}

	ch <- prometheus.MustNewConstMetric(
		c.activeSessionsDesc,
		prometheus.GaugeValue,
		float64(c.sessionsCache),
	)
}
