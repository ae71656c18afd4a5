package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/daimoniac/apilog/internal/api"
	"github.com/daimoniac/apilog/internal/config"
	"github.com/daimoniac/apilog/internal/observability"
	"github.com/daimoniac/apilog/internal/session"
	"github.com/daimoniac/apilog/internal/tracing"
)

const sessionCleanupInterval = 10 * time.Minute

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API and observability servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tracer := tracing.NewRegistry()
	logger := observability.NewLogger(observability.Options{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
		Output: cfg.Observability.LogOutput,
	}, tracer)
	defer logger.Close()
	defer logger.Recover()

	if err := logger.InitErr(); err != nil {
		printError(fmt.Errorf("logging disabled: %w", err))
	}

	logger.Boot("starting apilog",
		"log_level", cfg.Observability.LogLevel,
		"log_format", cfg.Observability.LogFormat,
		"require_admin_auth", cfg.Admin.RequireAuth)

	if cfg.Tracing.PresetsPath != "" {
		presets, err := tracing.LoadPresets(cfg.Tracing.PresetsPath)
		if err != nil {
			return err
		}
		if err := presets.Apply(tracer); err != nil {
			return fmt.Errorf("failed to apply trace presets: %w", err)
		}
		logger.Boot("trace presets applied",
			"path", cfg.Tracing.PresetsPath,
			"components", len(presets.Components),
			"exact", presets.Exact)
	}

	_ = observability.GetMetrics()

	healthChecker := observability.NewHealthChecker(logger)
	healthChecker.RegisterComponent("sessions")
	healthChecker.RegisterComponent("logger")

	store, closeStore, err := openSessionStore(cfg, logger)
	if err != nil {
		healthChecker.UpdateComponentHealth("sessions", observability.StatusUnhealthy, err.Error())
		return err
	}
	defer closeStore()

	counter, _ := store.(observability.SessionCounter)
	observability.RegisterStateCollector(tracer, counter, logger)

	checks := map[string]observability.HealthCheckFunc{
		"sessions": store.Ping,
		"logger": func(context.Context) error {
			return logger.InitErr()
		},
	}

	obsServer := observability.NewServer(cfg.Observability.MetricsPort, logger, healthChecker)
	apiServer := api.NewServer(cfg, logger, tracer, store)

	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer logger.Recover()
		healthChecker.StartPeriodicChecks(ctx, cfg.Observability.HealthCheckInterval, checks)
	}()

	if cleaner, ok := store.(*session.SQLiteStore); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer logger.Recover()
			cleanupSessions(ctx, cleaner, logger)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := obsServer.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- err
		}
	}()

	logger.Boot("all components started",
		"api_port", cfg.Server.Port,
		"metrics_port", cfg.Observability.MetricsPort)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case runErr = <-errChan:
		logger.Error(runErr, "STARTUP", "")
	}

	// Servers shut themselves down once ctx is cancelled
	cancel()
	shutdown(logger, &wg)

	logger.Info("shutdown complete")
	return runErr
}

// shutdown waits for the cancelled components to stop, giving up after 30
// seconds
func shutdown(logger *observability.Logger, wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all components stopped gracefully")
	case <-time.After(30 * time.Second):
		logger.Warn("shutdown timeout exceeded, forcing exit")
	}
}

func openSessionStore(cfg *config.Config, logger *observability.Logger) (session.Store, func(), error) {
	switch cfg.Session.Store {
	case "sqlite":
		store, err := session.NewSQLiteStore(cfg.Session.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize sqlite session store: %w", err)
		}
		logger.Database("sqlite session store opened",
			"path", cfg.Session.SQLitePath)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("error closing session store",
					"error", err.Error())
			}
			logger.Database("sqlite session store closed")
		}, nil
	default:
		return session.NewMemoryStore(), func() {}, nil
	}
}

func cleanupSessions(ctx context.Context, store *session.SQLiteStore, logger *observability.Logger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.CleanupExpired(ctx)
			if err != nil {
				logger.Warn("session cleanup failed",
					"error", err.Error())
				continue
			}
			if n > 0 {
				logger.Database("expired sessions removed",
					"count", n)
			}
		}
	}
}
