package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ochse/webwatch/internal/config"
	"github.com/ochse/webwatch/internal/fetch"
	"github.com/ochse/webwatch/internal/logger"
	"github.com/ochse/webwatch/internal/metrics"
	"github.com/ochse/webwatch/internal/monitor"
	"github.com/ochse/webwatch/internal/notify"
	"github.com/ochse/webwatch/internal/schedule"
	"github.com/ochse/webwatch/internal/server"
	"github.com/ochse/webwatch/internal/store/factory"
	"github.com/ochse/webwatch/internal/worker"
)

// runServeCommand starts the daemon: store, worker, scheduler and HTTP API.
func runServeCommand(configPath string) error {
	cfg, lg, closer, err := loadConfigAndLogger(configPath)
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	st, runner, err := buildRunner(cfg, lg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if cfg.Metrics.Enabled {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			lg.Warn("metrics registration failed", "error", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := schedule.New(runner, cfg.Interval, lg)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	opts := []server.Option{server.WithLogger(lg)}
	if cfg.Metrics.Enabled {
		opts = append(opts, server.WithMetrics())
	}
	router := server.NewRouter(st, runner, cfg.WorkerSecret, cfg.BasePath, opts...)
	srv := server.NewServer(cfg.Listen, router)

	lg.Info("webwatch daemon started",
		"listen", cfg.Listen,
		"base_path", cfg.BasePath,
		"interval", cfg.Interval,
		"database", redactDSN(cfg.Database))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	lg.Info("shutting down")
	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// runCheckCommand runs a single batch pass without the daemon.
func runCheckCommand(configPath string) error {
	cfg, lg, closer, err := loadConfigAndLogger(configPath)
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	st, runner, err := buildRunner(cfg, lg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	sum, err := runner.RunOnce(context.Background(), "cli")
	if err != nil {
		return err
	}
	printJSON(sum)
	return nil
}

func loadConfigAndLogger(configPath string) (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error loading config: %w", err)
	}

	lg, closer := logger.New(logger.Config{
		Dir:        cfg.Log.Dir,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
		JSON:       cfg.Log.JSON,
		Level:      cfg.Log.Level,
	})
	slog.SetDefault(lg)
	return cfg, lg, closer, nil
}

// buildRunner opens the store, ensures the schema and assembles the worker.
func buildRunner(cfg *config.Config, lg *slog.Logger) (monitor.Store, *worker.Runner, error) {
	st, err := factory.NewFromDSN(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := st.EnsureSchema(ctx); err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}

	notifier, err := buildNotifier(cfg, lg)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	fetcher := fetch.New(cfg.FetchTimeout, cfg.UserAgent)
	runner := worker.New(st, fetcher, notifier, lg, cfg.Concurrency)
	return st, runner, nil
}

// buildNotifier assembles the notification fan-out from config. The log
// notifier is always present; Telegram is added when configured.
func buildNotifier(cfg *config.Config, lg *slog.Logger) (notify.Notifier, error) {
	notifiers := notify.Multi{&notify.LogNotifier{Logger: lg}}
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return nil, fmt.Errorf("telegram notifier: %w", err)
		}
		notifiers = append(notifiers, tg)
	}
	if len(notifiers) == 1 {
		return notifiers[0], nil
	}
	return notifiers, nil
}
