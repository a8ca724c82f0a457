package webwatch

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ochse/webwatch/internal/config"
	"github.com/ochse/webwatch/internal/fetch"
	"github.com/ochse/webwatch/internal/metrics"
	"github.com/ochse/webwatch/internal/monitor"
	"github.com/ochse/webwatch/internal/notify"
	"github.com/ochse/webwatch/internal/schedule"
	iapi "github.com/ochse/webwatch/internal/server"
	"github.com/ochse/webwatch/internal/store/factory"
	"github.com/ochse/webwatch/internal/worker"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Record = monitor.Record

type Store = monitor.Store

type Summary = worker.Summary

type Notification = notify.Notification

type Notifier = notify.Notifier

var ErrNotFound = monitor.ErrNotFound

var ErrBatchInProgress = worker.ErrBatchInProgress

// Watcher is a thin facade over the check worker and its store.
// It provides a stable public API for embedding.
type Watcher struct {
	store  monitor.Store
	runner *worker.Runner
}

// Options tunes an embedded Watcher. Zero values fall back to the same
// defaults the daemon uses.
type Options struct {
	FetchTimeout time.Duration
	UserAgent    string
	Concurrency  int
	Notifier     notify.Notifier
	Logger       *slog.Logger
}

// New opens the store behind dsn and assembles a Watcher around it.
func New(dsn string, opts Options) (*Watcher, error) {
	st, err := factory.NewFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(context.Background()); err != nil {
		_ = st.Close()
		return nil, err
	}

	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = &notify.LogNotifier{Logger: lg}
	}
	fetcher := fetch.New(opts.FetchTimeout, opts.UserAgent)

	return &Watcher{
		store:  st,
		runner: worker.New(st, fetcher, notifier, lg, opts.Concurrency),
	}, nil
}

// Store exposes the underlying monitor registry.
func (w *Watcher) Store() Store { return w.store }

// RunOnce runs a single batch pass over all registered monitors.
func (w *Watcher) RunOnce(ctx context.Context) (Summary, error) {
	return w.runner.RunOnce(ctx, "embedded")
}

// Close releases the store.
func (w *Watcher) Close() error { return w.store.Close() }

type Scheduler struct{ inner *schedule.Scheduler }

// NewScheduler runs batches on the Watcher every interval.
func NewScheduler(w *Watcher, interval time.Duration, lg *slog.Logger) *Scheduler {
	if lg == nil {
		lg = slog.Default()
	}
	return &Scheduler{inner: schedule.New(w.runner, interval, lg)}
}

func (s *Scheduler) Start(ctx context.Context) error { return s.inner.Start(ctx) }
func (s *Scheduler) Stop()                           { s.inner.Stop() }

func LoadConfig(path string) (*config.Config, error) {
	return config.Load(path)
}

// NewHTTPServer starts an HTTP server exposing the API of the given Watcher.
func NewHTTPServer(addr, basePath, workerSecret string, w *Watcher) *http.Server {
	r := iapi.NewRouter(w.store, w.runner, workerSecret, basePath)
	return iapi.NewServer(addr, r)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
