package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	checks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webwatch",
			Subsystem: "worker",
			Name:      "checks_total",
			Help:      "Number of per-monitor checks by outcome.",
		}, []string{"outcome"},
	)
	batchRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webwatch",
			Subsystem: "worker",
			Name:      "batch_runs_total",
			Help:      "Number of completed batch passes by trigger.",
		}, []string{"trigger"},
	)
	batchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "webwatch",
			Subsystem: "worker",
			Name:      "batch_duration_seconds",
			Help:      "Wall-clock duration of a full batch pass.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	fetchErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "webwatch",
			Subsystem: "worker",
			Name:      "fetch_errors_total",
			Help:      "Number of checks skipped because the page fetch failed.",
		},
	)
	notifications = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "webwatch",
			Subsystem: "worker",
			Name:      "notifications_total",
			Help:      "Number of change notifications handed to the notifier.",
		},
	)
	monitorCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "webwatch",
			Name:      "monitors",
			Help:      "Number of monitor records seen by the most recent batch.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{checks, batchRuns, batchDuration, fetchErrors, notifications, monitorCount}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncCheck(outcome string) {
	if regOK.Load() {
		checks.WithLabelValues(outcome).Inc()
	}
}

func IncBatchRun(trigger string) {
	if regOK.Load() {
		batchRuns.WithLabelValues(trigger).Inc()
	}
}

func ObserveBatchDuration(seconds float64) {
	if regOK.Load() {
		batchDuration.Observe(seconds)
	}
}

func IncFetchError() {
	if regOK.Load() {
		fetchErrors.Inc()
	}
}

func IncNotification() {
	if regOK.Load() {
		notifications.Inc()
	}
}

func SetMonitorCount(n int) {
	if regOK.Load() {
		monitorCount.Set(float64(n))
	}
}
