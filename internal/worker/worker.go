// Package worker implements the change-detection cycle: one batch pass over
// every monitor record, fetch → extract → compare → persist → notify, with
// per-record failure isolation.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ochse/webwatch/internal/extract"
	"github.com/ochse/webwatch/internal/fingerprint"
	"github.com/ochse/webwatch/internal/metrics"
	"github.com/ochse/webwatch/internal/monitor"
	"github.com/ochse/webwatch/internal/notify"
)

// ErrBatchInProgress is returned when a trigger arrives while a batch is
// already in flight. Overlapping triggers are rejected, not queued.
var ErrBatchInProgress = errors.New("a batch is already in progress")

// Fetcher retrieves raw page content for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Outcomes of a single per-record check.
const (
	outcomeSnapshot  = "snapshot"
	outcomeChanged   = "changed"
	outcomeUnchanged = "unchanged"
	outcomeError     = "error"
)

// Summary reports what one batch pass did.
type Summary struct {
	Checked   int `json:"checked"`
	Snapshots int `json:"snapshots"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Runner executes batch passes. At most one batch runs process-wide; within
// a batch, records are checked by a bounded pool. Each record id appears once
// per batch and batches never overlap, so no two fetch/compare/write
// sequences for the same id are ever in flight together.
type Runner struct {
	store       monitor.Store
	fetcher     Fetcher
	notifier    notify.Notifier
	logger      *slog.Logger
	concurrency int

	mu sync.Mutex // batch-level mutual exclusion
}

// New returns a Runner. concurrency <= 1 means sequential processing.
func New(store monitor.Store, fetcher Fetcher, notifier notify.Notifier, logger *slog.Logger, concurrency int) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		store:       store,
		fetcher:     fetcher,
		notifier:    notifier,
		logger:      logger,
		concurrency: concurrency,
	}
}

// RunOnce performs exactly one check for every record currently in the
// store. trigger labels the batch for metrics ("interval", "manual", "cli").
// Returns ErrBatchInProgress if another batch is in flight.
func (r *Runner) RunOnce(ctx context.Context, trigger string) (Summary, error) {
	if !r.mu.TryLock() {
		return Summary{}, ErrBatchInProgress
	}
	defer r.mu.Unlock()

	start := time.Now()
	records, err := r.store.ListAll(ctx)
	if err != nil {
		return Summary{}, err
	}
	metrics.SetMonitorCount(len(records))
	r.logger.Info("batch started", "trigger", trigger, "monitors", len(records))

	var (
		sumMu sync.Mutex
		sum   = Summary{Checked: len(records)}
	)
	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			outcome := r.check(ctx, rec)
			metrics.IncCheck(outcome)
			sumMu.Lock()
			switch outcome {
			case outcomeSnapshot:
				sum.Snapshots++
			case outcomeChanged:
				sum.Changed++
			case outcomeUnchanged:
				sum.Unchanged++
			case outcomeError:
				sum.Failed++
			}
			sumMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	metrics.IncBatchRun(trigger)
	metrics.ObserveBatchDuration(elapsed.Seconds())
	r.logger.Info("batch finished",
		"trigger", trigger,
		"duration", elapsed,
		"snapshots", sum.Snapshots,
		"changed", sum.Changed,
		"unchanged", sum.Unchanged,
		"failed", sum.Failed)
	return sum, nil
}

// check runs the per-record state machine. A failure never propagates past
// the record boundary: the record is left untouched and the batch moves on.
func (r *Runner) check(ctx context.Context, rec monitor.Record) string {
	raw, err := r.fetcher.Fetch(ctx, rec.URL)
	if err != nil {
		metrics.IncFetchError()
		r.logger.Warn("check failed", "id", rec.ID, "url", rec.URL, "error", err)
		return outcomeError
	}

	newText := extract.Text(raw, rec.Selector)

	if rec.Virgin() {
		// First run for this monitor: record the snapshot, no alert.
		if err := r.store.UpdateContent(ctx, rec.ID, newText); err != nil {
			r.logger.Warn("snapshot write failed", "id", rec.ID, "url", rec.URL, "error", err)
			return outcomeError
		}
		r.logger.Info("first snapshot recorded", "id", rec.ID, "url", rec.URL)
		return outcomeSnapshot
	}

	old := rec.PreviousContent()
	if fingerprint.Equal(newText, old) {
		return outcomeUnchanged
	}

	r.logger.Info("change detected", "id", rec.ID, "url", rec.URL)
	metrics.IncNotification()
	if err := r.notifier.Notify(ctx, notify.Notification{
		Recipient: rec.OwnerEmail,
		URL:       rec.URL,
		Old:       old,
		New:       newText,
	}); err != nil {
		// Delivery failure is not distinguished from success.
		r.logger.Warn("notification delivery failed", "id", rec.ID, "error", err)
	}
	if err := r.store.UpdateContent(ctx, rec.ID, newText); err != nil {
		r.logger.Warn("content write failed", "id", rec.ID, "url", rec.URL, "error", err)
		return outcomeError
	}
	return outcomeChanged
}
