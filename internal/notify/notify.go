// Package notify delivers change alerts. Delivery is fire-and-forget from
// the cycle runner's point of view: failures are logged, never retried.
package notify

import (
	"context"
	"log/slog"
)

// Notification describes one detected change.
type Notification struct {
	Recipient string
	URL       string
	Old       string
	New       string
}

// Notifier is the outbound channel contract.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// snippetLimit bounds how much fragment text is echoed into logs and
// messages.
const snippetLimit = 200

func snippet(s string) string {
	if s == "" {
		return "<empty>"
	}
	if len(s) > snippetLimit {
		return s[:snippetLimit]
	}
	return s
}

// LogNotifier writes the alert to the structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	lg := l.Logger
	if lg == nil {
		lg = slog.Default()
	}
	lg.Info("content change alert",
		"to", n.Recipient,
		"url", n.URL,
		"old", snippet(n.Old),
		"new", snippet(n.New))
	return nil
}

// Multi fans one notification out to several channels. The first error is
// returned after all channels have been attempted.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var first error
	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}
