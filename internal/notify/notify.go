// Package notify delivers operator notifications about tenant usage.
//
// Delivery is best effort. A Notifier returns an error when the message
// did not go out so the caller can decide whether to retry on a later run.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DukeRupert/presskit/internal/domain"
)

// Notifier sends a notification to the operator.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// =============================================================================
// Log Notifier
// =============================================================================

// LogNotifier writes notifications to the structured log. It is the
// fallback channel when no email or Slack transport is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs at warn level.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification. It never fails.
func (l *LogNotifier) Notify(ctx context.Context, n domain.Notification) error {
	l.logger.WarnContext(ctx, "usage notification",
		"title", n.Title,
		"body", n.Body,
	)
	return nil
}

// =============================================================================
// Fan-out
// =============================================================================

// New returns the notifier for the configured transports. With none it
// falls back to the log; with one it returns that transport unwrapped.
func New(logger *slog.Logger, transports ...Notifier) Notifier {
	switch len(transports) {
	case 0:
		return NewLogNotifier(logger)
	case 1:
		return transports[0]
	}
	return NewMulti(logger, transports...)
}

// Multi sends every notification to each configured channel.
type Multi struct {
	notifiers []Notifier
	logger    *slog.Logger
}

// NewMulti fans notifications out to notifiers in order.
func NewMulti(logger *slog.Logger, notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers, logger: logger}
}

// Notify tries every channel and returns the joined errors of those that
// failed. A message counts as delivered only when all channels took it, so
// a retry may repeat it on channels that already succeeded.
func (m *Multi) Notify(ctx context.Context, n domain.Notification) error {
	if len(m.notifiers) == 0 {
		return fmt.Errorf("notify: no channels configured")
	}

	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			m.logger.WarnContext(ctx, "notification channel failed",
				"channel", fmt.Sprintf("%T", notifier),
				"title", n.Title,
				"error", err,
			)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*Multi)(nil)
)
