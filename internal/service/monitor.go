package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/DukeRupert/presskit/internal/domain"
	"github.com/DukeRupert/presskit/internal/metrics"
	"github.com/DukeRupert/presskit/internal/notify"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TenantDirectory lists tenants for the daily usage pass.
type TenantDirectory interface {
	// ListTenantIDs returns every tenant whose subscription tracks usage.
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)

	// GetTenantDisplayName returns the name shown in operator notifications.
	GetTenantDisplayName(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// NotificationLog remembers which threshold crossings the operator has
// already been told about.
type NotificationLog interface {
	HasNotified(ctx context.Context, key domain.NotificationKey) (bool, error)
	Record(ctx context.Context, key domain.NotificationKey, eval domain.Evaluation) error
}

// MonitorConfig tunes the daily usage pass.
type MonitorConfig struct {
	// Concurrency bounds how many tenants are evaluated at once.
	// Default: 1
	Concurrency int

	// Dedupe sends at most one notification per tenant, resource, period
	// and band. When false every pass notifies for every alerting resource.
	// Default: true
	Dedupe bool
}

// DefaultMonitorConfig returns the MonitorConfig defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{Concurrency: 1, Dedupe: true}
}

// TenantResult counts what happened while checking one tenant.
type TenantResult struct {
	Summary      *domain.UsageSummary
	Notified     int
	Suppressed   int
	NotifyFailed int
}

// RunResult aggregates one pass over every tenant.
type RunResult struct {
	Tenants      int
	Succeeded    int
	Failed       int
	Notified     int
	Suppressed   int
	NotifyFailed int

	// Summaries holds the summary of every tenant that was evaluated.
	Summaries []*domain.UsageSummary
}

// UsageMonitor evaluates every tenant's usage and notifies the operator
// about resources approaching or at their quota.
type UsageMonitor struct {
	usage    UsageService
	tenants  TenantDirectory
	log      NotificationLog
	notifier notify.Notifier
	config   MonitorConfig
	logger   *slog.Logger
}

// NewUsageMonitor creates a new UsageMonitor. log may be nil only when
// dedupe is disabled.
func NewUsageMonitor(
	usage UsageService,
	tenants TenantDirectory,
	log NotificationLog,
	notifier notify.Notifier,
	config MonitorConfig,
	logger *slog.Logger,
) (*UsageMonitor, error) {
	if config.Concurrency < 1 {
		return nil, fmt.Errorf("usage monitor: concurrency must be at least 1, got %d", config.Concurrency)
	}
	if config.Dedupe && log == nil {
		return nil, fmt.Errorf("usage monitor: dedupe requires a notification log")
	}
	if notifier == nil {
		return nil, fmt.Errorf("usage monitor: notifier is required")
	}

	return &UsageMonitor{
		usage:    usage,
		tenants:  tenants,
		log:      log,
		notifier: notifier,
		config:   config,
		logger:   logger,
	}, nil
}

// RunOnce checks every tracked tenant. A tenant that fails is logged and
// counted; the pass continues with the rest. The returned error is set
// only when the tenant list itself could not be loaded.
func (m *UsageMonitor) RunOnce(ctx context.Context) (RunResult, error) {
	ids, err := m.tenants.ListTenantIDs(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("list tenants: %w", err)
	}

	result := RunResult{Tenants: len(ids)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(m.config.Concurrency)

	for _, id := range ids {
		g.Go(func() error {
			tr, err := m.checkTenantSafely(ctx, id)

			mu.Lock()
			defer mu.Unlock()

			result.Notified += tr.Notified
			result.Suppressed += tr.Suppressed
			result.NotifyFailed += tr.NotifyFailed

			if err != nil {
				result.Failed++
				metrics.TenantEvaluated(false)
				m.logger.Error("Usage check failed for tenant",
					"tenant_id", id,
					"error", err,
				)
				return nil
			}

			result.Succeeded++
			metrics.TenantEvaluated(true)
			if tr.Summary != nil {
				result.Summaries = append(result.Summaries, tr.Summary)
			}
			return nil
		})
	}
	_ = g.Wait()

	return result, nil
}

// checkTenantSafely converts a panic in one tenant's check into an error.
func (m *UsageMonitor) checkTenantSafely(ctx context.Context, tenantID uuid.UUID) (tr TenantResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("usage check panicked: %v", r)
		}
	}()
	return m.CheckTenant(ctx, tenantID)
}

// CheckTenant evaluates one tenant and sends a notification for each
// resource in an alerting band.
//
// A failed notification is logged and counted but does not fail the
// tenant; it is not recorded, so the next pass tries again.
func (m *UsageMonitor) CheckTenant(ctx context.Context, tenantID uuid.UUID) (TenantResult, error) {
	var tr TenantResult

	summary, err := m.usage.Summarize(ctx, tenantID)
	if err != nil {
		return tr, err
	}
	if summary == nil {
		// Subscription lapsed between listing and checking.
		return tr, nil
	}
	tr.Summary = summary

	logger := m.logger.With("tenant_id", tenantID, "tier", summary.Tier)

	var tenantName string
	for _, r := range domain.ResourceTypes {
		eval := summary.Evaluation(r)
		if !eval.Band.Alerting() {
			continue
		}

		key := domain.NotificationKey{
			TenantID:    tenantID,
			Resource:    r,
			PeriodStart: summary.PeriodStart,
			Band:        eval.Band,
		}

		if m.config.Dedupe {
			seen, err := m.log.HasNotified(ctx, key)
			if err != nil {
				return tr, fmt.Errorf("check notification log: %w", err)
			}
			if seen {
				tr.Suppressed++
				metrics.Notification(string(r), string(eval.Band), "suppressed")
				continue
			}
		}

		if tenantName == "" {
			tenantName, err = m.tenants.GetTenantDisplayName(ctx, tenantID)
			if err != nil {
				return tr, fmt.Errorf("load tenant name: %w", err)
			}
		}

		n := notify.UsageAlert{
			TenantID:   tenantID,
			TenantName: tenantName,
			Tier:       summary.Tier,
			Resource:   r,
			Evaluation: eval,
			Period:     domain.Period{Start: summary.PeriodStart, End: summary.PeriodEnd},
		}.Notification()

		if err := m.notifier.Notify(ctx, n); err != nil {
			tr.NotifyFailed++
			metrics.Notification(string(r), string(eval.Band), "failed")
			logger.Error("Failed to send usage notification",
				"resource", r,
				"band", eval.Band,
				"error", err,
			)
			continue
		}

		tr.Notified++
		metrics.Notification(string(r), string(eval.Band), "sent")
		logger.Info("Usage notification sent",
			"resource", r,
			"band", eval.Band,
			"used", eval.Used,
			"percentage", eval.Percentage,
		)

		if m.config.Dedupe {
			if err := m.log.Record(ctx, key, eval); err != nil {
				logger.Warn("Failed to record usage notification, it may be sent again",
					"resource", r,
					"band", eval.Band,
					"error", err,
				)
			}
		}
	}

	return tr, nil
}
