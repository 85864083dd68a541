package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/presskit/internal/clock"
	"github.com/DukeRupert/presskit/internal/domain"
	"github.com/DukeRupert/presskit/internal/service"
	"github.com/DukeRupert/presskit/internal/worker"
)

// UsageCheckJobName identifies the daily usage pass in logs and metrics.
const UsageCheckJobName = "usage_check"

// ErrTenantsFailed is returned by a pass in which at least one tenant
// could not be evaluated. The other tenants were still processed.
var ErrTenantsFailed = errors.New("usage check failed for some tenants")

// UsageChecker runs one pass over every tenant.
type UsageChecker interface {
	RunOnce(ctx context.Context) (service.RunResult, error)
}

// ReportExporter stores the summaries gathered by a pass.
type ReportExporter interface {
	Export(ctx context.Context, summaries []*domain.UsageSummary, day time.Time) (string, error)
}

// UsageCheckJob is the daily usage pass: evaluate every tenant, notify the
// operator, then export the day's report.
type UsageCheckJob struct {
	checker  UsageChecker
	exporter ReportExporter // nil when export is disabled
	clock    clock.Clock
	location *time.Location
	logger   *slog.Logger

	mu   sync.Mutex
	last *UsageCheckRun
}

// UsageCheckRun describes a finished pass.
type UsageCheckRun struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Result     service.RunResult `json:"-"`
	ReportKey  string            `json:"report_key,omitempty"`
}

type runCaptureKey struct{}

type runCapture struct {
	run *UsageCheckRun
}

// CaptureRun returns a context that records the run produced by a Run
// called with it, directly or through a worker. The returned func reports
// that run, or nil if the pass failed before producing one.
func CaptureRun(ctx context.Context) (context.Context, func() *UsageCheckRun) {
	c := &runCapture{}
	return context.WithValue(ctx, runCaptureKey{}, c), func() *UsageCheckRun { return c.run }
}

// NewUsageCheckJob creates the daily usage job. exporter may be nil.
// Report keys are dated in location.
func NewUsageCheckJob(
	checker UsageChecker,
	exporter ReportExporter,
	clk clock.Clock,
	location *time.Location,
	logger *slog.Logger,
) *UsageCheckJob {
	if location == nil {
		location = time.UTC
	}
	return &UsageCheckJob{
		checker:  checker,
		exporter: exporter,
		clock:    clk,
		location: location,
		logger:   logger,
	}
}

// Name returns the job name.
func (j *UsageCheckJob) Name() string {
	return UsageCheckJobName
}

// Run executes one pass.
func (j *UsageCheckJob) Run(ctx context.Context) error {
	started := j.clock.Now()

	result, err := j.checker.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("usage check: %w", err)
	}

	j.logger.Info("Usage check finished",
		"tenants", result.Tenants,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"notified", result.Notified,
		"suppressed", result.Suppressed,
		"notify_failed", result.NotifyFailed,
	)

	run := &UsageCheckRun{StartedAt: started, Result: result}

	if j.exporter != nil {
		// Export failure never fails the pass.
		key, err := j.exporter.Export(ctx, result.Summaries, started.In(j.location))
		if err != nil {
			j.logger.Error("Failed to export usage report", "error", err)
		} else {
			run.ReportKey = key
		}
	}

	run.FinishedAt = j.clock.Now()
	j.mu.Lock()
	j.last = run
	j.mu.Unlock()

	if c, ok := ctx.Value(runCaptureKey{}).(*runCapture); ok {
		c.run = run
	}

	if result.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrTenantsFailed, result.Failed, result.Tenants)
	}
	return nil
}

// LastRun returns the most recent completed pass, or nil before the first.
func (j *UsageCheckJob) LastRun() *UsageCheckRun {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

var _ worker.Job = (*UsageCheckJob)(nil)
