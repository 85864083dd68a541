package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DukeRupert/presskit/internal/clock"
	"github.com/DukeRupert/presskit/internal/domain"
	"github.com/DukeRupert/presskit/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) RunOnce(ctx context.Context) (service.RunResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(service.RunResult), args.Error(1)
}

type mockExporter struct {
	mock.Mock
}

func (m *mockExporter) Export(ctx context.Context, summaries []*domain.UsageSummary, day time.Time) (string, error) {
	args := m.Called(ctx, summaries, day)
	return args.String(0), args.Error(1)
}

var jobNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func TestUsageCheckJob_Run(t *testing.T) {
	result := service.RunResult{Tenants: 2, Succeeded: 2, Notified: 1}

	checker := &mockChecker{}
	checker.On("RunOnce", mock.Anything).Return(result, nil)
	exporter := &mockExporter{}
	exporter.On("Export", mock.Anything, result.Summaries, jobNow).Return("usage-reports/2026/10/19.csv", nil)

	var logs bytes.Buffer
	job := NewUsageCheckJob(checker, exporter, clock.NewFakeClock(jobNow), time.UTC, slog.New(slog.NewTextHandler(&logs, nil)))

	require.NoError(t, job.Run(context.Background()))

	last := job.LastRun()
	require.NotNil(t, last)
	assert.Equal(t, "usage-reports/2026/10/19.csv", last.ReportKey)
	assert.Equal(t, 1, last.Result.Notified)
	assert.Contains(t, logs.String(), "Usage check finished")
	checker.AssertExpectations(t)
	exporter.AssertExpectations(t)
}

func TestUsageCheckJob_TenantFailuresFailThePass(t *testing.T) {
	checker := &mockChecker{}
	checker.On("RunOnce", mock.Anything).Return(service.RunResult{Tenants: 3, Succeeded: 2, Failed: 1}, nil)

	job := NewUsageCheckJob(checker, nil, clock.NewFakeClock(jobNow), nil, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	err := job.Run(context.Background())
	assert.ErrorIs(t, err, ErrTenantsFailed)
	require.NotNil(t, job.LastRun())
	assert.Empty(t, job.LastRun().ReportKey)
}

func TestUsageCheckJob_ExportFailureIsLogged(t *testing.T) {
	checker := &mockChecker{}
	checker.On("RunOnce", mock.Anything).Return(service.RunResult{Tenants: 1, Succeeded: 1}, nil)
	exporter := &mockExporter{}
	exporter.On("Export", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("bucket missing"))

	var logs bytes.Buffer
	job := NewUsageCheckJob(checker, exporter, clock.NewFakeClock(jobNow), time.UTC, slog.New(slog.NewTextHandler(&logs, nil)))

	assert.NoError(t, job.Run(context.Background()))
	assert.Contains(t, logs.String(), "Failed to export usage report")
}

func TestUsageCheckJob_ListFailure(t *testing.T) {
	checker := &mockChecker{}
	checker.On("RunOnce", mock.Anything).Return(service.RunResult{}, errors.New("db down"))

	job := NewUsageCheckJob(checker, nil, clock.NewFakeClock(jobNow), time.UTC, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	assert.Error(t, job.Run(context.Background()))
	assert.Nil(t, job.LastRun())
}

func TestUsageCheckJob_CaptureRun(t *testing.T) {
	checker := &mockChecker{}
	checker.On("RunOnce", mock.Anything).Return(service.RunResult{Tenants: 1, Succeeded: 1}, nil).Once()
	checker.On("RunOnce", mock.Anything).Return(service.RunResult{Tenants: 5, Succeeded: 5}, nil).Once()

	job := NewUsageCheckJob(checker, nil, clock.NewFakeClock(jobNow), time.UTC, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	ctx, captured := CaptureRun(context.Background())
	require.Nil(t, captured())
	require.NoError(t, job.Run(ctx))

	// A later pass without the capture context replaces LastRun only.
	require.NoError(t, job.Run(context.Background()))

	require.NotNil(t, captured())
	assert.Equal(t, 1, captured().Result.Tenants)
	assert.Equal(t, 5, job.LastRun().Result.Tenants)
}

func TestUsageCheckJob_CaptureRun_FailedPass(t *testing.T) {
	checker := &mockChecker{}
	checker.On("RunOnce", mock.Anything).Return(service.RunResult{}, errors.New("list tenants: timeout"))

	job := NewUsageCheckJob(checker, nil, clock.NewFakeClock(jobNow), time.UTC, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	ctx, captured := CaptureRun(context.Background())
	require.Error(t, job.Run(ctx))
	assert.Nil(t, captured())
}
