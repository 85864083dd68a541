// Package worker runs a job once a day at a fixed wall-clock time.
//
// Runs never overlap. The next fire time is computed only after the
// current run returns, so a run that overruns its slot skips that slot
// instead of queueing a catch-up run.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/DukeRupert/presskit/internal/clock"
	"github.com/DukeRupert/presskit/internal/metrics"
)

// Worker schedules a single Job.
type Worker struct {
	job    Job
	config Config
	clock  clock.Clock
	logger *slog.Logger

	// runMu serializes scheduled and manual runs.
	runMu sync.Mutex

	// Synchronization
	wg     sync.WaitGroup
	stopCh chan struct{}
	cancel context.CancelFunc
	once   sync.Once
}

// New creates a new Worker with the given configuration.
// The worker must be started with Start() and stopped with Stop().
func New(job Job, config Config, clk clock.Clock, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("job is required")
	}

	return &Worker{
		job:    job,
		config: config,
		clock:  clk,
		logger: logger.With("job", job.Name()),
		stopCh: make(chan struct{}),
	}, nil
}

// Start launches the scheduling loop. It returns immediately.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Info("Worker started",
		"hour", w.config.Hour,
		"minute", w.config.Minute,
		"location", w.config.Location.String(),
	)
}

// Stop signals the loop to exit and waits for an in-flight run.
// It respects the configured ShutdownTimeout.
func (w *Worker) Stop() {
	w.once.Do(func() {
		w.logger.Info("Stopping worker...")
		close(w.stopCh)

		done := make(chan struct{})
		go func() {
			w.wg.Wait()
			close(done)
		}()

		timer := w.clock.After(w.config.ShutdownTimeout)
		select {
		case <-done:
			w.logger.Info("Worker stopped gracefully")
		case <-timer:
			w.logger.Warn("Worker shutdown timeout exceeded, canceling in-flight run")
		}

		if w.cancel != nil {
			w.cancel()
		}
	})
}

// RunNow executes the job immediately. It blocks while another run is in
// progress, so manual and scheduled runs never overlap.
func (w *Worker) RunNow(ctx context.Context) error {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, w.config.RunTimeout)
	defer cancel()

	start := w.clock.Now()
	w.logger.Info("Run started")

	err := w.execute(runCtx)

	finished := w.clock.Now()
	duration := finished.Sub(start)
	if err != nil {
		metrics.RunFailed(w.job.Name(), duration)
		w.logger.Error("Run failed", "duration", duration, "error", err)
		return err
	}

	metrics.RunCompleted(w.job.Name(), duration, finished)
	w.logger.Info("Run completed", "duration", duration)
	return nil
}

// execute runs the job and converts a panic into an error so one bad run
// cannot take down the loop.
func (w *Worker) execute(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return w.job.Run(ctx)
}

// loop waits for each fire time and runs the job until stopCh is closed.
func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		now := w.clock.Now()
		next := w.config.NextRun(now)
		w.logger.Debug("Next run scheduled", "at", next)

		select {
		case <-w.stopCh:
			w.logger.Debug("Worker loop stopping")
			return
		case <-ctx.Done():
			return
		case <-w.clock.After(next.Sub(now)):
		}

		// Errors are logged and counted by RunNow; the schedule continues.
		_ = w.RunNow(ctx)
	}
}
