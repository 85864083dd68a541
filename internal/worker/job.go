package worker

import "context"

// Job is a unit of work the worker runs on its daily schedule.
type Job interface {
	// Name identifies the job in logs and metrics.
	Name() string

	// Run executes one pass. The context is canceled when RunTimeout
	// elapses or the worker shuts down.
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

// Name returns JobName.
func (j JobFunc) Name() string { return j.JobName }

// Run calls Fn.
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }
