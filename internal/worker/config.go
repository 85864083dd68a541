package worker

import (
	"fmt"
	"time"
)

// Config holds the configuration for the daily job worker.
type Config struct {
	// Hour and Minute are the local wall-clock time of the daily run.
	// Default: 09:00
	Hour   int
	Minute int

	// Location is the time zone Hour and Minute are interpreted in.
	// Default: UTC
	Location *time.Location

	// RunTimeout is the maximum time a single run is allowed to take.
	// If a run exceeds this timeout, its context is canceled.
	// Default: 30 minutes
	RunTimeout time.Duration

	// ShutdownTimeout is how long to wait for an in-flight run during graceful shutdown.
	// After this timeout, the run's context is canceled and the worker stops.
	// Default: 30 seconds
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Hour:            9,
		Minute:          0,
		Location:        time.UTC,
		RunTimeout:      30 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks if the configuration is valid.
// Returns an error if any values are invalid.
func (c Config) Validate() error {
	if c.Hour < 0 || c.Hour > 23 {
		return fmt.Errorf("hour must be between 0 and 23, got %d", c.Hour)
	}
	if c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("minute must be between 0 and 59, got %d", c.Minute)
	}
	if c.Location == nil {
		return fmt.Errorf("location is required")
	}
	if c.RunTimeout < 1*time.Second {
		return fmt.Errorf("run timeout must be at least 1 second, got %v", c.RunTimeout)
	}
	if c.ShutdownTimeout < 1*time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	}
	return nil
}

// ParseTimeOfDay parses "HH:MM" into an hour and minute.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q, want HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// NextRun returns the first scheduled time strictly after after.
func (c Config) NextRun(after time.Time) time.Time {
	local := after.In(c.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), c.Hour, c.Minute, 0, 0, c.Location)
	if !next.After(after) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, c.Hour, c.Minute, 0, 0, c.Location)
	}
	return next
}
