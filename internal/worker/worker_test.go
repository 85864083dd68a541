package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DukeRupert/presskit/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, false},
		{"hour too high", func(c *Config) { c.Hour = 24 }, true},
		{"negative minute", func(c *Config) { c.Minute = -1 }, true},
		{"minute too high", func(c *Config) { c.Minute = 60 }, true},
		{"missing location", func(c *Config) { c.Location = nil }, true},
		{"run timeout too short", func(c *Config) { c.RunTimeout = 500 * time.Millisecond }, true},
		{"shutdown timeout too short", func(c *Config) { c.ShutdownTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_NextRun(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	utc := DefaultConfig()
	eastern := DefaultConfig()
	eastern.Location = ny

	tests := []struct {
		name   string
		config Config
		after  time.Time
		want   time.Time
	}{
		{
			name:   "later today",
			config: utc,
			after:  time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
			want:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name:   "exactly at fire time moves to tomorrow",
			config: utc,
			after:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			want:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			name:   "month rollover",
			config: utc,
			after:  time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC),
			want:   time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name:   "across daylight saving start",
			config: eastern,
			after:  time.Date(2026, 3, 7, 10, 0, 0, 0, ny),
			want:   time.Date(2026, 3, 8, 9, 0, 0, 0, ny),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.config.NextRun(tt.after)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	h, m, err := ParseTimeOfDay("07:30")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 30, m)

	_, _, err = ParseTimeOfDay("7pm")
	assert.Error(t, err)
}

func receive(t *testing.T, ch <-chan time.Time) time.Time {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for run")
		return time.Time{}
	}
}

func TestWorker_RunsDaily(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(start)

	runs := make(chan time.Time, 4)
	job := JobFunc{JobName: "test", Fn: func(ctx context.Context) error {
		runs <- clk.Now()
		return nil
	}}

	w, err := New(job, DefaultConfig(), clk, testLogger())
	require.NoError(t, err)

	w.Start(context.Background())
	defer w.Stop()

	clk.BlockUntil(1)
	clk.Advance(time.Hour)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), receive(t, runs))

	clk.BlockUntil(1)
	clk.Advance(24 * time.Hour)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), receive(t, runs))
}

func TestWorker_OverrunSkipsSlot(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(start)

	var count atomic.Int32
	started := make(chan time.Time, 4)
	release := make(chan struct{})
	job := JobFunc{JobName: "slow", Fn: func(ctx context.Context) error {
		n := count.Add(1)
		started <- clk.Now()
		if n == 1 {
			<-release
		}
		return nil
	}}

	w, err := New(job, DefaultConfig(), clk, testLogger())
	require.NoError(t, err)
	w.Start(context.Background())
	defer w.Stop()

	clk.BlockUntil(1)
	clk.Advance(time.Hour)
	receive(t, started)

	// The run spans two scheduled slots; nothing is armed meanwhile.
	clk.Advance(48 * time.Hour)
	assert.Equal(t, 0, clk.Waiters())
	close(release)

	// Re-armed for the slot after the overrun ends (day 4 at 09:00).
	clk.BlockUntil(1)
	clk.Advance(23*time.Hour + 59*time.Minute)
	assert.Equal(t, 1, clk.Waiters())
	assert.Equal(t, int32(1), count.Load())

	clk.Advance(time.Minute)
	assert.Equal(t, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC), receive(t, started))
}

func TestWorker_RunNow(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))

	t.Run("returns job error", func(t *testing.T) {
		boom := errors.New("boom")
		w, err := New(JobFunc{JobName: "err", Fn: func(context.Context) error { return boom }}, DefaultConfig(), clk, testLogger())
		require.NoError(t, err)

		assert.ErrorIs(t, w.RunNow(context.Background()), boom)
	})

	t.Run("recovers panic", func(t *testing.T) {
		w, err := New(JobFunc{JobName: "panic", Fn: func(context.Context) error { panic("bad") }}, DefaultConfig(), clk, testLogger())
		require.NoError(t, err)

		err = w.RunNow(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")
	})

	t.Run("applies run timeout", func(t *testing.T) {
		w, err := New(JobFunc{JobName: "deadline", Fn: func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil
		}}, DefaultConfig(), clk, testLogger())
		require.NoError(t, err)

		assert.NoError(t, w.RunNow(context.Background()))
	})

	t.Run("passes caller context values to job", func(t *testing.T) {
		type key struct{}
		var got any
		w, err := New(JobFunc{JobName: "values", Fn: func(ctx context.Context) error {
			got = ctx.Value(key{})
			return nil
		}}, DefaultConfig(), clk, testLogger())
		require.NoError(t, err)

		require.NoError(t, w.RunNow(context.WithValue(context.Background(), key{}, "caller")))
		assert.Equal(t, "caller", got)
	})
}

func TestWorker_RunNowDoesNotOverlap(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	job := JobFunc{JobName: "serial", Fn: func(context.Context) error {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}}

	w, err := New(job, DefaultConfig(), clock.New(), testLogger())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.RunNow(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestNew_InvalidConfig(t *testing.T) {
	c := DefaultConfig()
	c.Hour = 25
	_, err := New(JobFunc{JobName: "x", Fn: func(context.Context) error { return nil }}, c, clock.New(), testLogger())
	assert.Error(t, err)
}
