package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"qapages/site"
)

type fakeSuiteRunner struct {
	mu      sync.Mutex
	calls   []string
	release chan struct{}
	started chan string
}

func (f *fakeSuiteRunner) RunSuites(ctx context.Context, suites []Suite, opts RunOptions) (*RunResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, suites[0].Name+":"+opts.Trigger)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- suites[0].Name
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
		}
	}
	return &RunResult{Status: site.StatusPassed}, nil
}

func (f *fakeSuiteRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestShouldRun(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 4, 6, 30, 0, 0, time.Local)
	tests := []struct {
		name     string
		schedule Schedule
		lastRun  time.Time
		now      time.Time
		want     bool
	}{
		{"at matches first time", Schedule{At: "06:30"}, time.Time{}, at, true},
		{"at wrong minute", Schedule{At: "06:31"}, time.Time{}, at, false},
		{"at already ran today", Schedule{At: "06:30"}, at.Add(-time.Minute), at, false},
		{"at ran yesterday", Schedule{At: "06:30"}, at.Add(-24 * time.Hour), at, true},
		{"every first run", Schedule{Every: "30m"}, time.Time{}, at, true},
		{"every not elapsed", Schedule{Every: "30m"}, at.Add(-10 * time.Minute), at, false},
		{"every elapsed", Schedule{Every: "1h30m"}, at.Add(-90 * time.Minute), at, true},
		{"invalid", Schedule{Every: "often"}, time.Time{}, at, false},
		{"empty", Schedule{}, time.Time{}, at, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shouldRun(tt.schedule, tt.lastRun, tt.now), tt.name)
	}
}

func TestSchedulerRunsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := &fakeSuiteRunner{started: make(chan string, 4)}
	sf := &SuitesFile{Suites: []Suite{
		{Name: "smoke", Schedules: []Schedule{{Every: "1h"}}},
		{Name: "api"},
	}}
	s := NewScheduler(sf, fake, zerolog.Nop())
	s.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case name := <-fake.started:
		assert.Equal(t, "smoke", name)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled run did not start")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, []string{"smoke:" + TriggerScheduled}, fake.calls)
}

func TestSchedulerSkipsRunningSchedule(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := &fakeSuiteRunner{started: make(chan string, 4), release: make(chan struct{})}
	sf := &SuitesFile{Suites: []Suite{{Name: "smoke", Schedules: []Schedule{{Every: "1m"}}}}}
	s := NewScheduler(sf, fake, zerolog.Nop())

	clock := time.Date(2025, 3, 4, 6, 0, 0, 0, time.Local)
	s.now = func() time.Time { return clock }

	ctx := context.Background()
	s.tick(ctx)
	<-fake.started

	// The interval has passed but the first run is still going.
	clock = clock.Add(5 * time.Minute)
	s.tick(ctx)
	assert.Equal(t, 1, fake.count())

	close(fake.release)
	s.wg.Wait()

	clock = clock.Add(5 * time.Minute)
	s.tick(ctx)
	<-fake.started
	s.wg.Wait()
	require.Equal(t, 2, fake.count())
}
