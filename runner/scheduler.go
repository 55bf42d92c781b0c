package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TriggerScheduled marks runs started by the scheduler.
const TriggerScheduled = "scheduled"

// SuiteRunner runs a set of suites; *Runner is the production implementation.
type SuiteRunner interface {
	RunSuites(ctx context.Context, suites []Suite, opts RunOptions) (*RunResult, error)
}

// Scheduler manages automatic suite runs based on schedules
type Scheduler struct {
	suites []Suite
	runner SuiteRunner
	logger zerolog.Logger

	// Interval is how often schedules are checked.
	Interval time.Duration
	// Notify is passed through to scheduled runs.
	Notify bool

	now         func() time.Time
	lastRuns    map[string]time.Time // track last execution per schedule
	runningJobs map[string]bool      // track currently running schedules
	mu          sync.RWMutex         // protect lastRuns and runningJobs
	wg          sync.WaitGroup
}

// NewScheduler creates a new scheduler instance
func NewScheduler(sf *SuitesFile, runner SuiteRunner, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		suites:      sf.Suites,
		runner:      runner,
		logger:      logger,
		Interval:    time.Minute,
		Notify:      true,
		now:         time.Now,
		lastRuns:    make(map[string]time.Time),
		runningJobs: make(map[string]bool),
	}
}

// Start runs the scheduler loop until ctx is done, then waits for triggered
// runs to return.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().Int("schedules", s.count()).Msg("📅 scheduler started")
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run tick immediately on start
	s.tick(ctx)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info().Msg("📅 scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) count() int {
	n := 0
	for _, suite := range s.suites {
		n += len(suite.Schedules)
	}
	return n
}

// tick checks all schedules and triggers runs if needed
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	for _, suite := range s.suites {
		for i, schedule := range suite.Schedules {
			key := fmt.Sprintf("%s-schedule-%d", suite.Name, i)

			s.mu.Lock()
			if s.runningJobs[key] || !shouldRun(schedule, s.lastRuns[key], now) {
				s.mu.Unlock()
				continue
			}
			s.runningJobs[key] = true
			s.lastRuns[key] = now
			s.mu.Unlock()

			s.wg.Add(1)
			go func(suite Suite, sched Schedule, key string) {
				defer s.wg.Done()
				s.executeSchedule(ctx, suite, sched)

				s.mu.Lock()
				delete(s.runningJobs, key)
				s.mu.Unlock()
			}(suite, schedule, key)
		}
	}
}

// shouldRun determines if a schedule should be triggered at now
func shouldRun(schedule Schedule, lastRun, now time.Time) bool {
	// Time-based schedule (at: "HH:MM")
	if schedule.At != "" {
		hour, minute, err := parseAtTime(schedule.At)
		if err != nil {
			return false
		}
		if now.Hour() != hour || now.Minute() != minute {
			return false
		}
		// Once per day at this time
		return lastRun.IsZero() || now.Sub(lastRun) >= 23*time.Hour
	}

	// Interval-based schedule (every: "1h", "30m", etc.)
	if schedule.Every != "" {
		interval, err := parseInterval(schedule.Every)
		if err != nil {
			return false
		}
		return lastRun.IsZero() || now.Sub(lastRun) >= interval
	}

	return false
}

// executeSchedule triggers a run of suite for the given schedule
func (s *Scheduler) executeSchedule(ctx context.Context, suite Suite, schedule Schedule) {
	when := schedule.At
	if when == "" {
		when = "every " + schedule.Every
	}
	logger := s.logger.With().Str("suite", suite.Name).Str("schedule", when).Logger()
	logger.Info().Msg("⏰ schedule triggered")

	res, err := s.runner.RunSuites(ctx, []Suite{suite}, RunOptions{Notify: s.Notify, Trigger: TriggerScheduled})
	switch {
	case err != nil:
		logger.Error().Err(err).Msg("❌ scheduled run failed")
	case res.Failed():
		logger.Warn().Str("run", res.Folder.Name).Msg("❌ scheduled run finished with failures")
	default:
		logger.Info().Str("run", res.Folder.Name).Msg("✅ scheduled run completed")
	}
}
