// Package retention truncates the chat log on the schedule described by the
// persisted retention policy.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pdsa-team/pdsa-backend/internal/settings"
)

// DefaultCheckInterval is how often the scheduler checks for a due firing.
// Cleanup times have minute resolution, so once a minute is enough.
const DefaultCheckInterval = time.Minute

// ErrImmediateNotSchedulable is returned by Arm for the immediate strategy,
// which callers must execute themselves.
var ErrImmediateNotSchedulable = errors.New("immediate strategy is executed synchronously, not scheduled")

// State is the scheduler state.
type State string

const (
	// StateDisarmed means no firing is scheduled.
	StateDisarmed State = "disarmed"
	// StateArmedDaily fires every day at the cleanup time.
	StateArmedDaily State = "armed_daily"
	// StateArmedWeekly fires every Monday at the cleanup time.
	StateArmedWeekly State = "armed_weekly"
)

// Truncator empties the log.
type Truncator interface {
	Truncate() error
}

// Snapshot describes the current schedule.
type Snapshot struct {
	State       State
	Strategy    settings.Strategy
	CleanupTime string
	NextRun     time.Time // zero when disarmed
}

// Scheduler owns at most one scheduled firing. Arm replaces it wholesale.
type Scheduler struct {
	log      Truncator
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	state  State
	policy settings.Policy
	at     settings.ClockTime
	next   time.Time
}

// NewScheduler creates a disarmed scheduler that truncates log when due.
func NewScheduler(log Truncator, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Scheduler{
		log:      log,
		interval: interval,
		now:      time.Now,
		state:    StateDisarmed,
		policy:   settings.Policy{Strategy: settings.StrategyNever, CleanupTime: settings.DefaultCleanupTime},
	}
}

// Arm clears any scheduled firing and schedules the next one for policy.
func (s *Scheduler) Arm(policy settings.Policy) error {
	var state State
	switch policy.Strategy {
	case settings.StrategyNever:
		state = StateDisarmed
	case settings.StrategyDaily:
		state = StateArmedDaily
	case settings.StrategyWeekly:
		state = StateArmedWeekly
	case settings.StrategyImmediate:
		return ErrImmediateNotSchedulable
	default:
		return fmt.Errorf("%w: %q", settings.ErrInvalidStrategy, policy.Strategy)
	}

	var at settings.ClockTime
	if state != StateDisarmed {
		var err error
		at, err = settings.ParseCleanupTime(policy.CleanupTime)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	s.policy = policy
	s.at = at
	s.next = time.Time{}
	if state != StateDisarmed {
		s.next = nextOccurrence(state, at, s.now())
	}

	switch state {
	case StateDisarmed:
		slog.Info("Log cleanup disabled")
	case StateArmedDaily:
		slog.Info("Log cleanup scheduled daily", "cleanup_time", at.String(), "next_run", s.next)
	case StateArmedWeekly:
		slog.Info("Log cleanup scheduled every Monday", "cleanup_time", at.String(), "next_run", s.next)
	}
	return nil
}

// Snapshot returns the current schedule.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:       s.state,
		Strategy:    s.policy.Strategy,
		CleanupTime: s.policy.CleanupTime,
		NextRun:     s.next,
	}
}

// Tick fires the scheduled truncation if it is due at now and reports
// whether it fired. The next occurrence is computed from now, so a process
// that slept through several occurrences fires once, not once per miss.
func (s *Scheduler) Tick(now time.Time) bool {
	s.mu.Lock()
	if s.state == StateDisarmed || now.Before(s.next) {
		s.mu.Unlock()
		return false
	}
	due := s.next
	s.next = nextOccurrence(s.state, s.at, now)
	next := s.next
	s.mu.Unlock()

	slog.Info("Running scheduled log cleanup", "due", due, "next_run", next)
	if err := s.log.Truncate(); err != nil {
		slog.Error("Scheduled log cleanup failed", "error", err)
	}
	return true
}

// Run checks for due firings until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	slog.Info("Retention scheduler started", "interval", s.interval)

	for {
		select {
		case <-ticker.C:
			s.Tick(s.now())
		case <-ctx.Done():
			slog.Info("Retention scheduler shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

// nextOccurrence returns the first firing strictly after now.
func nextOccurrence(state State, at settings.ClockTime, now time.Time) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, now.Location())

	switch state {
	case StateArmedDaily:
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
	case StateArmedWeekly:
		days := (int(time.Monday) - int(candidate.Weekday()) + 7) % 7
		candidate = candidate.AddDate(0, 0, days)
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 7)
		}
	default:
		return time.Time{}
	}
	return candidate
}
