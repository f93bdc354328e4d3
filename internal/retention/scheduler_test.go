package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pdsa-team/pdsa-backend/internal/settings"
)

type fakeLog struct {
	mu        sync.Mutex
	truncates int
	err       error
}

func (f *fakeLog) Truncate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.truncates++
	return f.err
}

func (f *fakeLog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.truncates
}

// 2024-01-03 is a Wednesday.
var wednesday = time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)

func newTestScheduler(log Truncator, now time.Time) *Scheduler {
	s := NewScheduler(log, time.Minute)
	s.now = func() time.Time { return now }
	return s
}

func TestNextOccurrence(t *testing.T) {
	t.Parallel()

	at := settings.ClockTime{Hour: 2, Minute: 0}
	cases := []struct {
		name  string
		state State
		at    settings.ClockTime
		now   time.Time
		want  time.Time
	}{
		{"daily later today", StateArmedDaily, settings.ClockTime{Hour: 23, Minute: 30}, wednesday, time.Date(2024, 1, 3, 23, 30, 0, 0, time.UTC)},
		{"daily already passed", StateArmedDaily, at, wednesday, time.Date(2024, 1, 4, 2, 0, 0, 0, time.UTC)},
		{"daily exactly now", StateArmedDaily, settings.ClockTime{Hour: 10}, wednesday, time.Date(2024, 1, 4, 10, 0, 0, 0, time.UTC)},
		{"weekly from wednesday", StateArmedWeekly, at, wednesday, time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC)},
		{"weekly monday before time", StateArmedWeekly, at, time.Date(2024, 1, 8, 1, 0, 0, 0, time.UTC), time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC)},
		{"weekly monday after time", StateArmedWeekly, at, time.Date(2024, 1, 8, 3, 0, 0, 0, time.UTC), time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)},
		{"weekly from sunday", StateArmedWeekly, at, time.Date(2024, 1, 7, 23, 0, 0, 0, time.UTC), time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC)},
		{"disarmed", StateDisarmed, at, wednesday, time.Time{}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := nextOccurrence(tc.state, tc.at, tc.now)
			if !got.Equal(tc.want) {
				t.Fatalf("nextOccurrence = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestArmDailyFiresOncePerDay(t *testing.T) {
	t.Parallel()

	log := &fakeLog{}
	s := newTestScheduler(log, wednesday)
	if err := s.Arm(settings.Policy{Strategy: settings.StrategyDaily, CleanupTime: "03:30"}); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	snap := s.Snapshot()
	if snap.State != StateArmedDaily {
		t.Fatalf("State = %s, want %s", snap.State, StateArmedDaily)
	}
	wantNext := time.Date(2024, 1, 4, 3, 30, 0, 0, time.UTC)
	if !snap.NextRun.Equal(wantNext) {
		t.Fatalf("NextRun = %v, want %v", snap.NextRun, wantNext)
	}

	if s.Tick(wantNext.Add(-time.Minute)) {
		t.Fatal("fired before due time")
	}
	if !s.Tick(wantNext) {
		t.Fatal("did not fire at due time")
	}
	if s.Tick(wantNext.Add(time.Minute)) {
		t.Fatal("fired twice for the same occurrence")
	}
	if log.count() != 1 {
		t.Fatalf("truncates = %d, want 1", log.count())
	}
	if got := s.Snapshot().NextRun; !got.Equal(wantNext.AddDate(0, 0, 1)) {
		t.Fatalf("rescheduled to %v, want next day", got)
	}
}

func TestTickAfterLongSleepFiresOnce(t *testing.T) {
	t.Parallel()

	log := &fakeLog{}
	s := newTestScheduler(log, wednesday)
	if err := s.Arm(settings.Policy{Strategy: settings.StrategyDaily, CleanupTime: "02:00"}); err != nil {
		t.Fatal(err)
	}

	late := wednesday.AddDate(0, 0, 5)
	if !s.Tick(late) {
		t.Fatal("expected overdue firing")
	}
	if s.Tick(late.Add(time.Minute)) {
		t.Fatal("missed occurrences must not be replayed")
	}
	if log.count() != 1 {
		t.Fatalf("truncates = %d, want 1", log.count())
	}
}

func TestArmReplacesPreviousSchedule(t *testing.T) {
	t.Parallel()

	log := &fakeLog{}
	s := newTestScheduler(log, wednesday)
	if err := s.Arm(settings.Policy{Strategy: settings.StrategyDaily, CleanupTime: "11:00"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Arm(settings.Policy{Strategy: settings.StrategyWeekly, CleanupTime: "11:00"}); err != nil {
		t.Fatal(err)
	}

	// The daily 11:00 firing was replaced and must not happen.
	if s.Tick(time.Date(2024, 1, 3, 11, 0, 0, 0, time.UTC)) {
		t.Fatal("stale daily schedule fired after re-arm")
	}
	if !s.Tick(time.Date(2024, 1, 8, 11, 0, 0, 0, time.UTC)) {
		t.Fatal("weekly schedule did not fire on Monday")
	}

	if err := s.Arm(settings.Policy{Strategy: settings.StrategyNever, CleanupTime: "11:00"}); err != nil {
		t.Fatal(err)
	}
	if s.Snapshot().State != StateDisarmed || !s.Snapshot().NextRun.IsZero() {
		t.Fatalf("expected disarmed, got %+v", s.Snapshot())
	}
	if s.Tick(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("disarmed scheduler fired")
	}
	if log.count() != 1 {
		t.Fatalf("truncates = %d, want 1", log.count())
	}
}

func TestArmRejectsImmediateAndBadInput(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(&fakeLog{}, wednesday)
	if err := s.Arm(settings.Policy{Strategy: settings.StrategyImmediate}); !errors.Is(err, ErrImmediateNotSchedulable) {
		t.Fatalf("Arm(immediate) = %v", err)
	}
	if err := s.Arm(settings.Policy{Strategy: "hourly"}); !errors.Is(err, settings.ErrInvalidStrategy) {
		t.Fatalf("Arm(hourly) = %v", err)
	}
	if err := s.Arm(settings.Policy{Strategy: settings.StrategyDaily, CleanupTime: "25:00"}); !errors.Is(err, settings.ErrInvalidCleanupTime) {
		t.Fatalf("Arm(bad time) = %v", err)
	}
	if s.Snapshot().State != StateDisarmed {
		t.Fatal("rejected Arm must not change state")
	}
}

func TestTruncateFailureKeepsSchedule(t *testing.T) {
	t.Parallel()

	log := &fakeLog{err: errors.New("disk full")}
	s := newTestScheduler(log, wednesday)
	if err := s.Arm(settings.Policy{Strategy: settings.StrategyDaily, CleanupTime: "12:00"}); err != nil {
		t.Fatal(err)
	}
	if !s.Tick(time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)) {
		t.Fatal("expected firing")
	}
	if s.Snapshot().State != StateArmedDaily {
		t.Fatal("failed truncate must not disarm")
	}
	if !s.Tick(time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC)) {
		t.Fatal("expected next day's firing")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	log := &fakeLog{}
	s := NewScheduler(log, 5*time.Millisecond)
	s.now = func() time.Time { return wednesday }
	if err := s.Arm(settings.Policy{Strategy: settings.StrategyDaily, CleanupTime: "09:00"}); err != nil {
		t.Fatal(err)
	}
	// Move the clock past the due time; the loop must pick it up.
	s.mu.Lock()
	s.now = func() time.Time { return wednesday.AddDate(0, 0, 1) }
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for log.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if log.count() != 1 {
		t.Fatalf("truncates = %d, want 1", log.count())
	}
}
