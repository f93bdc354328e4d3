package retention

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdsa-team/pdsa-backend/internal/chatlog"
	"github.com/pdsa-team/pdsa-backend/internal/settings"
)

func newTestController(t *testing.T) (*Controller, *chatlog.Log, *Scheduler) {
	t.Helper()
	dir := t.TempDir()
	log := chatlog.New(filepath.Join(dir, "chat_logs.txt"))
	sched := newTestScheduler(log, wednesday)
	store := settings.NewStore(filepath.Join(dir, "settings.json"))
	return NewController(store, log, sched), log, sched
}

func TestUpdateDailyPersistsAndArms(t *testing.T) {
	t.Parallel()

	c, _, sched := newTestController(t)
	res, err := c.Update("daily", "3:30")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Requested.CleanupTime != "03:30" || res.Persisted.Strategy != settings.StrategyDaily {
		t.Fatalf("unexpected result %+v", res)
	}

	got := c.Current().LogCleanup
	if got.Strategy != settings.StrategyDaily || got.CleanupTime != "03:30" {
		t.Fatalf("persisted %+v", got)
	}
	if sched.Snapshot().State != StateArmedDaily {
		t.Fatalf("scheduler state %s", sched.Snapshot().State)
	}
}

func TestUpdateImmediateTruncatesAndPersistsNever(t *testing.T) {
	t.Parallel()

	c, log, sched := newTestController(t)
	if _, err := c.Update("weekly", "02:00"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := log.Append("q", "a", ""); err != nil {
			t.Fatal(err)
		}
	}

	res, err := c.Update("immediate", "")
	if err != nil {
		t.Fatalf("Update(immediate): %v", err)
	}
	if !res.Truncated {
		t.Error("expected Truncated")
	}
	if res.Requested.Strategy != settings.StrategyImmediate || res.Persisted.Strategy != settings.StrategyNever {
		t.Fatalf("unexpected result %+v", res)
	}
	if st := log.Stats(); st.Count != 0 || st.SizeBytes != 0 {
		t.Fatalf("log not truncated: %+v", st)
	}
	if got := c.Current().LogCleanup.Strategy; got != settings.StrategyNever {
		t.Fatalf("persisted strategy %q, want never", got)
	}
	if sched.Snapshot().State != StateDisarmed {
		t.Fatalf("immediate must leave scheduler disarmed, got %s", sched.Snapshot().State)
	}
}

func TestUpdateRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestController(t)
	if _, err := c.Update("monthly", "02:00"); !errors.Is(err, settings.ErrInvalidStrategy) {
		t.Fatalf("Update(monthly) = %v", err)
	}
	if _, err := c.Update("daily", "7pm"); !errors.Is(err, settings.ErrInvalidCleanupTime) {
		t.Fatalf("Update(bad time) = %v", err)
	}
	if got := c.Current().LogCleanup; got != settings.Default().LogCleanup {
		t.Fatalf("rejected update changed settings: %+v", got)
	}
}

func TestStartArmsFromPersistedPolicy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := settings.NewStore(filepath.Join(dir, "settings.json"))
	if err := store.Save(settings.Settings{LogCleanup: settings.Policy{Strategy: settings.StrategyWeekly, CleanupTime: "04:00"}}); err != nil {
		t.Fatal(err)
	}
	log := chatlog.New(filepath.Join(dir, "chat_logs.txt"))
	sched := newTestScheduler(log, wednesday)

	if err := NewController(store, log, sched).Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sched.Snapshot().State != StateArmedWeekly {
		t.Fatalf("state = %s, want %s", sched.Snapshot().State, StateArmedWeekly)
	}
}

func TestStartRecoversFromUnparsableCleanupTime(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	doc := `{"logCleanup":{"strategy":"daily","cleanupTime":"2:00 AM"}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	log := chatlog.New(filepath.Join(dir, "chat_logs.txt"))
	sched := newTestScheduler(log, wednesday)
	c := NewController(settings.NewStore(path), log, sched)

	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := sched.Snapshot()
	if snap.State != StateArmedDaily || snap.CleanupTime != settings.DefaultCleanupTime {
		t.Fatalf("snapshot = %+v, want daily at %s", snap, settings.DefaultCleanupTime)
	}
	if got := c.Current().LogCleanup.CleanupTime; got != settings.DefaultCleanupTime {
		t.Fatalf("Current cleanup time = %q, want %q", got, settings.DefaultCleanupTime)
	}
}

func TestUpdateImmediateKeepsLogWhenSaveFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	// A directory in place of the file makes the rename fail.
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
	log := chatlog.New(filepath.Join(dir, "chat_logs.txt"))
	if err := log.Append("q", "a", ""); err != nil {
		t.Fatal(err)
	}
	c := NewController(settings.NewStore(path), log, newTestScheduler(log, wednesday))

	if _, err := c.Update("immediate", ""); err == nil {
		t.Fatal("expected save error")
	}
	if st := log.Stats(); st.Count != 1 {
		t.Fatalf("log count = %d after failed save, want 1", st.Count)
	}
}
