package retention

import (
	"fmt"
	"log/slog"

	"github.com/pdsa-team/pdsa-backend/internal/settings"
)

// UpdateResult describes what an accepted policy change did.
type UpdateResult struct {
	Requested settings.Policy
	Persisted settings.Policy
	Truncated bool
}

// Controller applies retention policy changes: it persists the policy and
// re-arms the scheduler, or runs an immediate cleanup.
type Controller struct {
	store     *settings.Store
	log       Truncator
	scheduler *Scheduler
}

// NewController wires a settings store, the log and a scheduler together.
func NewController(store *settings.Store, log Truncator, scheduler *Scheduler) *Controller {
	return &Controller{store: store, log: log, scheduler: scheduler}
}

// Current re-reads the persisted settings.
func (c *Controller) Current() settings.Settings {
	return c.store.Load().Settings
}

// Schedule returns the scheduler's view of the active policy.
func (c *Controller) Schedule() Snapshot {
	return c.scheduler.Snapshot()
}

// Start arms the scheduler from the persisted policy. A policy the
// scheduler rejects is logged and replaced by never, so a bad settings file
// does not stop the server.
func (c *Controller) Start() error {
	res := c.store.Load()
	if res.Degraded() {
		slog.Info("Using default retention policy", "path", c.store.Path(), "cause", res.Cause)
	}
	if err := c.scheduler.Arm(res.Settings.LogCleanup); err != nil {
		slog.Error("Failed to arm log cleanup, disabling it", "policy", res.Settings.LogCleanup, "error", err)
		return c.scheduler.Arm(settings.Policy{Strategy: settings.StrategyNever, CleanupTime: settings.DefaultCleanupTime})
	}
	return nil
}

// Update validates and applies a requested policy. An empty cleanup time
// means the default. The immediate strategy persists never in its place and
// then truncates the log, so a failed save leaves the log untouched.
func (c *Controller) Update(strategy, cleanupTime string) (UpdateResult, error) {
	st, err := settings.ParseStrategy(strategy)
	if err != nil {
		return UpdateResult{}, err
	}
	if cleanupTime == "" {
		cleanupTime = settings.DefaultCleanupTime
	}
	ct, err := settings.ParseCleanupTime(cleanupTime)
	if err != nil {
		return UpdateResult{}, err
	}

	requested := settings.Policy{Strategy: st, CleanupTime: ct.String()}
	persisted := requested
	truncated := false

	if st == settings.StrategyImmediate {
		persisted.Strategy = settings.StrategyNever
	}

	current := c.store.Load().Settings
	current.LogCleanup = persisted
	if err := c.store.Save(current); err != nil {
		return UpdateResult{}, fmt.Errorf("saving settings: %w", err)
	}

	if st == settings.StrategyImmediate {
		if err := c.log.Truncate(); err != nil {
			slog.Warn("Immediate log cleanup failed", "error", err)
		} else {
			truncated = true
		}
	}

	if err := c.scheduler.Arm(persisted); err != nil {
		return UpdateResult{}, fmt.Errorf("arming scheduler: %w", err)
	}

	return UpdateResult{Requested: requested, Persisted: persisted, Truncated: truncated}, nil
}
