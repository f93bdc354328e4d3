// Package settings persists the small JSON document holding runtime settings
// such as the chat log retention policy.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Strategy selects when the chat log is truncated.
type Strategy string

const (
	// StrategyNever disables automatic truncation.
	StrategyNever Strategy = "never"
	// StrategyDaily truncates once a day at the cleanup time.
	StrategyDaily Strategy = "daily"
	// StrategyWeekly truncates every Monday at the cleanup time.
	StrategyWeekly Strategy = "weekly"
	// StrategyImmediate truncates once, right away. It is never persisted.
	StrategyImmediate Strategy = "immediate"
)

// DefaultCleanupTime is used when no cleanup time has been configured.
const DefaultCleanupTime = "02:00"

const logCleanupKey = "logCleanup"

var (
	// ErrInvalidStrategy is returned for strategies outside the known set.
	ErrInvalidStrategy = errors.New("invalid cleanup strategy")
	// ErrInvalidCleanupTime is returned for times not in HH:MM form.
	ErrInvalidCleanupTime = errors.New("invalid cleanup time")
	// ErrImmediateNotPersistable is returned when saving an immediate policy.
	ErrImmediateNotPersistable = errors.New("immediate strategy cannot be persisted")
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyNever, StrategyDaily, StrategyWeekly, StrategyImmediate:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
	}
}

// ClockTime is a wall-clock time of day with minute resolution.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseCleanupTime parses a 24h "HH:MM" value. Single-digit hours are accepted.
func ParseCleanupTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidCleanupTime, s)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String formats the time as zero-padded HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Policy is the log retention policy.
type Policy struct {
	Strategy    Strategy `json:"strategy"`
	CleanupTime string   `json:"cleanupTime"`
}

// Settings is the full settings document.
type Settings struct {
	LogCleanup Policy

	// extra keeps top-level keys this version does not know about so
	// that saving does not drop them.
	extra map[string]json.RawMessage
	// invalid records a persisted value that was replaced by its default.
	invalid error
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		LogCleanup: Policy{
			Strategy:    StrategyNever,
			CleanupTime: DefaultCleanupTime,
		},
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Default()
	if v, ok := raw[logCleanupKey]; ok {
		var p Policy
		if err := json.Unmarshal(v, &p); err != nil {
			return fmt.Errorf("decoding %s: %w", logCleanupKey, err)
		}
		s.LogCleanup, s.invalid = normalize(p)
		delete(raw, logCleanupKey)
	}
	if len(raw) > 0 {
		s.extra = raw
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Settings) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.extra)+1)
	for k, v := range s.extra {
		out[k] = v
	}
	out[logCleanupKey] = s.LogCleanup
	return json.Marshal(out)
}

// normalize fills blanks from defaults and replaces an unparsable cleanup
// time with the default, returning the parse error. A persisted immediate
// strategy can only come from a hand-edited file and is read back as never.
func normalize(p Policy) (Policy, error) {
	st, err := ParseStrategy(string(p.Strategy))
	if err != nil || st == StrategyImmediate || p.Strategy == "" {
		st = StrategyNever
	}
	p.Strategy = st
	if strings.TrimSpace(p.CleanupTime) == "" {
		p.CleanupTime = DefaultCleanupTime
		return p, nil
	}
	ct, err := ParseCleanupTime(p.CleanupTime)
	if err != nil {
		p.CleanupTime = DefaultCleanupTime
		return p, err
	}
	p.CleanupTime = ct.String()
	return p, nil
}

// LoadResult is the outcome of Store.Load. Settings is always usable; Cause
// is set when the defaults were substituted for the whole file or for an
// invalid value in it.
type LoadResult struct {
	Settings Settings
	Cause    error
}

// Degraded reports whether any part of Settings is a default standing in for
// a failed read or an invalid value.
func (r LoadResult) Degraded() bool {
	return r.Cause != nil
}

// Store reads and writes the settings file.
type Store struct {
	path string
}

// NewStore creates a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file. It never fails: on any error the defaults
// are returned along with the cause.
func (s *Store) Load() LoadResult {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Settings file not found, using defaults", "path", s.path)
		} else {
			slog.Warn("Failed to read settings, using defaults", "path", s.path, "error", err)
		}
		return LoadResult{Settings: Default(), Cause: err}
	}

	var out Settings
	if err := json.Unmarshal(data, &out); err != nil {
		slog.Warn("Failed to parse settings, using defaults", "path", s.path, "error", err)
		return LoadResult{Settings: Default(), Cause: fmt.Errorf("parsing %s: %w", s.path, err)}
	}
	if out.invalid != nil {
		slog.Warn("Invalid value in settings, using default", "path", s.path, "error", out.invalid)
		return LoadResult{Settings: out, Cause: out.invalid}
	}
	return LoadResult{Settings: out}
}

// Save writes the settings file by renaming a temporary file over it.
func (s *Store) Save(st Settings) error {
	if st.LogCleanup.Strategy == StrategyImmediate {
		return ErrImmediateNotPersistable
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(s.path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			slog.Debug("Failed to remove temp settings file", "path", tmp, "error", rmErr)
		}
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}
