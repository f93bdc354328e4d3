// Package chatlog maintains the append-only plain-text chat log and the
// summary statistics shown on the settings page.
package chatlog

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// Delimiter is the line closing every entry. Entries are counted by it.
	Delimiter = "---"

	// ErrorPrefix marks entries recording a failure.
	ErrorPrefix = "[ERROR] "

	// TimeLayout is used for entry timestamps and LastUpdate.
	TimeLayout = "2006-01-02 15:04:05"

	// NoUpdate is reported as LastUpdate when the log file does not exist.
	NoUpdate = "-"
)

var delimiterLine = []byte("\n" + Delimiter + "\n")

// Stats summarises the log file.
type Stats struct {
	Path       string
	Count      int
	SizeBytes  int64
	SizeHuman  string
	LastUpdate string
}

// Log is the chat log file. All writes go through one mutex so entries from
// concurrent requests never interleave.
type Log struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// New creates a Log writing to path.
func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Append records one chat turn. Failures are logged and returned; callers
// answering a user request should not fail because of them.
func (l *Log) Append(userMsg, reply, prefix string) error {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString("[")
	b.WriteString(l.now().Format(TimeLayout))
	b.WriteString("]\n用户: ")
	b.WriteString(escapeDelimiter(userMsg))
	b.WriteString("\nAI: ")
	b.WriteString(escapeDelimiter(reply))
	b.WriteString("\n" + Delimiter + "\n\n")
	return l.write(b.String())
}

// AppendEvent records a single-line operational event such as a completed
// document generation. It counts as one entry.
func (l *Log) AppendEvent(message string) error {
	entry := fmt.Sprintf("[%s] %s\n%s\n\n", l.now().Format(TimeLayout), escapeDelimiter(message), Delimiter)
	return l.write(entry)
}

func (l *Log) write(entry string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		slog.Warn("Failed to create chat log dir", "path", l.path, "error", err)
		return fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Warn("Failed to open chat log", "path", l.path, "error", err)
		return fmt.Errorf("opening log: %w", err)
	}
	_, werr := f.WriteString(entry)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		slog.Warn("Failed to append chat log entry", "path", l.path, "error", err)
		return fmt.Errorf("appending log entry: %w", err)
	}
	return nil
}

// Truncate empties the log file, creating it if needed.
func (l *Log) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.WriteFile(l.path, nil, 0o644); err != nil {
		slog.Error("Failed to truncate chat log", "path", l.path, "error", err)
		return fmt.Errorf("truncating log: %w", err)
	}
	slog.Info("Chat log truncated", "path", l.path)
	return nil
}

// Stats reports entry count, size and modification time. A missing or
// unreadable file yields zero values rather than an error.
func (l *Log) Stats() Stats {
	empty := Stats{Path: l.path, SizeHuman: humanize.IBytes(0), LastUpdate: NoUpdate}

	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := os.Stat(l.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to stat chat log", "path", l.path, "error", err)
		}
		return empty
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		slog.Warn("Failed to read chat log", "path", l.path, "error", err)
		return empty
	}

	return Stats{
		Path:       l.path,
		Count:      countEntries(data),
		SizeBytes:  info.Size(),
		SizeHuman:  humanize.IBytes(uint64(info.Size())),
		LastUpdate: info.ModTime().Format(TimeLayout),
	}
}

// countEntries counts delimiter lines. Every entry ends with "\n---\n", so the
// leading newline is always present.
func countEntries(data []byte) int {
	return bytes.Count(data, delimiterLine)
}

// escapeDelimiter keeps message text from forging an entry boundary.
func escapeDelimiter(s string) string {
	if !strings.Contains(s, Delimiter) {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.TrimRight(line, "\r") == Delimiter {
			lines[i] = `\` + line
		}
	}
	return strings.Join(lines, "\n")
}
