package docgen

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

const (
	// FallbackBaseName replaces base names that sanitise to nothing.
	FallbackBaseName = "document"

	// Extension is appended to every generated document.
	Extension = ".md"

	stampLayout = "20060102_150405"

	// maxProbe bounds the counter search; reaching it means the directory
	// is misbehaving rather than crowded.
	maxProbe = 100000
)

// unsafeChars matches anything but ASCII letters, digits, '_', '-' and
// CJK unified ideographs.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\x{4e00}-\x{9fa5}_-]`)

// ErrNoFreeName is returned when no free name was found within the probe limit.
var ErrNoFreeName = errors.New("no free document name")

// Sanitize strips characters that are unsafe in file names.
func Sanitize(raw string) string {
	if s := unsafeChars.ReplaceAllString(raw, ""); s != "" {
		return s
	}
	return FallbackBaseName
}

// Allocator produces unique timestamped document names.
type Allocator struct {
	now func() time.Time
}

// NewAllocator creates an allocator using the wall clock.
func NewAllocator() *Allocator {
	return &Allocator{now: time.Now}
}

func candidate(base, stamp string, n int) string {
	if n == 0 {
		return base + "_" + stamp + Extension
	}
	return fmt.Sprintf("%s_%s_%d%s", base, stamp, n, Extension)
}

// Allocate returns the first name in the sequence base_ts.md, base_ts_1.md,
// base_ts_2.md ... that does not exist in dir. The name is only free at the
// time of the check; use Create when another writer may race for it.
func (a *Allocator) Allocate(raw, dir string) (string, error) {
	base := Sanitize(raw)
	stamp := a.now().Format(stampLayout)

	for n := 0; n < maxProbe; n++ {
		name := candidate(base, stamp, n)
		_, err := os.Stat(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			return name, nil
		}
		if err != nil {
			return "", fmt.Errorf("probing %s: %w", name, err)
		}
	}
	return "", ErrNoFreeName
}

// Create walks the same name sequence as Allocate but claims each candidate
// with an exclusive create, so concurrent callers never receive the same
// name. The caller owns the returned file.
func (a *Allocator) Create(raw, dir string) (*os.File, string, error) {
	base := Sanitize(raw)
	stamp := a.now().Format(stampLayout)

	for n := 0; n < maxProbe; n++ {
		name := candidate(base, stamp, n)
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("creating %s: %w", name, err)
		}
	}
	return nil, "", ErrNoFreeName
}
