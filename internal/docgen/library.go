package docgen

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	// ErrInvalidName is returned for names that are not a plain Markdown file name.
	ErrInvalidName = errors.New("invalid document name")
	// ErrNotFound is returned when the document does not exist.
	ErrNotFound = errors.New("document not found")
)

// Document describes a stored document.
type Document struct {
	Name      string    `json:"name"`
	FilePath  string    `json:"filePath"`
	Size      int64     `json:"size"`
	SizeHuman string    `json:"sizeHuman"`
	Modified  time.Time `json:"modified"`
}

// Library lists and renders generated documents.
type Library struct {
	dir        string
	pathPrefix string
	md         goldmark.Markdown
	policy     *bluemonday.Policy
}

// NewLibrary creates a library over dir. pathPrefix is used for
// Document.FilePath and defaults to "docs".
func NewLibrary(dir, pathPrefix string) *Library {
	if pathPrefix == "" {
		pathPrefix = "docs"
	}
	return &Library{
		dir:        dir,
		pathPrefix: pathPrefix,
		md:         goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:     bluemonday.UGCPolicy(),
	}
}

// List returns the Markdown documents in the library, newest first.
// A missing directory yields an empty list.
func (l *Library) List() ([]Document, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading docs dir: %w", err)
	}

	docs := make([]Document, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		docs = append(docs, Document{
			Name:      e.Name(),
			FilePath:  path.Join(l.pathPrefix, e.Name()),
			Size:      info.Size(),
			SizeHuman: humanize.IBytes(uint64(info.Size())),
			Modified:  info.ModTime(),
		})
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Modified.Equal(docs[j].Modified) {
			return docs[i].Name > docs[j].Name
		}
		return docs[i].Modified.After(docs[j].Modified)
	})
	return docs, nil
}

// Render converts the named document to sanitised HTML.
func (l *Library) Render(name string) ([]byte, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}

	content, err := os.ReadFile(filepath.Join(l.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := l.md.Convert(content, &buf); err != nil {
		return nil, fmt.Errorf("converting %s: %w", name, err)
	}
	return l.policy.SanitizeBytes(buf.Bytes()), nil
}

func validName(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.HasSuffix(name, Extension) && len(name) > len(Extension)
}
