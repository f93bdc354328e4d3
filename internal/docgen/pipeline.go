// Package docgen turns web pages and pasted text into Markdown documents
// stored under collision-free names.
package docgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// CreateTimeLayout formats Result.CreateTime.
const CreateTimeLayout = "2006-01-02 15:04:05"

// contentNameRunes is how much of the first content line names a document.
const contentNameRunes = 30

const promptTemplate = `请帮我将以下内容整理为标准的Markdown格式文档:

%s

要求:
1. 提取核心内容,去除广告和无关信息
2. 使用标准Markdown语法格式化
3. 保持内容层级结构清晰
4. 包含标题、段落、列表等元素
5. 直接输出Markdown内容,不需要额外说明
`

// ErrMissingSource is returned when neither a URL nor content was supplied.
var ErrMissingSource = errors.New("url or content is required")

// FetchError wraps a failed page fetch.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("FetchFailed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// GenerationError wraps a failed or empty document generation.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("GenerationFailed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Fetcher retrieves the text of a web page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Generator turns a prompt into Markdown.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// EventLog records completed generations.
type EventLog interface {
	AppendEvent(message string) error
}

// Request is a document generation request.
type Request struct {
	URL      string
	Content  string
	FileName string
}

// Result describes a stored document.
type Result struct {
	FileName   string
	FilePath   string
	Markdown   string
	CreateTime string
}

// Pipeline fetches, generates, names and stores documents.
type Pipeline struct {
	fetcher   Fetcher
	generator Generator
	log       EventLog
	alloc     *Allocator
	dir       string
	urlPrefix string
	timeout   time.Duration
	now       func() time.Time
}

// Config holds pipeline settings.
type Config struct {
	// Dir is where documents are written.
	Dir string
	// PathPrefix is prepended to file names in Result.FilePath.
	PathPrefix string
	// Timeout bounds the generation call. Zero means no extra bound.
	Timeout time.Duration
}

// NewPipeline creates a pipeline and makes sure the document directory exists.
func NewPipeline(cfg Config, fetcher Fetcher, generator Generator, log EventLog) (*Pipeline, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating docs dir: %w", err)
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "docs"
	}
	return &Pipeline{
		fetcher:   fetcher,
		generator: generator,
		log:       log,
		alloc:     NewAllocator(),
		dir:       cfg.Dir,
		urlPrefix: cfg.PathPrefix,
		timeout:   cfg.Timeout,
		now:       time.Now,
	}, nil
}

// BuildPrompt wraps text in the document formatting instructions.
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}

// Generate runs the full pipeline for req.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	rawURL := strings.TrimSpace(req.URL)
	content := strings.TrimSpace(req.Content)
	fileName := strings.TrimSpace(req.FileName)

	if rawURL == "" && content == "" {
		return nil, ErrMissingSource
	}

	if rawURL != "" {
		text, err := p.fetcher.Fetch(ctx, rawURL)
		if err != nil {
			slog.Warn("Page fetch failed", "url", rawURL, "error", err)
			return nil, &FetchError{URL: rawURL, Err: err}
		}
		content = text
	}

	prompt := BuildPrompt(content)
	slog.Debug("Generating document", "prompt_length", len(prompt))

	genCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	markdown, err := p.generator.Generate(genCtx, prompt)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, &GenerationError{Err: errors.New("application returned empty output")}
	}

	if fileName == "" {
		fileName = DeriveBaseName(rawURL, content)
	}

	f, name, err := p.alloc.Create(fileName, p.dir)
	if err != nil {
		return nil, fmt.Errorf("allocating document name: %w", err)
	}
	if err := writeDocument(f, filepath.Join(p.dir, name), markdown); err != nil {
		return nil, fmt.Errorf("writing document %s: %w", name, err)
	}
	slog.Info("Document saved", "file", name, "bytes", len(markdown))

	createTime := p.now().Format(CreateTimeLayout)
	if err := p.log.AppendEvent("文档生成成功: " + name); err != nil {
		slog.Warn("failed to record document generation", "file", name, "error", err)
	}

	return &Result{
		FileName:   name,
		FilePath:   path.Join(p.urlPrefix, name),
		Markdown:   markdown,
		CreateTime: createTime,
	}, nil
}

// DeriveBaseName picks a base name when none was given: the last path
// segment of the URL, else the start of the content's first line, else the
// fallback name.
func DeriveBaseName(rawURL, content string) string {
	if rawURL != "" {
		trimmed := rawURL
		if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
			trimmed = trimmed[:i]
		}
		trimmed = strings.TrimRight(trimmed, "/")
		if segment := trimmed[strings.LastIndex(trimmed, "/")+1:]; segment != "" {
			return segment
		}
		return FallbackBaseName
	}

	first, _, _ := strings.Cut(content, "\n")
	if first = truncateRunes(first, contentNameRunes); first != "" {
		return first
	}
	return FallbackBaseName
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// writeDocument writes markdown to w and closes it. On failure the file
// behind w is removed so no partial document stays in the library.
func writeDocument(w io.WriteCloser, file, markdown string) error {
	_, werr := io.WriteString(w, markdown)
	if err := errors.Join(werr, w.Close()); err != nil {
		if rmErr := os.Remove(file); rmErr != nil {
			slog.Warn("Failed to remove partial document", "path", file, "error", rmErr)
		}
		return err
	}
	return nil
}
