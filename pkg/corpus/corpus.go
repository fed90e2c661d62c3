// Package corpus turns input paths and URLs into splits of text lines for
// the map phase. A line is never divided between splits.
package corpus

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dtnitsch/bigram-stripes/internal/common"
	"github.com/dtnitsch/bigram-stripes/pkg/caching"
	"github.com/dtnitsch/bigram-stripes/pkg/fetcher"
)

// DefaultSplitLines is the number of lines per split when none is configured.
const DefaultSplitLines = 10000

// Line is one line of input and the byte offset where it starts in its source.
type Line struct {
	Offset int64
	Text   string
}

// Split is the unit of work handed to one map task.
type Split struct {
	Source string
	Index  int
	Lines  []Line
}

// Loader discovers inputs and cuts them into splits.
type Loader struct {
	SplitLines int
	Fetcher    *fetcher.Fetcher
	Cache      *caching.Cache // optional
	Logger     *slog.Logger
}

// NewLoader returns a Loader with a default fetcher and no cache.
func NewLoader(splitLines int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		SplitLines: splitLines,
		Fetcher:    fetcher.NewFetcher(),
		Logger:     logger,
	}
}

// Load reads every input and returns its lines cut into splits, in input
// order. Directories are walked recursively; entries whose name starts with
// "_" or "." are skipped.
func (l *Loader) Load(ctx context.Context, inputs []string) ([]Split, error) {
	splitLines := l.SplitLines
	if splitLines <= 0 {
		splitLines = DefaultSplitLines
	}

	var splits []Split
	for _, input := range inputs {
		sources, err := l.expand(input)
		if err != nil {
			return nil, err
		}
		for _, source := range sources {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			lines, err := l.readSource(ctx, source)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", source, err)
			}
			l.Logger.Debug("Loaded input", "source", source, "lines", len(lines))

			for start := 0; start < len(lines); start += splitLines {
				end := min(start+splitLines, len(lines))
				splits = append(splits, Split{
					Source: source,
					Index:  len(splits),
					Lines:  lines[start:end],
				})
			}
		}
	}
	return splits, nil
}

func (l *Loader) expand(input string) ([]string, error) {
	if common.IsURL(input) {
		return []string{input}, nil
	}

	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("input %s: %w", input, err)
	}
	if !info.IsDir() {
		return []string{input}, nil
	}

	var files []string
	err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != input && hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", input, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("input %s: %w", input, errNoFiles)
	}
	return files, nil
}

var errNoFiles = errors.New("directory contains no input files")

func hidden(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}

func (l *Loader) readSource(ctx context.Context, source string) ([]Line, error) {
	if common.IsURL(source) {
		return l.readURL(ctx, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, err
	}
	if IsHTML(source, "", nil) {
		abs, _ := filepath.Abs(source)
		return htmlLines(&url.URL{Scheme: "file", Path: abs}, data)
	}
	return ReadLines(bytes.NewReader(data))
}

func (l *Loader) readURL(ctx context.Context, rawURL string) ([]Line, error) {
	var (
		body        []byte
		contentType string
		cached      bool
	)
	if l.Cache != nil {
		body, cached = l.Cache.Get(rawURL)
	}
	if cached {
		l.Logger.Info("Input found in cache", "url", rawURL)
	} else {
		l.Logger.Info("Fetching input", "url", rawURL)
		res, err := l.Fetcher.Get(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		body, contentType = res.Body, res.ContentType
		if l.Cache != nil {
			if err := l.Cache.Set(rawURL, body); err != nil {
				l.Logger.Warn("Failed to cache input", "url", rawURL, "error", err)
			}
		}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if IsHTML(parsed.Path, contentType, body) {
		return htmlLines(parsed, body)
	}
	return ReadLines(bytes.NewReader(body))
}

func htmlLines(pageURL *url.URL, data []byte) ([]Line, error) {
	texts, err := ExtractText(pageURL, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	lines := make([]Line, len(texts))
	var offset int64
	for i, text := range texts {
		lines[i] = Line{Offset: offset, Text: text}
		offset += int64(len(text)) + 1
	}
	return lines, nil
}

// ReadLines reads r to the end and returns its lines with their byte offsets.
// Line terminators ("\n" or "\r\n") are not part of the text. Lines of any
// length are supported.
func ReadLines(r io.Reader) ([]Line, error) {
	br := bufio.NewReader(r)
	var (
		lines  []Line
		offset int64
	)
	for {
		text, err := br.ReadString('\n')
		if len(text) > 0 {
			lines = append(lines, Line{
				Offset: offset,
				Text:   strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r"),
			})
			offset += int64(len(text))
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
