// Package loader turns a directory of heterogeneous files into raw documents.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"resume-assist/internal/models"
	"resume-assist/internal/parser"
)

// ParseFunc parses one file into raw documents.
type ParseFunc func(ctx context.Context, filePath string) ([]models.RawDocument, error)

// Loader scans a directory afresh on every Load call; it keeps no cursor.
type Loader struct {
	parse ParseFunc
}

// Option configures a Loader.
type Option func(*Loader)

// WithParser replaces the file parser. Mostly useful in tests.
func WithParser(fn ParseFunc) Option {
	return func(l *Loader) {
		if fn != nil {
			l.parse = fn
		}
	}
}

func New(opts ...Option) *Loader {
	l := &Loader{parse: parser.ParseFile}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load walks dir recursively in lexical order and parses every file matching
// one of the glob filters, or every supported file when filters is empty.
// Files that fail to parse are reported as diagnostics and skipped.
// A missing directory returns models.ErrNotFound.
func (l *Loader) Load(ctx context.Context, dir string, filters []string) ([]models.RawDocument, []models.Diagnostic, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: directory %s", models.ErrNotFound, dir)
		}
		return nil, nil, err
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", models.ErrNotFound, dir)
	}
	for _, pattern := range filters {
		if _, err := path.Match(strings.TrimPrefix(filepath.ToSlash(pattern), "**/"), ""); err != nil {
			return nil, nil, fmt.Errorf("%w: bad file filter %q: %v", models.ErrInvalidConfig, pattern, err)
		}
	}

	var (
		docs        []models.RawDocument
		diagnostics []models.Diagnostic
	)
	report := func(p string, err error) {
		log.Warn().Str("path", p).Err(err).Msg("Skipping file")
		diagnostics = append(diagnostics, models.Diagnostic{Path: p, Err: err})
	}

	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == dir {
				return err
			}
			report(p, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			report(p, err)
			return nil
		}
		if !Matches(rel, filters) {
			return nil
		}

		parsed, err := l.safeParse(ctx, p)
		if err != nil {
			report(p, err)
			return nil
		}
		log.Debug().Str("path", p).Int("documents", len(parsed)).Msg("Loaded file")
		docs = append(docs, parsed...)
		return nil
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}

	log.Info().Str("dir", dir).Int("documents", len(docs)).Int("skipped", len(diagnostics)).Msg("Loaded directory")
	return docs, diagnostics, nil
}

// safeParse turns a parser panic on a malformed file into an error.
func (l *Loader) safeParse(ctx context.Context, p string) (docs []models.RawDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			docs, err = nil, fmt.Errorf("parser panic: %v", r)
		}
	}()
	return l.parse(ctx, p)
}

// Matches reports whether the slash separated relative path matches any of
// the patterns. A pattern without a separator matches the base name at any
// depth, and a leading "**/" matches any number of leading directories.
// No patterns means every file matches.
func Matches(rel string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		switch {
		case strings.HasPrefix(pattern, "**/"):
			tail := strings.TrimPrefix(pattern, "**/")
			for i := range parts {
				if ok, _ := path.Match(tail, strings.Join(parts[i:], "/")); ok {
					return true
				}
			}
		case !strings.Contains(pattern, "/"):
			if ok, _ := path.Match(pattern, parts[len(parts)-1]); ok {
				return true
			}
		default:
			if ok, _ := path.Match(pattern, rel); ok {
				return true
			}
		}
	}
	return false
}
