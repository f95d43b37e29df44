// Package scanner lists indexable files under a project root. The walk is
// synchronous, honors nested .gitignore files, and skips hidden entries and
// the usual dependency/VCS directories.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kvasirlabs/semidx/internal/gitignore"
)

// matcherCacheSize bounds the number of cached per-directory gitignore
// matchers so repeated scans of large trees do not grow memory unbounded.
const matcherCacheSize = 1000

// DefaultMaxFileSize is the largest file the scanner will report, in bytes.
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

// Options controls a single scan.
type Options struct {
	// IncludeGlobs are doublestar patterns matched against the relative
	// path. When empty, Extensions decides inclusion instead.
	IncludeGlobs []string

	// Extensions is the allowlist (".go", ".md", ...) used when no
	// IncludeGlobs are given. Empty means every non-excluded file.
	Extensions []string

	// ExcludeGlobs are extra doublestar exclusion patterns from config.
	ExcludeGlobs []string

	MaxFileSize int64
}

// File is one scan hit. Path is relative to the scanned root with forward
// slashes; AbsPath is the file on disk.
type File struct {
	Path    string
	AbsPath string
	Size    int64
}

// Scanner walks directories. It caches parsed .gitignore matchers across
// calls, keyed by directory.
type Scanner struct {
	matchers *lru.Cache[string, *gitignore.Matcher]
}

var defaultExcludeDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

func New() (*Scanner, error) {
	cache, err := lru.New[string, *gitignore.Matcher](matcherCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create matcher cache: %w", err)
	}
	return &Scanner{matchers: cache}, nil
}

// Scan walks root and returns matching files in walk order. A missing or
// non-directory root is a fatal error; per-entry walk failures are collected
// into walkErrs and the walk continues.
func (s *Scanner) Scan(ctx context.Context, root string, opts Options) (files []File, walkErrs []error, err error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if walkErr != nil {
			walkErrs = append(walkErrs, fmt.Errorf("%s: %w", rel, walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") || defaultExcludeDirs[name] || s.globMatches(rel, opts.ExcludeGlobs) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if s.globMatches(rel, opts.ExcludeGlobs) {
			return nil
		}
		if s.gitignored(absRoot, rel) {
			return nil
		}
		if !s.included(rel, opts) {
			return nil
		}

		fi, infoErr := d.Info()
		if infoErr != nil {
			walkErrs = append(walkErrs, fmt.Errorf("%s: %w", rel, infoErr))
			return nil
		}
		if fi.Size() > maxSize {
			return nil
		}

		files = append(files, File{Path: rel, AbsPath: path, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, walkErrs, err
	}
	return files, walkErrs, nil
}

func (s *Scanner) included(rel string, opts Options) bool {
	if len(opts.IncludeGlobs) > 0 {
		return s.globMatches(rel, opts.IncludeGlobs)
	}
	if len(opts.Extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(rel))
		for _, allowed := range opts.Extensions {
			if ext == allowed {
				return true
			}
		}
		return false
	}
	return true
}

func (s *Scanner) globMatches(rel string, globs []string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// gitignored consults the .gitignore of the root and of every directory on
// the path down to the file, with nested files scoped to their directory.
func (s *Scanner) gitignored(absRoot, rel string) bool {
	if m := s.matcherFor(absRoot, ""); m != nil && m.Match(rel, false) {
		return true
	}

	dir := filepath.Dir(rel)
	if dir == "." {
		return false
	}
	base := ""
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if base == "" {
			base = part
		} else {
			base = base + "/" + part
		}
		m := s.matcherFor(filepath.Join(absRoot, filepath.FromSlash(base)), base)
		if m != nil && m.Match(rel, false) {
			return true
		}
	}
	return false
}

func (s *Scanner) matcherFor(dir, base string) *gitignore.Matcher {
	if m, ok := s.matchers.Get(dir); ok {
		return m
	}
	path := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	m := gitignore.New()
	if err := m.AddFile(path, base); err != nil {
		return nil
	}
	s.matchers.Add(dir, m)
	return m
}

// InvalidateCache drops all cached gitignore matchers.
func (s *Scanner) InvalidateCache() {
	s.matchers.Purge()
}
