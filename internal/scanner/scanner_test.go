package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func paths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestScan_ExtensionAllowlist(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":        "package main",
		"README.md":      "# readme",
		"notes.txt":      "notes",
		"pkg/util.go":    "package pkg",
		"pkg/helper.py":  "pass",
	})

	s, err := New()
	require.NoError(t, err)

	files, walkErrs, err := s.Scan(context.Background(), root, Options{Extensions: []string{".go"}})
	require.NoError(t, err)
	assert.Empty(t, walkErrs)
	assert.ElementsMatch(t, []string{"main.go", "pkg/util.go"}, paths(files))
}

func TestScan_IncludeGlobsOverrideExtensions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.go":        "package a",
		"docs/b.md":   "b",
		"docs/c/d.md": "d",
	})

	s, err := New()
	require.NoError(t, err)

	files, _, err := s.Scan(context.Background(), root, Options{
		IncludeGlobs: []string{"docs/**/*.md"},
		Extensions:   []string{".go"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"docs/b.md", "docs/c/d.md"}, paths(files))
}

func TestScan_SkipsHiddenAndDefaultDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/main.go":               "package main",
		".hidden/secret.go":         "package hidden",
		".dotfile.go":               "package dot",
		"node_modules/lib/index.go": "package lib",
		"vendor/dep/dep.go":         "package dep",
	})

	s, err := New()
	require.NoError(t, err)

	files, _, err := s.Scan(context.Background(), root, Options{Extensions: []string{".go"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.go"}, paths(files))
}

func TestScan_RespectsRootGitignore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":  "generated.go\nout/\n",
		"main.go":     "package main",
		"generated.go": "package main",
		"out/o.go":    "package out",
	})

	s, err := New()
	require.NoError(t, err)

	files, _, err := s.Scan(context.Background(), root, Options{Extensions: []string{".go"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, paths(files))
}

func TestScan_RespectsNestedGitignore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"sub/.gitignore": "*.gen.go\n",
		"sub/ok.go":      "package sub",
		"sub/x.gen.go":   "package sub",
		"top.gen.go":     "package main",
	})

	s, err := New()
	require.NoError(t, err)

	files, _, err := s.Scan(context.Background(), root, Options{Extensions: []string{".go"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sub/ok.go", "top.gen.go"}, paths(files),
		"nested ignore rules stay scoped to their directory")
}

func TestScan_ExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep.go":          "package main",
		"testdata/skip.go": "package testdata",
	})

	s, err := New()
	require.NoError(t, err)

	files, _, err := s.Scan(context.Background(), root, Options{
		Extensions:   []string{".go"},
		ExcludeGlobs: []string{"testdata/**"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.go"}, paths(files))
}

func TestScan_MaxFileSize(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"small.go": "package main",
		"big.go":   strings.Repeat("x", 2048),
	})

	s, err := New()
	require.NoError(t, err)

	files, _, err := s.Scan(context.Background(), root, Options{
		Extensions:  []string{".go"},
		MaxFileSize: 1024,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"small.go"}, paths(files))
}

func TestScan_MissingRootIsFatal(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, _, err = s.Scan(context.Background(), filepath.Join(t.TempDir(), "absent"), Options{})
	assert.Error(t, err)
}

func TestScan_RootIsFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"f.txt": "x"})

	s, err := New()
	require.NoError(t, err)

	_, _, err = s.Scan(context.Background(), filepath.Join(root, "f.txt"), Options{})
	assert.Error(t, err)
}

func TestScan_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.go": "package a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := New()
	require.NoError(t, err)

	_, _, err = s.Scan(ctx, root, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
