package gitignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_BasicPatterns(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		{"exact file", "secret.txt", "secret.txt", false, true},
		{"exact file nested", "secret.txt", "docs/secret.txt", false, true},
		{"no match", "secret.txt", "public.txt", false, false},
		{"star extension", "*.log", "debug.log", false, true},
		{"star extension nested", "*.log", "logs/debug.log", false, true},
		{"star no slash crossing", "a*b", "a/b", false, false},
		{"question mark", "file?.txt", "file1.txt", false, true},
		{"question mark not slash", "a?b", "a/b", false, false},
		{"char class", "file[0-9].txt", "file7.txt", false, true},
		{"char class miss", "file[0-9].txt", "fileX.txt", false, false},
		{"anchored root only", "/build", "build", true, true},
		{"anchored not nested", "/build", "src/build", true, false},
		{"dir only on dir", "temp/", "temp", true, true},
		{"dir only on file", "temp/", "temp", false, false},
		{"dir only contents", "temp/", "temp/cache.bin", false, true},
		{"internal slash anchors", "doc/frotz", "doc/frotz", true, true},
		{"internal slash not nested", "doc/frotz", "a/doc/frotz", true, false},
		{"doublestar prefix", "**/logs", "a/b/logs", true, true},
		{"doublestar middle", "a/**/b", "a/x/y/b", false, true},
		{"escaped hash", `\#notes`, "#notes", false, true},
		{"comment skipped", "# comment", "# comment", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.Add(tt.pattern)
			assert.Equal(t, tt.want, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestMatch_NegationReincludes(t *testing.T) {
	m := New()
	m.Add("*.log")
	m.Add("!keep.log")

	assert.True(t, m.Match("debug.log", false))
	assert.False(t, m.Match("keep.log", false))
}

func TestMatch_LaterRuleWins(t *testing.T) {
	m := New()
	m.Add("!keep.log")
	m.Add("*.log")

	assert.True(t, m.Match("keep.log", false), "ignore after negation re-ignores")
}

func TestMatch_BaseScoping(t *testing.T) {
	m := New()
	m.AddWithBase("*.tmp", "sub")

	assert.True(t, m.Match("sub/a.tmp", false))
	assert.True(t, m.Match("sub/deep/a.tmp", false))
	assert.False(t, m.Match("a.tmp", false), "rule does not apply outside base")
	assert.False(t, m.Match("other/a.tmp", false))
}

func TestMatch_AnchoredDirCoversContents(t *testing.T) {
	m := New()
	m.Add("/vendor/")

	assert.True(t, m.Match("vendor", true))
	assert.True(t, m.Match("vendor/lib/pkg.go", false))
	assert.False(t, m.Match("tools/vendor", true))
}

func TestAddFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	require.NoError(t, os.WriteFile(path, []byte("# build output\n*.o\n\ndist/\n!dist/README.md\n"), 0o644))

	m := New()
	require.NoError(t, m.AddFile(path, ""))

	assert.True(t, m.Match("main.o", false))
	assert.True(t, m.Match("dist/app", false))
	assert.False(t, m.Match("dist/README.md", false))
	assert.False(t, m.Match("main.go", false))
}

func TestAddFile_Missing(t *testing.T) {
	m := New()
	assert.Error(t, m.AddFile(filepath.Join(t.TempDir(), "absent"), ""))
}
