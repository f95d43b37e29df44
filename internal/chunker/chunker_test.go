package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_SmallInputSingleChunk(t *testing.T) {
	c := New(Options{MaxSize: 1000, Overlap: 100})

	text := "A short paragraph that fits in one chunk."
	chunks := c.Chunk(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, utf8.RuneCountInString(text), chunks[0].EndChar)
}

func TestChunk_EmptyInput(t *testing.T) {
	c := New(Options{})
	assert.Empty(t, c.Chunk(""))
}

func TestChunk_ExactlyMaxSize(t *testing.T) {
	c := New(Options{MaxSize: 50, Overlap: 10})
	text := strings.Repeat("a", 50)

	chunks := c.Chunk(text)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
}

// Uniform 2500-char input with max_size=1000 and overlap=100 must produce
// exactly 3 chunks whose ranges cover the whole input.
func TestChunk_UniformInputThreeChunks(t *testing.T) {
	c := New(Options{MaxSize: 1000, Overlap: 100})
	text := strings.Repeat("a", 2500)

	chunks := c.Chunk(text)
	require.Len(t, chunks, 3)

	for _, ch := range chunks {
		assert.LessOrEqual(t, ch.EndChar-ch.StartChar, 1000)
		assert.Less(t, ch.StartChar, ch.EndChar)
	}

	// Overlap: the second chunk starts before the first ends.
	assert.Less(t, chunks[1].StartChar, chunks[0].EndChar)

	// Union covers all 2500 chars.
	covered := make([]bool, 2500)
	for _, ch := range chunks {
		for i := ch.StartChar; i < ch.EndChar; i++ {
			covered[i] = true
		}
	}
	for i, ok := range covered {
		require.True(t, ok, "char %d not covered", i)
	}
}

func TestChunk_CoverageAndOrdering(t *testing.T) {
	c := New(Options{MaxSize: 120, Overlap: 20})

	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	text := b.String()
	n := utf8.RuneCountInString(text)

	chunks := c.Chunk(text)
	require.NotEmpty(t, chunks)

	prevStart := -1
	covered := make([]bool, n)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index, "indices are consecutive")
		assert.Less(t, ch.StartChar, ch.EndChar)
		assert.GreaterOrEqual(t, ch.StartChar, 0)
		assert.LessOrEqual(t, ch.EndChar, n)
		assert.Greater(t, ch.StartChar, prevStart, "starts strictly advance")
		prevStart = ch.StartChar
		for p := ch.StartChar; p < ch.EndChar; p++ {
			covered[p] = true
		}
	}
	for i, ok := range covered {
		require.True(t, ok, "char %d not covered", i)
	}
	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, n, chunks[len(chunks)-1].EndChar)
}

func TestChunk_PrefersParagraphBreak(t *testing.T) {
	c := New(Options{MaxSize: 100, Overlap: 10})

	first := strings.Repeat("x", 70)
	second := strings.Repeat("y", 200)
	text := first + "\n\n" + second

	chunks := c.Chunk(text)
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, first+"\n\n", chunks[0].Text, "cut lands on the paragraph break")
}

func TestChunk_PrefersSentenceOverWord(t *testing.T) {
	c := New(Options{MaxSize: 100, Overlap: 10})

	// One sentence terminator at rune 80, words everywhere.
	text := strings.Repeat("word ", 16) + ". " + strings.Repeat("tail ", 40)

	chunks := c.Chunk(text)
	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0].Text, ". "),
		"chunk should end at the sentence terminator, got %q", chunks[0].Text)
}

func TestChunk_MultiByteSafeOffsets(t *testing.T) {
	c := New(Options{MaxSize: 50, Overlap: 10})

	text := strings.Repeat("héllo wörld ", 30)
	runes := []rune(text)

	chunks := c.Chunk(text)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		// Offsets index runes, so slicing by them must reproduce the text.
		assert.Equal(t, string(runes[ch.StartChar:ch.EndChar]), ch.Text)
		assert.True(t, utf8.ValidString(ch.Text))
	}
}

func TestChunk_LineNumbers(t *testing.T) {
	c := New(Options{MaxSize: 1000, Overlap: 0})

	chunks := c.Chunk("one\ntwo\nthree")
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].LineStart)
	assert.Equal(t, 3, chunks[0].LineEnd)
}

func TestChunk_ForceAdvanceOnPathologicalOverlap(t *testing.T) {
	// Overlap nearly as large as max size must still terminate with
	// strictly advancing starts.
	c := New(Options{MaxSize: 20, Overlap: 19})
	text := strings.Repeat("a", 200)

	chunks := c.Chunk(text)
	require.NotEmpty(t, chunks)
	prev := -1
	for _, ch := range chunks {
		assert.Greater(t, ch.StartChar, prev)
		prev = ch.StartChar
	}
	assert.Equal(t, 200, chunks[len(chunks)-1].EndChar)
}

func TestNew_Defaults(t *testing.T) {
	c := New(Options{})
	assert.Equal(t, DefaultMaxSize, c.MaxSize())
	assert.Equal(t, DefaultOverlap, c.Overlap())

	// Overlap >= MaxSize is clamped.
	c = New(Options{MaxSize: 100, Overlap: 100})
	assert.Less(t, c.Overlap(), c.MaxSize())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 10))
	long := strings.Repeat("héllo ", 50)
	p := Preview(long, 20)
	assert.True(t, utf8.ValidString(p))
	assert.LessOrEqual(t, utf8.RuneCountInString(p), 21)
}
