// Package chunker splits text and source code into bounded, overlapping,
// boundary-aware segments with positional metadata.
//
// Offsets are rune indices, so a chunk boundary can never land inside a
// multi-byte character. Chunks of one input are produced in non-decreasing
// offset order, cover the whole input, and carry consecutive indices.
package chunker

import "strings"

// Default chunking parameters.
const (
	DefaultMaxSize = 1000
	DefaultOverlap = 100

	// snapWindow bounds how far a chunk start may be moved forward to land
	// on a natural boundary after applying overlap.
	snapWindow = 50
)

// Chunk is a bounded, contiguous slice of a content unit's text.
type Chunk struct {
	// Index is the ordinal of this chunk within its content unit.
	Index int
	// Text is the chunk content.
	Text string
	// StartChar and EndChar are rune offsets into the original text,
	// with StartChar < EndChar and EndChar exclusive.
	StartChar int
	EndChar   int
	// LineStart and LineEnd are 1-based line numbers covered by the chunk.
	LineStart int
	LineEnd   int
}

// Options configures a Chunker.
type Options struct {
	// MaxSize is the maximum chunk length in runes (default: DefaultMaxSize).
	MaxSize int
	// Overlap is the number of runes shared between adjacent chunks
	// (default: DefaultOverlap).
	Overlap int
}

// Chunker splits text into bounded segments.
type Chunker struct {
	maxSize int
	overlap int
}

// New creates a Chunker with the given options.
func New(opts Options) *Chunker {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	if opts.Overlap >= opts.MaxSize {
		opts.Overlap = opts.MaxSize / 10
	}
	return &Chunker{maxSize: opts.MaxSize, overlap: opts.Overlap}
}

// Chunk splits prose into boundary-aware segments. Inputs no longer than
// MaxSize produce exactly one chunk spanning the whole text. Empty input
// produces no chunks.
func (c *Chunker) Chunk(text string) []Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if n <= c.maxSize {
		return []Chunk{c.newChunk(runes, 0, 0, n)}
	}

	var chunks []Chunk
	start := 0
	for start < n {
		end := start + c.maxSize
		if end >= n {
			end = n
		} else {
			end = c.findBreak(runes, start, end)
		}

		chunks = append(chunks, c.newChunk(runes, len(chunks), start, end))
		if end >= n {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		next = c.snapForward(runes, next, end)
		// The start must strictly advance on every iteration.
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// findBreak picks a chunk end near limit, preferring paragraph breaks over
// sentence ends over line breaks over word boundaries. Only breaks in the
// second half of the chunk are considered; otherwise the cut is hard.
func (c *Chunker) findBreak(runes []rune, start, limit int) int {
	lo := start + c.maxSize/2

	// Paragraph break: cut after "\n\n".
	for i := limit - 2; i >= lo; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i + 2
		}
	}
	// Sentence end: terminator followed by whitespace.
	for i := limit - 2; i >= lo; i-- {
		if isSentenceEnd(runes[i]) && isSpace(runes[i+1]) {
			return i + 2
		}
	}
	// Line break.
	for i := limit - 1; i >= lo; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	// Word boundary.
	for i := limit - 1; i >= lo; i-- {
		if isSpace(runes[i]) {
			return i + 1
		}
	}
	return limit
}

// snapForward moves a prospective chunk start forward onto the nearest
// natural boundary, so the seam does not re-split mid-sentence. The result
// never reaches end, preserving the overlap with the previous chunk.
func (c *Chunker) snapForward(runes []rune, from, end int) int {
	hi := from + snapWindow
	if hi > end-1 {
		hi = end - 1
	}

	paragraph, sentence, line, word := -1, -1, -1, -1
	for p := from; p <= hi; p++ {
		if p < 2 {
			continue
		}
		switch {
		case runes[p-1] == '\n' && runes[p-2] == '\n':
			if paragraph < 0 {
				paragraph = p
			}
		case isSpace(runes[p-1]) && isSentenceEnd(runes[p-2]):
			if sentence < 0 {
				sentence = p
			}
		case runes[p-1] == '\n':
			if line < 0 {
				line = p
			}
		case isSpace(runes[p-1]):
			if word < 0 {
				word = p
			}
		}
	}

	for _, p := range []int{paragraph, sentence, line, word} {
		if p >= 0 {
			return p
		}
	}
	return from
}

func (c *Chunker) newChunk(runes []rune, index, start, end int) Chunk {
	lineStart := 1
	for i := 0; i < start; i++ {
		if runes[i] == '\n' {
			lineStart++
		}
	}
	lineEnd := lineStart
	for i := start; i < end-1; i++ {
		if runes[i] == '\n' {
			lineEnd++
		}
	}
	return Chunk{
		Index:     index,
		Text:      string(runes[start:end]),
		StartChar: start,
		EndChar:   end,
		LineStart: lineStart,
		LineEnd:   lineEnd,
	}
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// MaxSize returns the configured maximum chunk length in runes.
func (c *Chunker) MaxSize() int { return c.maxSize }

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimRight(string(runes[:max]), " \t\n") + "…"
}

// Preview returns a rune-safe truncated excerpt of s.
func Preview(s string, max int) string {
	return truncate(s, max)
}
