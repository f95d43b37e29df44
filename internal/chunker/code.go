package chunker

import "strings"

// declKeywords maps file extensions to the keywords that begin a top-level
// declaration in that language. A line starting with one of these is a
// preferred place to begin a new chunk.
var declKeywords = map[string][]string{
	".go":   {"func ", "type ", "const ", "var "},
	".py":   {"def ", "class ", "async def "},
	".js":   {"function ", "class ", "const ", "export "},
	".jsx":  {"function ", "class ", "const ", "export "},
	".ts":   {"function ", "class ", "const ", "export ", "interface "},
	".tsx":  {"function ", "class ", "const ", "export ", "interface "},
	".rb":   {"def ", "class ", "module "},
	".rs":   {"fn ", "pub ", "impl ", "struct ", "enum ", "trait "},
	".java": {"public ", "private ", "protected ", "class "},
	".c":    {"static ", "void ", "int ", "struct "},
	".h":    {"static ", "void ", "int ", "struct "},
}

// closingDelims are lines that end a block in most brace- or keyword-delimited
// languages. Cutting right after one keeps whole blocks together.
var closingDelims = map[string]struct{}{
	"}": {}, "};": {}, ")": {}, ");": {}, "]": {}, "];": {}, "end": {},
}

// ChunkCode splits source code into bounded segments using code-aware
// boundaries: a closing block delimiter (when the resulting chunk is at least
// half of MaxSize), a blank line between declarations, a line beginning a
// declaration keyword for the file's language, or a plain line break.
func (c *Chunker) ChunkCode(text, ext string) []Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if n <= c.maxSize {
		return []Chunk{c.newChunk(runes, 0, 0, n)}
	}

	keywords := declKeywords[strings.ToLower(ext)]

	var chunks []Chunk
	start := 0
	for start < n {
		end := start + c.maxSize
		if end >= n {
			end = n
		} else {
			end = c.findCodeBreak(runes, start, end, keywords)
		}

		chunks = append(chunks, c.newChunk(runes, len(chunks), start, end))
		if end >= n {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		next = snapToLineStart(runes, next, end)
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// findCodeBreak picks a chunk end near limit using code boundary preferences.
func (c *Chunker) findCodeBreak(runes []rune, start, limit int, keywords []string) int {
	lo := start + c.maxSize/2

	// Collect candidate ends per preference while walking lines backward
	// from limit. lineEnd is the offset just past a line's newline.
	blank, decl, plain := -1, -1, -1
	lineEnd := limit
	for i := limit - 1; i >= start; i-- {
		if runes[i] != '\n' {
			continue
		}
		lineStart := i + 1
		line := strings.TrimSpace(string(runes[lineStart:lineEnd]))

		// A closing delimiter line cuts after itself; only worthwhile if
		// the chunk keeps a reasonable size.
		if _, ok := closingDelims[line]; ok && lineEnd >= lo && lineEnd <= limit {
			return lineEnd
		}
		if line == "" && blank < 0 && lineEnd >= lo && lineEnd <= limit {
			blank = lineEnd
		}
		if decl < 0 && lineStart >= lo && lineStart <= limit && startsWithKeyword(line, keywords) {
			decl = lineStart
		}
		if plain < 0 && i+1 >= lo && i+1 <= limit {
			plain = i + 1
		}
		lineEnd = lineStart
	}

	for _, p := range []int{blank, decl, plain} {
		if p >= 0 {
			return p
		}
	}
	return limit
}

// snapToLineStart moves a prospective chunk start forward to the next line
// start, so code chunks do not begin mid-line. The result never reaches end.
func snapToLineStart(runes []rune, from, end int) int {
	hi := from + snapWindow
	if hi > end-1 {
		hi = end - 1
	}
	for p := from; p <= hi; p++ {
		if p > 0 && runes[p-1] == '\n' {
			return p
		}
	}
	return from
}

func startsWithKeyword(line string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.HasPrefix(line, kw) {
			return true
		}
	}
	return false
}
