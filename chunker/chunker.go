// Package chunker splits document text into bounded, overlapping windows —
// the unit of embedding and retrieval.
//
// The splitter prefers paragraph breaks over line breaks, line breaks over
// sentence ends, and sentence ends over plain spaces, so windows rarely cut
// through the middle of a word. Consecutive windows of the same document
// share a configurable amount of trailing context.
package chunker

import (
	"strings"
	"unicode"
)

const (
	// DefaultSize is the target window size in runes.
	DefaultSize = 1200
	// DefaultOverlap is the shared context between consecutive windows.
	DefaultOverlap = 150
)

// Split cuts text into windows of at most size runes, with roughly overlap
// runes shared between consecutive windows. Empty or whitespace-only input
// yields no windows. The final window may be shorter than size.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 8
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		cut := boundaryCut(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))

		next := cut - overlap
		if next <= start {
			next = cut // window too dense to overlap, still make progress
		}
		start = next
	}
	return chunks
}

// boundaryCut picks the cut position in (start, end], preferring in order:
// paragraph break, line break, sentence end, word gap. The separator stays
// with the preceding window. Searches only the back half of the window so a
// lucky early boundary cannot produce a tiny chunk.
func boundaryCut(runes []rune, start, end int) int {
	floor := start + (end-start)/2

	// Paragraph break: "\n\n".
	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	// Line break.
	for i := end - 1; i >= floor; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	// Sentence end followed by space.
	for i := end - 1; i > floor; i-- {
		if isSentenceEnd(runes[i-1]) && unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	// Word gap.
	for i := end - 1; i >= floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	// No boundary in the back half; hard cut.
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
