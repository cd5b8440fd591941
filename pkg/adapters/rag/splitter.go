package rag

import "strings"

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Split cuts text into chunks of at most size runes, each sharing overlap runes
// with the previous one. Cuts prefer paragraph, line and word boundaries.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := min(start+size, len(runes))
		if end < len(runes) {
			end = boundary(runes, start, end)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// boundary moves end back to the best separator in the second half of the window.
func boundary(runes []rune, start, end int) int {
	floor := start + (end-start)/2
	for _, sep := range []string{"\n\n", "\n", " "} {
		s := []rune(sep)
		for i := end - len(s); i >= floor; i-- {
			if string(runes[i:i+len(s)]) == sep {
				return i + len(s)
			}
		}
	}
	return end
}
