package textsplit

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunk is one bounded slice of a source text with its position in the
// split sequence.
type Chunk struct {
	Content string
	Index   int
}

// Boundary preference, largest unit first. An empty-match fallback is the
// character-level hard split.
var separators = []string{"\n\n", "\n", ". ", " "}

// Split cuts text into chunks of at most size characters each, preferring
// paragraph, line, sentence and word boundaries in that order. Consecutive
// chunks share up to overlap characters of trailing context so that meaning
// is preserved across chunk borders. The result is deterministic for a given
// input, and empty input yields no chunks.
func Split(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := splitPieces(text, size, overlap, separators)
	merged := merge(pieces, size, overlap)

	chunks := make([]Chunk, len(merged))
	for i, content := range merged {
		chunks[i] = Chunk{Content: content, Index: i}
	}
	return chunks
}

// splitPieces partitions text into pieces no longer than size characters.
// Pieces concatenate back to the original text exactly; all overlap handling
// happens later in merge.
func splitPieces(text string, size, overlap int, seps []string) []string {
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardSplit(text, size, overlap)
	}

	parts := strings.SplitAfter(text, seps[0])
	if len(parts) == 1 {
		return splitPieces(text, size, overlap, seps[1:])
	}

	var out []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= size {
			out = append(out, part)
			continue
		}
		out = append(out, splitPieces(part, size, overlap, seps[1:])...)
	}
	return out
}

// hardSplit cuts an atomic run (no usable boundary) into fixed-width pieces.
// Piece width is the overlap size so that merge can always carry a non-empty
// overlap between the resulting chunks.
func hardSplit(text string, size, overlap int) []string {
	step := overlap
	if step <= 0 {
		step = size
	}
	runes := []rune(text)
	out := make([]string, 0, len(runes)/step+1)
	for i := 0; i < len(runes); i += step {
		end := i + step
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// merge packs pieces into chunks of at most size characters. When a chunk is
// emitted, trailing pieces totalling at most overlap characters are retained
// as the start of the next chunk.
func merge(pieces []string, size, overlap int) []string {
	var chunks []string
	var current []string
	total := 0

	for _, piece := range pieces {
		pl := utf8.RuneCountInString(piece)
		if total+pl > size && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, ""))
			for len(current) > 0 && (total > overlap || total+pl > size) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += pl
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, ""))
	}
	return chunks
}
