// Package chunk segments document text into overlapping, token-bounded
// pieces. Splitting is separator-aware: paragraph breaks are preferred over
// sentence breaks, sentences over clauses, clauses over spaces, with a hard
// character cut as the last resort. The chunker is a pure function over its
// input and performs no I/O.
package chunk

import (
	"strings"
)

// DefaultSeparators is the separator cascade, in priority order. Sentence
// and clause separators include CJK punctuation.
var DefaultSeparators = []string{
	"\n\n",
	". ", "! ", "? ", "。", "！", "？",
	"; ", ": ", "，", "、", "；", "：",
	" ",
}

// Options configures a chunking run.
type Options struct {
	// ChunkSize is the token budget per piece.
	ChunkSize int
	// ChunkOverlap is the approximate token overlap seeded between
	// consecutive pieces.
	ChunkOverlap int
	// Separators overrides the default separator cascade.
	Separators []string
}

// Piece is one bounded segment of the input text.
type Piece struct {
	// Text is the segment content, whitespace-trimmed.
	Text string
	// Index is the 0-based position within the document.
	Index int
	// TokenCount is the estimated token count of Text.
	TokenCount int
}

// Split segments text into ordered, overlapping pieces under the token
// budget. Empty or whitespace-only input yields no pieces.
func Split(text string, opts Options) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 500
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = 0
	}
	seps := opts.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}

	segments := splitByLines(text, opts.ChunkSize, opts.ChunkOverlap)

	// Line-based accumulation can still produce oversized segments (one
	// long line, or a seeded overlap pushing past the budget). Reduce those
	// through the separator cascade.
	var final []string
	for _, seg := range segments {
		if EstimateTokens(seg) <= opts.ChunkSize {
			final = append(final, seg)
			continue
		}
		final = append(final, splitRecursive(seg, opts.ChunkSize, seps)...)
	}

	pieces := make([]Piece, 0, len(final))
	for _, seg := range final {
		trimmed := strings.TrimSpace(seg)
		if trimmed == "" {
			continue
		}
		pieces = append(pieces, Piece{
			Text:       trimmed,
			Index:      len(pieces),
			TokenCount: EstimateTokens(trimmed),
		})
	}
	return pieces
}

// splitByLines accumulates lines into segments under the token budget,
// seeding each new segment with the trailing overlap of the previous one.
func splitByLines(text string, chunkSize, overlap int) []string {
	lines := strings.Split(text, "\n")

	var segments []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		closed := current.String()
		segments = append(segments, closed)
		current.Reset()
		currentTokens = 0
		if overlap > 0 {
			seed := overlapTail(closed, overlap)
			if seed != "" {
				current.WriteString(seed)
				currentTokens = EstimateTokens(seed)
			}
		}
	}

	for _, line := range lines {
		lineTokens := EstimateTokens(line)
		if currentTokens+lineTokens > chunkSize && current.Len() > 0 {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
		currentTokens += lineTokens
	}
	if strings.TrimSpace(current.String()) != "" {
		segments = append(segments, current.String())
	}
	return segments
}

// splitRecursive reduces an oversized segment by trying each separator in
// priority order. The first separator producing more than one part wins;
// oversized parts recurse with the same cascade. A segment no separator can
// reduce is hard-cut by character count.
func splitRecursive(seg string, chunkSize int, seps []string) []string {
	for _, sep := range seps {
		parts := splitKeepSeparator(seg, sep)
		if len(parts) <= 1 {
			continue
		}
		var out []string
		for _, part := range merged(parts, chunkSize) {
			if EstimateTokens(part) > chunkSize {
				out = append(out, splitRecursive(part, chunkSize, seps)...)
			} else {
				out = append(out, part)
			}
		}
		return out
	}
	return hardSplit(seg, chunkSize)
}

// splitKeepSeparator splits on sep, keeping the separator attached to the
// preceding part so sentence punctuation is not lost.
func splitKeepSeparator(s, sep string) []string {
	raw := strings.SplitAfter(s, sep)
	parts := raw[:0]
	for _, p := range raw {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// merged greedily re-joins consecutive parts up to the budget so a sentence
// split does not degenerate into one chunk per sentence.
func merged(parts []string, chunkSize int) []string {
	var out []string
	var current strings.Builder
	currentTokens := 0

	for _, part := range parts {
		t := EstimateTokens(part)
		if currentTokens+t > chunkSize && current.Len() > 0 {
			out = append(out, current.String())
			current.Reset()
			currentTokens = 0
		}
		current.WriteString(part)
		currentTokens += t
	}
	if current.Len() > 0 {
		out = append(out, current.String())
	}
	return out
}

// hardSplit cuts by rune count so each part stays under the token budget,
// regardless of content.
func hardSplit(seg string, chunkSize int) []string {
	runes := []rune(seg)
	var out []string
	var current []rune
	var acc float64

	for _, r := range runes {
		w := latinTokensPerRune
		if isCJK(r) {
			w = cjkTokensPerRune
		}
		if acc+w > float64(chunkSize) && len(current) > 0 {
			out = append(out, string(current))
			current = current[:0]
			acc = 0
		}
		current = append(current, r)
		acc += w
	}
	if len(current) > 0 {
		out = append(out, string(current))
	}
	return out
}
