package retrieval

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Relevance signal weights. Base similarity dominates; the rest nudge
// ordering between comparable hits.
const (
	weightSimilarity = 0.6
	weightLength     = 0.1
	weightPosition   = 0.1
	weightRecency    = 0.1
	weightKeyword    = 0.1
)

const (
	// relevanceLengthPeak is the preferred chunk length in characters.
	relevanceLengthPeak = 500

	// recencyHalfLife halves the recency signal per elapsed period.
	recencyHalfLife = 30 * 24 * time.Hour
)

// relevanceScore combines base similarity, length preference, position in
// the document, document recency, and keyword overlap, clamped to [0,1].
func relevanceScore(query string, chunk *EnrichedChunk, now time.Time) float64 {
	hit := chunk.Hit

	length := 1.0 - math.Abs(float64(len(hit.Chunk.Content)-relevanceLengthPeak))/relevanceLengthPeak
	if length < 0 {
		length = 0
	}

	position := 1.0 / (1.0 + 0.1*float64(hit.Chunk.Index))

	recency := 0.0
	if !hit.DocumentCreatedAt.IsZero() {
		age := now.Sub(hit.DocumentCreatedAt)
		if age < 0 {
			age = 0
		}
		recency = math.Pow(0.5, age.Hours()/recencyHalfLife.Hours())
	}

	keyword := keywordOverlap(query, hit.Chunk.Content)

	score := weightSimilarity*hit.Score +
		weightLength*length +
		weightPosition*position +
		weightRecency*recency +
		weightKeyword*keyword

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// keywordOverlap measures query coverage per-character for CJK queries and
// per-word otherwise.
func keywordOverlap(query, text string) float64 {
	if query == "" || text == "" {
		return 0
	}

	if isCJKQuery(query) {
		total, matched := 0, 0
		seen := make(map[rune]struct{})
		for _, r := range query {
			if unicode.IsSpace(r) || unicode.IsPunct(r) {
				continue
			}
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			total++
			if strings.ContainsRune(text, r) {
				matched++
			}
		}
		if total == 0 {
			return 0
		}
		return float64(matched) / float64(total)
	}

	lowerText := strings.ToLower(text)
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(words) == 0 {
		return 0
	}
	matched := 0
	for _, w := range words {
		if strings.Contains(lowerText, w) {
			matched++
		}
	}
	return float64(matched) / float64(len(words))
}

// isCJKQuery reports whether the query is predominantly CJK.
func isCJKQuery(query string) bool {
	cjk, other := 0, 0
	for _, r := range query {
		switch {
		case unicode.Is(unicode.Han, r), unicode.Is(unicode.Hiragana, r),
			unicode.Is(unicode.Katakana, r), unicode.Is(unicode.Hangul, r):
			cjk++
		case unicode.IsLetter(r):
			other++
		}
	}
	return cjk > other
}

// diversify admits chunks in score order up to perDocumentCap per document.
// When the capped set falls below backfillFloor of the candidate count, the
// next-best remaining chunks backfill regardless of document. Backfilled
// chunks are appended after the cap-admitted set, so a later trim sheds
// backfill before it sheds diversity.
func diversify(chunks []*EnrichedChunk, perDocumentCap int, backfillFloor float64) []*EnrichedChunk {
	if perDocumentCap <= 0 || len(chunks) == 0 {
		return chunks
	}

	sortByRelevance(chunks)

	perDoc := make(map[string]int)
	admitted := make([]*EnrichedChunk, 0, len(chunks))
	var overflow []*EnrichedChunk

	for _, c := range chunks {
		docID := c.Hit.DocumentID
		if perDoc[docID] < perDocumentCap {
			perDoc[docID]++
			admitted = append(admitted, c)
		} else {
			overflow = append(overflow, c)
		}
	}

	floor := int(math.Ceil(backfillFloor * float64(len(chunks))))
	for _, c := range overflow {
		if len(admitted) >= floor {
			break
		}
		admitted = append(admitted, c)
	}

	return admitted
}

// sortByRelevance orders by relevance descending with chunk ID tiebreak for
// determinism.
func sortByRelevance(chunks []*EnrichedChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].RelevanceScore != chunks[j].RelevanceScore {
			return chunks[i].RelevanceScore > chunks[j].RelevanceScore
		}
		return chunks[i].Hit.Chunk.ID < chunks[j].Hit.Chunk.ID
	})
}
