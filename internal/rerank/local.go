package rerank

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Signal weights for the local scorer. They sum to 1.0 so the combined score
// lands in [0,1] before clamping.
const (
	weightLexical   = 0.25
	weightProximity = 0.20
	weightBM25      = 0.20
	weightTitle     = 0.15
	weightPosition  = 0.05
	weightLength    = 0.05
	weightOriginal  = 0.10
)

const (
	// lengthPeakChars is the preferred candidate length; scores fall off
	// symmetrically on both sides.
	lengthPeakChars = 800

	// proximityWindow is the token distance within which co-occurring
	// query terms contribute to the proximity signal.
	proximityWindow = 50

	bm25K1 = 1.2
	bm25B  = 0.75
)

// LocalReranker scores candidates with six lexical-statistical signals. It
// is stateless and a pure function of its inputs, so identical calls yield
// identical output.
type LocalReranker struct{}

var _ Reranker = (*LocalReranker)(nil)

// NewLocalReranker creates the local scorer.
func NewLocalReranker() *LocalReranker {
	return &LocalReranker{}
}

// Rerank scores every candidate against the query and returns them ordered
// by descending score with 1-based ranks.
func (r *LocalReranker) Rerank(ctx context.Context, query string, docs []Document, topK int) (*Response, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &Response{Results: []Result{}, Method: MethodLocal}, nil
	}

	queryTerms := queryTerms(query)
	cjk := isCJKQuery(query)

	// BM25 treats the candidate set as its own corpus.
	bm := newBM25Stats(queryTerms, docs)

	results := make([]Result, len(docs))
	for i, doc := range docs {
		lexical := lexicalOverlap(query, doc.Text, cjk)
		title := math.Min(1.0, 2.0*lexicalOverlap(query, doc.Title, cjk))
		bm25 := bm.score(i)
		position := 1.0 / (1.0 + 0.1*float64(i))
		length := lengthScore(len(doc.Text))
		proximity := proximityScore(queryTerms, doc.Text)

		score := weightLexical*lexical +
			weightProximity*proximity +
			weightBM25*bm25 +
			weightTitle*title +
			weightPosition*position +
			weightLength*length +
			weightOriginal*clamp01(doc.OriginalScore)

		results[i] = Result{ID: doc.ID, Score: clamp01(score)}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	return &Response{
		Results:        results,
		ProcessingTime: time.Since(start),
		Method:         MethodLocal,
	}, nil
}

// Close is a no-op; the local scorer holds no resources.
func (r *LocalReranker) Close() error { return nil }

// --- Signals ---

// lexicalOverlap measures query coverage in text. CJK queries use
// character-set overlap since there are no word boundaries; other queries
// use word-substring overlap.
func lexicalOverlap(query, text string, cjk bool) float64 {
	if query == "" || text == "" {
		return 0
	}

	if cjk {
		chars := make(map[rune]struct{})
		total := 0
		for _, r := range query {
			if unicode.IsSpace(r) || unicode.IsPunct(r) {
				continue
			}
			if _, seen := chars[r]; !seen {
				chars[r] = struct{}{}
				total++
			}
		}
		if total == 0 {
			return 0
		}
		matched := 0
		for r := range chars {
			if strings.ContainsRune(text, r) {
				matched++
			}
		}
		return float64(matched) / float64(total)
	}

	lowerText := strings.ToLower(text)
	words := splitWords(query)
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

// lengthScore peaks at lengthPeakChars with symmetric linear falloff.
func lengthScore(length int) float64 {
	diff := math.Abs(float64(length - lengthPeakChars))
	score := 1.0 - diff/lengthPeakChars
	if score < 0 {
		return 0
	}
	return score
}

// proximityScore rewards distinct query terms co-occurring close together.
// For each term pair, the minimal token distance within the window scores
// inversely to that distance; pairs never co-occurring score zero.
func proximityScore(terms []string, text string) float64 {
	if len(terms) < 2 {
		return 0
	}

	tokens := splitWords(text)
	positions := make(map[string][]int, len(terms))
	for pos, tok := range tokens {
		for _, term := range terms {
			if tok == term || strings.Contains(tok, term) {
				positions[term] = append(positions[term], pos)
			}
		}
	}

	var sum float64
	pairs := 0
	for i := 0; i < len(terms); i++ {
		for j := i + 1; j < len(terms); j++ {
			pairs++
			a, b := positions[terms[i]], positions[terms[j]]
			if len(a) == 0 || len(b) == 0 {
				continue
			}
			if d := minDistance(a, b); d <= proximityWindow {
				sum += 1.0 - float64(d)/proximityWindow
			}
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

// minDistance returns the smallest absolute gap between two sorted position
// lists.
func minDistance(a, b []int) int {
	best := math.MaxInt
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		d := a[i] - b[j]
		if d < 0 {
			d = -d
		}
		if d < best {
			best = d
		}
		if a[i] < b[j] {
			i++
		} else {
			j++
		}
	}
	return best
}

// --- BM25 over the candidate set ---

type bm25Stats struct {
	terms     []string
	idf       map[string]float64
	tf        []map[string]int
	docLens   []int
	avgDocLen float64
	maxScore  float64
}

func newBM25Stats(terms []string, docs []Document) *bm25Stats {
	s := &bm25Stats{
		terms:   terms,
		idf:     make(map[string]float64, len(terms)),
		tf:      make([]map[string]int, len(docs)),
		docLens: make([]int, len(docs)),
	}

	var totalLen int
	for i, doc := range docs {
		tokens := splitWords(doc.Text)
		s.docLens[i] = len(tokens)
		totalLen += len(tokens)

		counts := make(map[string]int)
		for _, tok := range tokens {
			counts[tok]++
		}
		s.tf[i] = counts
	}
	if len(docs) > 0 {
		s.avgDocLen = float64(totalLen) / float64(len(docs))
	}

	n := float64(len(docs))
	for _, term := range terms {
		df := 0
		for i := range docs {
			if s.tf[i][term] > 0 {
				df++
			}
		}
		// Standard BM25 IDF with +1 smoothing to keep it positive.
		s.idf[term] = math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
	}

	for i := range docs {
		if raw := s.raw(i); raw > s.maxScore {
			s.maxScore = raw
		}
	}
	return s
}

func (s *bm25Stats) raw(i int) float64 {
	if s.avgDocLen == 0 {
		return 0
	}
	var score float64
	dl := float64(s.docLens[i])
	for _, term := range s.terms {
		tf := float64(s.tf[i][term])
		if tf == 0 {
			continue
		}
		score += s.idf[term] * (tf * (bm25K1 + 1)) / (tf + bm25K1*(1-bm25B+bm25B*dl/s.avgDocLen))
	}
	return score
}

// score normalizes by the best candidate so the signal lands in [0,1].
func (s *bm25Stats) score(i int) float64 {
	if s.maxScore == 0 {
		return 0
	}
	return s.raw(i) / s.maxScore
}

// --- Helpers ---

// queryTerms produces matchable terms: words for alphabetic queries,
// individual characters for CJK.
func queryTerms(query string) []string {
	if isCJKQuery(query) {
		var terms []string
		for _, r := range query {
			if unicode.IsSpace(r) || unicode.IsPunct(r) {
				continue
			}
			terms = append(terms, string(r))
		}
		return terms
	}
	return splitWords(query)
}

func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
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

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
