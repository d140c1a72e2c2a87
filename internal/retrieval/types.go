// Package retrieval implements the search pipeline: embed the query, search
// the store, enrich hits with neighboring chunks, score, optionally rerank,
// apply document diversity, and assemble the final context string.
package retrieval

import (
	"time"

	"github.com/corpushq/corpus/internal/store"
)

// Search method identifiers reported in results.
const (
	MethodVector = "vector"
	MethodHybrid = "hybrid"
)

// Query is a single retrieval request.
type Query struct {
	Text string

	// SourceID scopes search to one knowledge source. Empty searches all
	// active sources.
	SourceID string

	// MaxResults caps the ranked result count. <=0 uses the configured
	// default.
	MaxResults int

	// SimilarityThreshold filters pure-vector hits below this score.
	// Ignored for hybrid search.
	SimilarityThreshold float64

	// UseHybridSearch blends vector and keyword legs instead of
	// vector-only search.
	UseHybridSearch bool

	// ContextWindowSize is the number of neighboring chunks fetched on
	// each side of a hit. <=0 disables neighbor context.
	ContextWindowSize int

	// UseReranking passes the top candidates through the reranker.
	UseReranking bool

	// RerankTopK is how many candidates to rerank. <=0 uses the default.
	RerankTopK int
}

// EnrichedChunk is a search hit annotated with relevance and neighbor
// context. Empty context strings mean no neighbors, not empty neighbors.
type EnrichedChunk struct {
	Hit            *store.SearchHit
	RelevanceScore float64
	ContextBefore  string
	ContextAfter   string
}

// Result is the orchestrator's output.
type Result struct {
	RankedChunks  []*EnrichedChunk
	ContextText   string
	TotalTokens   int
	RetrievalTime time.Duration

	// SearchMethod is "vector" or "hybrid", suffixed with the rerank
	// method when reranking ran (e.g. "hybrid+local-fallback").
	SearchMethod string
}
