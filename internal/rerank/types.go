// Package rerank provides second-pass rescoring of search candidates: a
// local multi-signal scorer that is always available, and a remote neural
// reranker that transparently falls back to the local scorer on failure.
package rerank

import (
	"context"
	"time"
)

// Method identifies which scorer produced a response.
const (
	MethodLocal         = "local"
	MethodRemote        = "remote"
	MethodLocalFallback = "local-fallback"
)

// Document is a rerank candidate.
type Document struct {
	ID       string
	Text     string
	Title    string
	Metadata map[string]string

	// OriginalScore is the upstream search score, blended into the local
	// scorer's weighted sum.
	OriginalScore float64
}

// Result is a single reranked candidate. Rank is 1-based, assigned after
// sorting by score descending.
type Result struct {
	ID    string
	Score float64
	Rank  int
}

// Response is the outcome of a rerank call.
type Response struct {
	Results        []Result
	ProcessingTime time.Duration
	Method         string
}

// Reranker scores and reorders candidates by relevance to a query.
type Reranker interface {
	// Rerank returns candidates ordered by descending relevance. topK <= 0
	// returns all candidates.
	Rerank(ctx context.Context, query string, docs []Document, topK int) (*Response, error)
	Close() error
}
