// Package store provides persistence for documents, chunks, and knowledge
// sources (SQLite), keyword search (FTS5 or Bleve), and vector search (HNSW).
package store

import (
	"context"
	"fmt"
	"time"
)

// SourceType classifies where a knowledge source's content comes from.
type SourceType string

const (
	SourceTypeDocument SourceType = "document"
	SourceTypeFAQ      SourceType = "faq"
	SourceTypeManual   SourceType = "manual"
	SourceTypeWeb      SourceType = "web"
)

// KnowledgeSource is a named collection of documents. Inactive sources are
// excluded from search.
type KnowledgeSource struct {
	ID          string
	Name        string
	Description string
	SourceType  SourceType
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Document is an ingested document. Content is retained so chunks can be
// re-derived when chunking parameters change.
type Document struct {
	ID        string
	SourceID  string
	Title     string
	Content   string
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is a retrievable unit of a document. Index is the 0-based position
// within the parent document. Embedded reports whether a vector has been
// stored for it; unembedded chunks never match vector search.
type Chunk struct {
	ID         string
	DocumentID string
	Index      int
	Content    string
	TokenCount int
	Metadata   map[string]string
	Embedded   bool
	CreatedAt  time.Time
}

// SearchHit is a chunk returned by search, annotated with scores and the
// parent document fields needed for ranking.
type SearchHit struct {
	Chunk         *Chunk
	DocumentID    string
	DocumentTitle string
	SourceID      string

	// Score is the combined hybrid score in [0,1].
	Score float64
	// VectorScore is the cosine similarity leg in [0,1].
	VectorScore float64
	// KeywordScore is the normalized lexical leg in [0,1].
	KeywordScore float64

	// DocumentCreatedAt supports recency scoring without a second lookup.
	DocumentCreatedAt time.Time
}

// SearchOptions control hybrid and similarity search.
type SearchOptions struct {
	// Limit caps the number of hits returned. <=0 uses DefaultSearchLimit.
	Limit int

	// SourceIDs restricts search to the given knowledge sources. Empty
	// means all active sources.
	SourceIDs []string

	// Threshold filters hits below the given score after retrieval.
	Threshold float64

	// VectorWeight and KeywordWeight blend the two legs. They should sum
	// to 1; zero values fall back to the defaults.
	VectorWeight  float64
	KeywordWeight float64
}

// DefaultSearchLimit bounds searches that pass no explicit limit.
const DefaultSearchLimit = 5

// Default hybrid blend.
const (
	DefaultVectorWeight  = 0.7
	DefaultKeywordWeight = 0.3
)

// scopedOverFetchFactor widens vector search when filtering by source, since
// the HNSW graph cannot pre-filter and scoped hits may rank below unscoped
// ones.
const scopedOverFetchFactor = 4

// KeywordDoc is a unit indexed for keyword search.
type KeywordDoc struct {
	ID      string
	Content string
}

// KeywordResult is a single keyword search result. Score is backend-native
// (BM25-ish, unbounded); callers normalize per result set.
type KeywordResult struct {
	ID    string
	Score float64
}

// KeywordIndex provides full-text keyword search. Implementations: SQLite
// FTS5 (default) and Bleve.
type KeywordIndex interface {
	Index(ctx context.Context, docs []*KeywordDoc) error
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)
	Delete(ctx context.Context, ids []string) error
	Count() (int, error)
	Close() error
}

// VectorResult is a single vector search result.
type VectorResult struct {
	ID       string
	Distance float32 // cosine distance, 0-2
	Score    float32 // similarity, 0-1
}

// VectorIndexConfig configures the HNSW vector index.
type VectorIndexConfig struct {
	Dimensions int
	M          int
	EfSearch   int
}

// DefaultVectorIndexConfig returns sensible HNSW defaults.
func DefaultVectorIndexConfig(dimensions int) VectorIndexConfig {
	return VectorIndexConfig{
		Dimensions: dimensions,
		M:          16,
		EfSearch:   64,
	}
}

// ErrDimensionMismatch indicates a vector of the wrong dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// Stats summarizes store contents.
type Stats struct {
	Sources        int
	ActiveSources  int
	Documents      int
	Chunks         int
	EmbeddedChunks int
}
