package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corpushq/corpus/internal/chunk"
	"github.com/corpushq/corpus/internal/embed"
	corpuserrors "github.com/corpushq/corpus/internal/errors"
	"github.com/corpushq/corpus/internal/rerank"
	"github.com/corpushq/corpus/internal/store"
)

// Config holds pipeline defaults applied when a Query leaves them unset.
type Config struct {
	MaxResults          int
	SimilarityThreshold float64
	VectorWeight        float64
	KeywordWeight       float64
	ContextWindowSize   int
	RerankTopK          int

	// PerDocumentCap and BackfillFloor drive the diversity stage.
	PerDocumentCap int
	BackfillFloor  float64

	// EnrichWorkers bounds concurrent neighbor-context lookups. Sized to
	// the store's connection pool.
	EnrichWorkers int
}

// DefaultConfig returns the standard pipeline configuration.
func DefaultConfig() Config {
	return Config{
		MaxResults:          5,
		SimilarityThreshold: 0.7,
		VectorWeight:        store.DefaultVectorWeight,
		KeywordWeight:       store.DefaultKeywordWeight,
		ContextWindowSize:   1,
		RerankTopK:          20,
		PerDocumentCap:      2,
		BackfillFloor:       0.8,
		EnrichWorkers:       4,
	}
}

// candidateFactor over-fetches raw hits so the diversity stage has real
// choices beyond MaxResults.
const candidateFactor = 3

// Orchestrator runs the retrieval pipeline. It holds no per-request state;
// concurrent Retrieve calls share only the underlying store pool.
type Orchestrator struct {
	store    *store.Store
	embedder embed.Embedder
	reranker rerank.Reranker
	cfg      Config
	logger   *slog.Logger
}

// New creates an orchestrator. A nil reranker disables the rerank stage
// regardless of Query.UseReranking.
func New(s *store.Store, embedder embed.Embedder, reranker rerank.Reranker, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultConfig().MaxResults
	}
	if cfg.EnrichWorkers <= 0 {
		cfg.EnrichWorkers = DefaultConfig().EnrichWorkers
	}
	return &Orchestrator{
		store:    s,
		embedder: embedder,
		reranker: reranker,
		cfg:      cfg,
		logger:   logger,
	}
}

// Retrieve runs the full pipeline for one query. Zero matching chunks is a
// valid empty result, not an error.
func (o *Orchestrator) Retrieve(ctx context.Context, q Query) (*Result, error) {
	start := time.Now()

	if strings.TrimSpace(q.Text) == "" {
		return nil, corpuserrors.New(corpuserrors.ErrCodeEmptyQuery,
			"query text must not be empty", nil).WithStage("validate")
	}
	if q.MaxResults < 0 {
		return nil, corpuserrors.Newf(corpuserrors.ErrCodeInvalidLimit, nil,
			"max results must be non-negative, got %d", q.MaxResults).WithStage("validate")
	}
	o.applyDefaults(&q)

	// Embedding failure is fatal for the request. There is no lexical-only
	// fallback at this layer.
	queryVec, err := o.embedQuery(ctx, q.Text)
	if err != nil {
		return nil, corpuserrors.New(corpuserrors.ErrCodeEmbeddingFailed,
			"failed to embed query", err).WithStage("embed")
	}

	hits, method, err := o.search(ctx, q, queryVec)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &Result{
			RankedChunks:  []*EnrichedChunk{},
			SearchMethod:  method,
			RetrievalTime: time.Since(start),
		}, nil
	}

	enriched := o.enrich(ctx, hits, q.ContextWindowSize)

	now := time.Now()
	for _, c := range enriched {
		c.RelevanceScore = relevanceScore(q.Text, c, now)
	}

	if q.UseReranking && o.reranker != nil {
		rerankMethod := o.rerankTop(ctx, q, enriched)
		if rerankMethod != "" {
			method = method + "+" + rerankMethod
		}
	}

	ranked := diversify(enriched, o.cfg.PerDocumentCap, o.cfg.BackfillFloor)
	if len(ranked) > q.MaxResults {
		ranked = ranked[:q.MaxResults]
	}

	contextText, totalTokens := assembleContext(ranked)

	result := &Result{
		RankedChunks:  ranked,
		ContextText:   contextText,
		TotalTokens:   totalTokens,
		RetrievalTime: time.Since(start),
		SearchMethod:  method,
	}

	o.logger.Debug("retrieval complete",
		slog.Int("hits", len(hits)),
		slog.Int("ranked", len(ranked)),
		slog.String("method", method),
		slog.Duration("elapsed", result.RetrievalTime))

	return result, nil
}

func (o *Orchestrator) applyDefaults(q *Query) {
	if q.MaxResults == 0 {
		q.MaxResults = o.cfg.MaxResults
	}
	if q.SimilarityThreshold == 0 {
		q.SimilarityThreshold = o.cfg.SimilarityThreshold
	}
	if q.ContextWindowSize == 0 {
		q.ContextWindowSize = o.cfg.ContextWindowSize
	}
	if q.RerankTopK <= 0 {
		q.RerankTopK = o.cfg.RerankTopK
	}
}

// embedQuery embeds the query text, padding to the store's dimension when
// the embedder's native size is smaller.
func (o *Orchestrator) embedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := o.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) < o.store.Dimensions() {
		return embed.Pad(vec, o.store.Dimensions())
	}
	return vec, nil
}

func (o *Orchestrator) search(ctx context.Context, q Query, queryVec []float32) ([]*store.SearchHit, string, error) {
	limit := q.MaxResults * candidateFactor
	if q.UseReranking && q.RerankTopK > limit {
		limit = q.RerankTopK
	}

	opts := store.SearchOptions{
		Limit:         limit,
		VectorWeight:  o.cfg.VectorWeight,
		KeywordWeight: o.cfg.KeywordWeight,
	}
	if q.SourceID != "" {
		opts.SourceIDs = []string{q.SourceID}
	}

	if q.UseHybridSearch {
		hits, err := o.store.HybridSearch(ctx, q.Text, queryVec, opts)
		if err != nil {
			return nil, "", corpuserrors.New(corpuserrors.ErrCodeStoreQuery,
				"hybrid search failed", err).WithStage("search")
		}
		return hits, MethodHybrid, nil
	}

	opts.Threshold = q.SimilarityThreshold
	hits, err := o.store.SimilaritySearch(ctx, queryVec, opts)
	if err != nil {
		return nil, "", corpuserrors.New(corpuserrors.ErrCodeStoreQuery,
			"similarity search failed", err).WithStage("search")
	}
	return hits, MethodVector, nil
}

// enrich derives neighbor context for each hit. Each document's chunk list
// is fetched once, concurrently across documents, bounded by the worker
// limit. Per-document failures degrade to no neighbor context.
func (o *Orchestrator) enrich(ctx context.Context, hits []*store.SearchHit, window int) []*EnrichedChunk {
	enriched := make([]*EnrichedChunk, len(hits))
	for i, hit := range hits {
		enriched[i] = &EnrichedChunk{Hit: hit}
	}
	if window <= 0 {
		return enriched
	}

	docIDs := make([]string, 0)
	seen := make(map[string]struct{})
	for _, hit := range hits {
		if _, ok := seen[hit.DocumentID]; !ok {
			seen[hit.DocumentID] = struct{}{}
			docIDs = append(docIDs, hit.DocumentID)
		}
	}

	var mu sync.Mutex
	chunksByDoc := make(map[string][]*store.Chunk, len(docIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.EnrichWorkers)
	for _, docID := range docIDs {
		g.Go(func() error {
			chunks, err := o.store.ChunksByDocument(gctx, docID)
			if err != nil {
				o.logger.Warn("neighbor context lookup failed",
					slog.String("document_id", docID),
					slog.String("error", err.Error()))
				return nil
			}
			mu.Lock()
			chunksByDoc[docID] = chunks
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, c := range enriched {
		chunks, ok := chunksByDoc[c.Hit.DocumentID]
		if !ok {
			continue
		}
		c.ContextBefore, c.ContextAfter = neighborContext(chunks, c.Hit.Chunk.Index, window)
	}
	return enriched
}

// neighborContext concatenates the text of chunks within window positions on
// each side of idx, in index order.
func neighborContext(chunks []*store.Chunk, idx, window int) (before, after string) {
	var beforeParts, afterParts []string
	for _, c := range chunks {
		switch {
		case c.Index >= idx-window && c.Index < idx:
			beforeParts = append(beforeParts, c.Content)
		case c.Index > idx && c.Index <= idx+window:
			afterParts = append(afterParts, c.Content)
		}
	}
	return strings.Join(beforeParts, "\n"), strings.Join(afterParts, "\n")
}

// rerankTop passes the best RerankTopK candidates through the reranker and
// folds the returned scores back in. Returns the rerank method, or "" when
// reranking was skipped or failed (failures never propagate).
func (o *Orchestrator) rerankTop(ctx context.Context, q Query, enriched []*EnrichedChunk) string {
	sortByRelevance(enriched)

	top := enriched
	if len(top) > q.RerankTopK {
		top = top[:q.RerankTopK]
	}

	docs := make([]rerank.Document, len(top))
	for i, c := range top {
		docs[i] = rerank.Document{
			ID:            c.Hit.Chunk.ID,
			Text:          c.Hit.Chunk.Content,
			Title:         c.Hit.DocumentTitle,
			Metadata:      c.Hit.Chunk.Metadata,
			OriginalScore: c.RelevanceScore,
		}
	}

	resp, err := o.reranker.Rerank(ctx, q.Text, docs, q.RerankTopK)
	if err != nil {
		o.logger.Warn("reranking failed, keeping relevance order",
			slog.String("error", err.Error()))
		return ""
	}

	scores := make(map[string]float64, len(resp.Results))
	for _, r := range resp.Results {
		scores[r.ID] = r.Score
	}
	for _, c := range top {
		if score, ok := scores[c.Hit.Chunk.ID]; ok {
			c.RelevanceScore = score
		}
	}
	return resp.Method
}

// assembleContext builds the final context string. A source marker is
// emitted only when the document title changes between consecutive chunks;
// neighbor context is wrapped in ellipses.
func assembleContext(ranked []*EnrichedChunk) (string, int) {
	if len(ranked) == 0 {
		return "", 0
	}

	var parts []string
	var prevTitle string
	totalTokens := 0

	for _, c := range ranked {
		var b strings.Builder

		if c.Hit.DocumentTitle != prevTitle {
			b.WriteString("[Source: " + c.Hit.DocumentTitle + "]\n")
			prevTitle = c.Hit.DocumentTitle
		}
		if c.ContextBefore != "" {
			b.WriteString("…" + c.ContextBefore + "\n")
		}
		b.WriteString(c.Hit.Chunk.Content)
		if c.ContextAfter != "" {
			b.WriteString("\n" + c.ContextAfter + "…")
		}

		parts = append(parts, b.String())

		tokens := c.Hit.Chunk.TokenCount
		if tokens == 0 {
			tokens = chunk.EstimateTokens(c.Hit.Chunk.Content)
		}
		totalTokens += tokens
	}

	return strings.Join(parts, "\n\n---\n\n"), totalTokens
}
