package store

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	corpuserrors "github.com/corpushq/corpus/internal/errors"
)

// Config configures the combined store.
type Config struct {
	// DataDir holds corpus.db, the keyword index, and vectors.hnsw. Empty
	// means fully in-memory (testing).
	DataDir string

	// KeywordBackend selects "fts5" (default) or "bleve".
	KeywordBackend string

	// Dimensions is the embedding dimension the index is built for.
	Dimensions int

	// Model is the embedding model name, pinned on first open.
	Model string

	MaxConnections int
	HNSWM          int
	HNSWEfSearch   int
}

// Store combines the metadata database, keyword index, and vector index
// behind document, source, and search operations.
type Store struct {
	meta    *Metadata
	keyword KeywordIndex
	vector  *VectorIndex
	logger  *slog.Logger

	dims       int
	vectorPath string
}

// Open opens or creates a store in cfg.DataDir. The vector index is loaded
// from its snapshot when present, otherwise rebuilt from stored embeddings.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dimensions <= 0 {
		return nil, corpuserrors.Newf(corpuserrors.ErrCodeConfigInvalid, nil,
			"store requires positive embedding dimensions, got %d", cfg.Dimensions)
	}

	var metaPath, keywordBase, vectorPath string
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, corpuserrors.New(corpuserrors.ErrCodeStoreUnavailable,
				"failed to create data directory", err)
		}
		metaPath = filepath.Join(cfg.DataDir, "corpus.db")
		keywordBase = filepath.Join(cfg.DataDir, "keyword")
		vectorPath = filepath.Join(cfg.DataDir, "vectors.hnsw")
	}

	meta, err := NewMetadata(metaPath, cfg.MaxConnections)
	if err != nil {
		return nil, corpuserrors.New(corpuserrors.ErrCodeStoreUnavailable,
			"failed to open metadata database", err)
	}

	if err := checkDimensionPin(ctx, meta, cfg); err != nil {
		_ = meta.Close()
		return nil, err
	}

	keyword, err := NewKeywordIndex(keywordBase, cfg.KeywordBackend)
	if err != nil {
		_ = meta.Close()
		return nil, corpuserrors.New(corpuserrors.ErrCodeStoreUnavailable,
			"failed to open keyword index", err)
	}

	vecCfg := DefaultVectorIndexConfig(cfg.Dimensions)
	if cfg.HNSWM > 0 {
		vecCfg.M = cfg.HNSWM
	}
	if cfg.HNSWEfSearch > 0 {
		vecCfg.EfSearch = cfg.HNSWEfSearch
	}
	vector, err := NewVectorIndex(vecCfg)
	if err != nil {
		_ = keyword.Close()
		_ = meta.Close()
		return nil, corpuserrors.New(corpuserrors.ErrCodeStoreUnavailable,
			"failed to create vector index", err)
	}

	s := &Store{
		meta:       meta,
		keyword:    keyword,
		vector:     vector,
		logger:     logger,
		dims:       cfg.Dimensions,
		vectorPath: vectorPath,
	}

	if err := s.restoreVectors(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// checkDimensionPin verifies the configured embedder matches the index. The
// dimension and model are recorded on first open; a later mismatch means the
// index must be rebuilt, not silently mixed.
func checkDimensionPin(ctx context.Context, meta *Metadata, cfg Config) error {
	pinned, err := meta.GetState(ctx, StateKeyIndexDimension)
	if err != nil {
		return err
	}
	if pinned == "" {
		if err := meta.SetState(ctx, StateKeyIndexDimension, strconv.Itoa(cfg.Dimensions)); err != nil {
			return err
		}
		if cfg.Model != "" {
			return meta.SetState(ctx, StateKeyIndexModel, cfg.Model)
		}
		return nil
	}

	dims, err := strconv.Atoi(pinned)
	if err != nil {
		return fmt.Errorf("corrupt index dimension state %q: %w", pinned, err)
	}
	if dims != cfg.Dimensions {
		return corpuserrors.Newf(corpuserrors.ErrCodeDimensionMismatch, nil,
			"index was built with %d dimensions, embedder produces %d", dims, cfg.Dimensions).
			WithSuggestion("reingest with the current embedder or restore the original one")
	}
	return nil
}

// restoreVectors loads the HNSW snapshot, falling back to a rebuild from the
// embeddings table when the snapshot is missing or unreadable.
func (s *Store) restoreVectors(ctx context.Context) error {
	if s.vectorPath != "" {
		if _, err := os.Stat(s.vectorPath); err == nil {
			if err := s.vector.Load(s.vectorPath); err == nil {
				return nil
			}
			s.logger.Warn("vector snapshot unreadable, rebuilding from embeddings",
				slog.String("path", s.vectorPath))
		}
	}

	embeddings, err := s.meta.AllEmbeddings(ctx)
	if err != nil {
		return corpuserrors.New(corpuserrors.ErrCodeStoreUnavailable,
			"failed to load embeddings", err)
	}
	if len(embeddings) == 0 {
		return nil
	}

	ids := make([]string, 0, len(embeddings))
	vectors := make([][]float32, 0, len(embeddings))
	for id, vec := range embeddings {
		if len(vec) != s.dims {
			s.logger.Warn("skipping embedding with wrong dimension",
				slog.String("chunk_id", id), slog.Int("dims", len(vec)))
			continue
		}
		ids = append(ids, id)
		vectors = append(vectors, vec)
	}

	if err := s.vector.Add(ctx, ids, vectors); err != nil {
		return corpuserrors.New(corpuserrors.ErrCodeStoreUnavailable,
			"failed to rebuild vector index", err)
	}

	s.logger.Info("vector index rebuilt from embeddings", slog.Int("count", len(ids)))
	return nil
}

// Meta exposes the metadata layer for operations that need it directly.
func (s *Store) Meta() *Metadata { return s.meta }

// Dimensions returns the embedding dimension the store was opened with.
func (s *Store) Dimensions() int { return s.dims }

// --- Sources ---

func (s *Store) SaveSource(ctx context.Context, src *KnowledgeSource) error {
	return s.meta.SaveSource(ctx, src)
}

func (s *Store) GetSource(ctx context.Context, id string) (*KnowledgeSource, error) {
	return s.meta.GetSource(ctx, id)
}

func (s *Store) GetSourceByName(ctx context.Context, name string) (*KnowledgeSource, error) {
	return s.meta.GetSourceByName(ctx, name)
}

func (s *Store) ListSources(ctx context.Context) ([]*KnowledgeSource, error) {
	return s.meta.ListSources(ctx)
}

func (s *Store) SetSourceActive(ctx context.Context, id string, active bool) error {
	return s.meta.SetSourceActive(ctx, id, active)
}

// DeleteSource removes a source, its documents, and all index entries.
func (s *Store) DeleteSource(ctx context.Context, id string) error {
	docs, err := s.meta.ListDocuments(ctx, id)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.DeleteDocument(ctx, doc.ID); err != nil {
			return err
		}
	}
	return s.meta.DeleteSource(ctx, id)
}

// --- Documents and chunks ---

// SaveDocument persists a document's metadata and content.
func (s *Store) SaveDocument(ctx context.Context, doc *Document) error {
	return s.meta.SaveDocument(ctx, doc)
}

func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	return s.meta.GetDocument(ctx, id)
}

func (s *Store) ListDocuments(ctx context.Context, sourceID string) ([]*Document, error) {
	return s.meta.ListDocuments(ctx, sourceID)
}

// DeleteDocument removes a document and purges its chunks from both indexes.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	chunkIDs, err := s.meta.ChunkIDsByDocument(ctx, id)
	if err != nil {
		return err
	}
	if len(chunkIDs) > 0 {
		if err := s.keyword.Delete(ctx, chunkIDs); err != nil {
			return fmt.Errorf("failed to purge keyword index: %w", err)
		}
		if err := s.vector.Delete(ctx, chunkIDs); err != nil {
			return fmt.Errorf("failed to purge vector index: %w", err)
		}
	}
	return s.meta.DeleteDocument(ctx, id)
}

// SaveChunks persists chunks and indexes them for keyword search. Vector
// entries are added separately as embeddings arrive.
func (s *Store) SaveChunks(ctx context.Context, chunks []*Chunk) error {
	if err := s.meta.SaveChunks(ctx, chunks); err != nil {
		return corpuserrors.New(corpuserrors.ErrCodeStoreQuery, "failed to save chunks", err)
	}

	docs := make([]*KeywordDoc, len(chunks))
	for i, c := range chunks {
		docs[i] = &KeywordDoc{ID: c.ID, Content: c.Content}
	}
	if err := s.keyword.Index(ctx, docs); err != nil {
		return corpuserrors.New(corpuserrors.ErrCodeStoreQuery, "failed to index chunks", err)
	}
	return nil
}

func (s *Store) GetChunk(ctx context.Context, id string) (*Chunk, error) {
	return s.meta.GetChunk(ctx, id)
}

// ChunksByDocument returns a document's chunks in order, used for neighbor
// context assembly.
func (s *Store) ChunksByDocument(ctx context.Context, documentID string) ([]*Chunk, error) {
	return s.meta.ChunksByDocument(ctx, documentID)
}

// SetChunkEmbedding stores a chunk's vector in both the embeddings table and
// the vector index. The vector must match the store's dimension exactly;
// callers pad smaller vectors before storing. A chunk's embedding transitions
// absent to populated exactly once; re-embedding an embedded chunk is an
// error. Re-chunk via a fresh document to change vectors.
func (s *Store) SetChunkEmbedding(ctx context.Context, chunkID string, vector []float32, model string) error {
	if len(vector) != s.dims {
		return corpuserrors.New(corpuserrors.ErrCodeDimensionMismatch,
			"embedding has wrong dimension",
			ErrDimensionMismatch{Expected: s.dims, Got: len(vector)})
	}
	chunk, err := s.meta.GetChunk(ctx, chunkID)
	if err != nil {
		return corpuserrors.New(corpuserrors.ErrCodeStoreQuery, "failed to load chunk", err)
	}
	if chunk == nil {
		return corpuserrors.Newf(corpuserrors.ErrCodeStoreQuery, nil,
			"chunk %s not found", chunkID)
	}
	if chunk.Embedded {
		return corpuserrors.Newf(corpuserrors.ErrCodeStoreQuery, nil,
			"chunk %s is already embedded", chunkID)
	}
	if err := s.meta.SetChunkEmbedding(ctx, chunkID, vector, model); err != nil {
		return corpuserrors.New(corpuserrors.ErrCodeStoreQuery, "failed to store embedding", err)
	}
	if err := s.vector.Add(ctx, []string{chunkID}, [][]float32{vector}); err != nil {
		return corpuserrors.New(corpuserrors.ErrCodeStoreQuery, "failed to index embedding", err)
	}
	return nil
}

// --- Search ---

// SimilaritySearch returns chunks ranked by cosine similarity to the query
// vector. Hits below opts.Threshold are filtered after retrieval; chunks
// without embeddings never match.
func (s *Store) SimilaritySearch(ctx context.Context, queryVec []float32, opts SearchOptions) ([]*SearchHit, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	k := limit
	if len(opts.SourceIDs) > 0 {
		// The graph cannot pre-filter by source, widen and filter after.
		k *= scopedOverFetchFactor
	}

	results, err := s.vector.Search(ctx, queryVec, k)
	if err != nil {
		return nil, corpuserrors.New(corpuserrors.ErrCodeStoreQuery, "vector search failed", err)
	}
	if len(results) == 0 {
		return []*SearchHit{}, nil
	}

	ids := make([]string, len(results))
	scores := make(map[string]float64, len(results))
	for i, r := range results {
		ids[i] = r.ID
		scores[r.ID] = float64(r.Score)
	}

	hits, err := s.meta.HitsByChunkIDs(ctx, ids, opts.SourceIDs)
	if err != nil {
		return nil, corpuserrors.New(corpuserrors.ErrCodeStoreQuery, "failed to hydrate hits", err)
	}

	filtered := make([]*SearchHit, 0, len(hits))
	for _, hit := range hits {
		hit.VectorScore = scores[hit.Chunk.ID]
		hit.Score = hit.VectorScore
		if hit.Score < opts.Threshold {
			continue
		}
		filtered = append(filtered, hit)
	}

	sortHits(filtered)
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// HybridSearch blends vector similarity and keyword relevance. The two legs
// run concurrently; a failed leg degrades to the other rather than failing
// the search. Hits missing from a leg get that leg's score computed directly:
// cosine from the stored embedding, token overlap for the lexical side.
func (s *Store) HybridSearch(ctx context.Context, query string, queryVec []float32, opts SearchOptions) ([]*SearchHit, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	vw := opts.VectorWeight
	kw := opts.KeywordWeight
	if vw == 0 && kw == 0 {
		vw, kw = DefaultVectorWeight, DefaultKeywordWeight
	}

	candidates := limit * scopedOverFetchFactor

	var vecResults []*VectorResult
	var kwResults []*KeywordResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.vector.Search(gctx, queryVec, candidates)
		if err != nil {
			s.logger.Warn("vector leg failed, degrading to keyword only",
				slog.String("error", err.Error()))
			return nil
		}
		vecResults = r
		return nil
	})
	g.Go(func() error {
		r, err := s.keyword.Search(gctx, query, candidates)
		if err != nil {
			s.logger.Warn("keyword leg failed, degrading to vector only",
				slog.String("error", err.Error()))
			return nil
		}
		kwResults = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vecScores := make(map[string]float64, len(vecResults))
	for _, r := range vecResults {
		vecScores[r.ID] = float64(r.Score)
	}

	// Normalize the keyword leg to [0,1] by the best score in the set.
	kwScores := make(map[string]float64, len(kwResults))
	var maxKw float64
	for _, r := range kwResults {
		if r.Score > maxKw {
			maxKw = r.Score
		}
	}
	for _, r := range kwResults {
		if maxKw > 0 {
			kwScores[r.ID] = r.Score / maxKw
		}
	}

	union := make([]string, 0, len(vecScores)+len(kwScores))
	seen := make(map[string]struct{}, len(vecScores)+len(kwScores))
	for _, r := range vecResults {
		if _, ok := seen[r.ID]; !ok {
			seen[r.ID] = struct{}{}
			union = append(union, r.ID)
		}
	}
	for _, r := range kwResults {
		if _, ok := seen[r.ID]; !ok {
			seen[r.ID] = struct{}{}
			union = append(union, r.ID)
		}
	}
	if len(union) == 0 {
		return []*SearchHit{}, nil
	}

	hits, err := s.meta.HitsByChunkIDs(ctx, union, opts.SourceIDs)
	if err != nil {
		return nil, corpuserrors.New(corpuserrors.ErrCodeStoreQuery, "failed to hydrate hits", err)
	}

	filtered := make([]*SearchHit, 0, len(hits))
	for _, hit := range hits {
		vecSim, inVec := vecScores[hit.Chunk.ID]
		if !inVec {
			vecSim = s.similarityFromStored(ctx, hit.Chunk, queryVec)
		}
		lex, inKw := kwScores[hit.Chunk.ID]
		if !inKw {
			lex = TokenOverlap(query, hit.Chunk.Content)
		}

		hit.VectorScore = vecSim
		hit.KeywordScore = lex
		// Hybrid search does no threshold filtering, it always returns up
		// to limit rows.
		hit.Score = vw*vecSim + kw*lex
		filtered = append(filtered, hit)
	}

	sortHits(filtered)
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// similarityFromStored computes cosine similarity against the stored
// embedding for hits the vector leg did not surface. Unembedded chunks score
// zero.
func (s *Store) similarityFromStored(ctx context.Context, chunk *Chunk, queryVec []float32) float64 {
	if !chunk.Embedded {
		return 0
	}
	stored, err := s.meta.GetEmbedding(ctx, chunk.ID)
	if err != nil || len(stored) != len(queryVec) {
		return 0
	}
	return cosineSimilarity(queryVec, stored)
}

// cosineSimilarity maps cosine into [0,1], matching the vector index's
// 1 - distance/2 scoring.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (1 + cos) / 2
}

// sortHits orders by combined score descending, chunk ID ascending for
// deterministic ties.
func sortHits(hits []*SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})
}

// --- Stats and lifecycle ---

// Stats returns aggregate store statistics.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	return s.meta.Stats(ctx)
}

// Save persists the vector index snapshot. The SQLite-backed components
// persist continuously.
func (s *Store) Save() error {
	if s.vectorPath == "" {
		return nil
	}
	return s.vector.Save(s.vectorPath)
}

// Close saves the vector snapshot and closes all components.
func (s *Store) Close() error {
	var firstErr error
	if err := s.Save(); err != nil {
		s.logger.Warn("failed to save vector snapshot", slog.String("error", err.Error()))
		firstErr = err
	}
	if err := s.vector.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.keyword.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.meta.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
