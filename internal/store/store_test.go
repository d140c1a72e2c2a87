package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModel = "static-hash-3"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Dimensions: 3, Model: testModel}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// seedCorpus creates one active source with one document and three chunks.
// c1 and c2 carry embeddings near the {1,0,0} axis, c3 is orthogonal.
func seedCorpus(t *testing.T, s *Store) (sourceID, docID string) {
	t.Helper()
	ctx := context.Background()

	src := &KnowledgeSource{ID: "src-1", Name: "docs", SourceType: SourceTypeDocument, Active: true}
	require.NoError(t, s.SaveSource(ctx, src))

	doc := &Document{ID: "doc-1", SourceID: "src-1", Title: "Guide", Content: "full text"}
	require.NoError(t, s.SaveDocument(ctx, doc))

	chunks := []*Chunk{
		{ID: "c1", DocumentID: "doc-1", Index: 0, Content: "alpha beta gamma", TokenCount: 3},
		{ID: "c2", DocumentID: "doc-1", Index: 1, Content: "alpha delta", TokenCount: 2},
		{ID: "c3", DocumentID: "doc-1", Index: 2, Content: "unrelated topic entirely", TokenCount: 3},
	}
	require.NoError(t, s.SaveChunks(ctx, chunks))

	require.NoError(t, s.SetChunkEmbedding(ctx, "c1", []float32{1, 0, 0}, testModel))
	require.NoError(t, s.SetChunkEmbedding(ctx, "c2", []float32{0.9, 0.4, 0}, testModel))
	require.NoError(t, s.SetChunkEmbedding(ctx, "c3", []float32{0, 1, 0}, testModel))

	return "src-1", "doc-1"
}

func TestStore_SourceCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	src := &KnowledgeSource{ID: "s1", Name: "faq", SourceType: SourceTypeFAQ, Active: true}
	require.NoError(t, s.SaveSource(ctx, src))
	assert.False(t, src.CreatedAt.IsZero())

	got, err := s.GetSource(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "faq", got.Name)
	assert.True(t, got.Active)

	byName, err := s.GetSourceByName(ctx, "faq")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, "s1", byName.ID)

	missing, err := s.GetSourceByName(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.SetSourceActive(ctx, "s1", false))
	got, err = s.GetSource(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.Active)

	list, err := s.ListSources(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_ChunksByDocument_OrderedByIndex(t *testing.T) {
	s := openTestStore(t)
	_, docID := seedCorpus(t, s)

	chunks, err := s.ChunksByDocument(context.Background(), docID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestStore_SetChunkEmbedding_MarksEmbedded(t *testing.T) {
	s := openTestStore(t)
	seedCorpus(t, s)
	ctx := context.Background()

	chunk, err := s.GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, chunk.Embedded)

	vec, err := s.Meta().GetEmbedding(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
}

func TestStore_SetChunkEmbedding_WrongDimension(t *testing.T) {
	s := openTestStore(t)
	seedCorpus(t, s)

	err := s.SetChunkEmbedding(context.Background(), "c1", []float32{1, 0}, testModel)
	assert.Error(t, err)
}

func TestStore_SetChunkEmbedding_EmbedOnce(t *testing.T) {
	s := openTestStore(t)
	seedCorpus(t, s)
	ctx := context.Background()

	err := s.SetChunkEmbedding(ctx, "c1", []float32{0, 0, 1}, testModel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already embedded")

	// The original vector must survive the rejected overwrite.
	vec, err := s.Meta().GetEmbedding(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)
}

func TestStore_SetChunkEmbedding_UnknownChunk(t *testing.T) {
	s := openTestStore(t)
	seedCorpus(t, s)

	err := s.SetChunkEmbedding(context.Background(), "no-such-chunk", []float32{1, 0, 0}, testModel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStore_SimilaritySearch_OrderingAndThreshold(t *testing.T) {
	s := openTestStore(t)
	seedCorpus(t, s)

	hits, err := s.SimilaritySearch(context.Background(), []float32{1, 0, 0}, SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "c1", hits[0].Chunk.ID)
	assert.Equal(t, "c2", hits[1].Chunk.ID)
	assert.Equal(t, "c3", hits[2].Chunk.ID)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score,
			"scores must be non-increasing")
	}
	assert.Equal(t, "Guide", hits[0].DocumentTitle)
	assert.Equal(t, "src-1", hits[0].SourceID)

	// c3 sits at similarity 0.5 against the query axis, below threshold.
	filtered, err := s.SimilaritySearch(context.Background(), []float32{1, 0, 0},
		SearchOptions{Limit: 10, Threshold: 0.7})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	for _, h := range filtered {
		assert.GreaterOrEqual(t, h.Score, 0.7)
	}
}

func TestStore_SimilaritySearch_RespectsLimit(t *testing.T) {
	s := openTestStore(t)
	seedCorpus(t, s)

	hits, err := s.SimilaritySearch(context.Background(), []float32{1, 0, 0}, SearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].Chunk.ID)
}

func TestStore_SimilaritySearch_ScopedToSource(t *testing.T) {
	s := openTestStore(t)
	seedCorpus(t, s)
	ctx := context.Background()

	require.NoError(t, s.SaveSource(ctx, &KnowledgeSource{
		ID: "src-2", Name: "other", SourceType: SourceTypeWeb, Active: true,
	}))
	require.NoError(t, s.SaveDocument(ctx, &Document{ID: "doc-2", SourceID: "src-2", Title: "Other"}))
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		{ID: "o1", DocumentID: "doc-2", Index: 0, Content: "alpha beta", TokenCount: 2},
	}))
	require.NoError(t, s.SetChunkEmbedding(ctx, "o1", []float32{1, 0, 0}, testModel))

	hits, err := s.SimilaritySearch(ctx, []float32{1, 0, 0},
		SearchOptions{Limit: 10, SourceIDs: []string{"src-2"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "o1", hits[0].Chunk.ID)
}

func TestStore_HybridSearch_BlendsLegs(t *testing.T) {
	s := openTestStore(t)
	seedCorpus(t, s)

	// c1 matches both legs strongly; c3 matches neither leg well.
	hits, err := s.HybridSearch(context.Background(), "alpha beta", []float32{1, 0, 0},
		SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	assert.Equal(t, "c1", hits[0].Chunk.ID)
	assert.Positive(t, hits[0].VectorScore)
	assert.Positive(t, hits[0].KeywordScore)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestStore_HybridSearch_NoThresholdFiltering(t *testing.T) {
	s := openTestStore(t)
	seedCorpus(t, s)

	// Even with a high threshold set, hybrid returns up to limit rows.
	hits, err := s.HybridSearch(context.Background(), "alpha", []float32{1, 0, 0},
		SearchOptions{Limit: 10, Threshold: 0.99})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(hits), 2)
}

func TestStore_HybridSearch_UnembeddedChunkMatchesKeywordLeg(t *testing.T) {
	s := openTestStore(t)
	seedCorpus(t, s)
	ctx := context.Background()

	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		{ID: "c4", DocumentID: "doc-1", Index: 3, Content: "zephyr quokka xylophone", TokenCount: 3},
	}))

	hits, err := s.HybridSearch(ctx, "zephyr quokka", []float32{1, 0, 0}, SearchOptions{Limit: 10})
	require.NoError(t, err)

	var found *SearchHit
	for _, h := range hits {
		if h.Chunk.ID == "c4" {
			found = h
		}
	}
	require.NotNil(t, found, "keyword-only chunk must still surface")
	assert.Zero(t, found.VectorScore)
	assert.Positive(t, found.KeywordScore)
}

func TestStore_HybridSearch_ExcludesInactiveSources(t *testing.T) {
	s := openTestStore(t)
	sourceID, _ := seedCorpus(t, s)
	ctx := context.Background()

	require.NoError(t, s.SetSourceActive(ctx, sourceID, false))

	hits, err := s.HybridSearch(ctx, "alpha beta", []float32{1, 0, 0}, SearchOptions{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestStore_DeleteDocument_PurgesAllIndexes(t *testing.T) {
	s := openTestStore(t)
	_, docID := seedCorpus(t, s)
	ctx := context.Background()

	require.NoError(t, s.DeleteDocument(ctx, docID))

	hits, err := s.HybridSearch(ctx, "alpha beta", []float32{1, 0, 0}, SearchOptions{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, hits)

	chunk, err := s.GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, chunk)
}

func TestStore_Stats(t *testing.T) {
	s := openTestStore(t)
	seedCorpus(t, s)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Sources)
	assert.Equal(t, 1, stats.ActiveSources)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 3, stats.Chunks)
	assert.Equal(t, 3, stats.EmbeddedChunks)
}

func TestOpen_DimensionPinRejectsMismatch(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(ctx, Config{DataDir: dir, Dimensions: 3, Model: testModel}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{DataDir: dir, Dimensions: 4, Model: testModel}, nil)
	assert.Error(t, err)
}

func TestOpen_PersistentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(ctx, Config{DataDir: dir, Dimensions: 3, Model: testModel}, nil)
	require.NoError(t, err)
	seedCorpus(t, s)
	require.NoError(t, s.Save())
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, Config{DataDir: dir, Dimensions: 3, Model: testModel}, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	hits, err := reopened.SimilaritySearch(ctx, []float32{1, 0, 0}, SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "c1", hits[0].Chunk.ID)
}
