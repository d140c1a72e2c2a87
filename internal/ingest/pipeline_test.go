package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpushq/corpus/internal/embed"
	corpuserrors "github.com/corpushq/corpus/internal/errors"
	"github.com/corpushq/corpus/internal/store"
)

const testDims = 32

func newTestPipeline(t *testing.T, embedder embed.Embedder, cfg Config) (*Pipeline, *store.Store) {
	t.Helper()

	s, err := store.Open(context.Background(), store.Config{
		Dimensions: testDims,
		Model:      embedder.ModelName(),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return New(s, embedder, cfg, nil), s
}

func seedSource(t *testing.T, s *store.Store) string {
	t.Helper()
	src := &store.KnowledgeSource{ID: "src-1", Name: "docs", SourceType: store.SourceTypeDocument, Active: true}
	require.NoError(t, s.SaveSource(context.Background(), src))
	return src.ID
}

// failingEmbedder reports valid metadata but fails every embedding call.
type failingEmbedder struct {
	inner *embed.StaticEmbedder
}

func (f *failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("gateway unavailable")
}

func (f *failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("gateway unavailable")
}

func (f *failingEmbedder) Dimensions() int { return f.inner.Dimensions() }

func (f *failingEmbedder) ModelName() string { return f.inner.ModelName() }

func (f *failingEmbedder) Available(context.Context) bool { return false }

func (f *failingEmbedder) Close() error { return nil }

var _ embed.Embedder = (*failingEmbedder)(nil)

func TestPipeline_Ingest_ChunksAndEmbeds(t *testing.T) {
	embedder := embed.NewStaticEmbedder(testDims)
	p, s := newTestPipeline(t, embedder, Config{ChunkSize: 10, ChunkOverlap: 0})
	srcID := seedSource(t, s)
	ctx := context.Background()

	content := "Cats are mammals. Dogs are mammals too. Parrots can mimic human speech. " +
		"Goldfish have a longer memory than folklore suggests."

	report, err := p.Ingest(ctx, Request{
		SourceID: srcID,
		Title:    "Pets",
		Content:  content,
		Metadata: map[string]string{"lang": "en"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, report.DocumentID)
	assert.Greater(t, report.Chunks, 1)
	assert.Equal(t, report.Chunks, report.Embedded)
	assert.Zero(t, report.Skipped)

	doc, err := s.GetDocument(ctx, report.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Pets", doc.Title)

	chunks, err := s.ChunksByDocument(ctx, report.DocumentID)
	require.NoError(t, err)
	require.Len(t, chunks, report.Chunks)
	var joined strings.Builder
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.True(t, c.Embedded, "chunk %s should be embedded", c.ID)
		joined.WriteString(c.Content)
		joined.WriteString(" ")
	}
	assert.Contains(t, joined.String(), "Parrots can mimic")

	queryVec, err := embedder.Embed(ctx, "Dogs are mammals too.")
	require.NoError(t, err)
	hits, err := s.HybridSearch(ctx, "dogs mammals", queryVec, store.SearchOptions{Limit: 3})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Chunk.Content, "mammals")
}

func TestPipeline_Ingest_EmbedderFailureKeepsChunks(t *testing.T) {
	embedder := &failingEmbedder{inner: embed.NewStaticEmbedder(testDims)}
	p, s := newTestPipeline(t, embedder, Config{ChunkSize: 60, ChunkOverlap: 0})
	srcID := seedSource(t, s)
	ctx := context.Background()

	report, err := p.Ingest(ctx, Request{
		SourceID: srcID,
		Title:    "Outage",
		Content:  "The password reset flow emails a one-time link. The link expires after fifteen minutes.",
	})
	require.NoError(t, err)
	assert.Greater(t, report.Chunks, 0)
	assert.Zero(t, report.Embedded)
	assert.Equal(t, report.Chunks, report.Skipped)

	// Unembedded chunks must still be reachable through the keyword leg.
	hits, err := s.HybridSearch(ctx, "password reset", make([]float32, testDims), store.SearchOptions{Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Chunk.Content, "password reset")
	assert.Zero(t, hits[0].VectorScore)
}

func TestPipeline_Ingest_EmptyContentRejected(t *testing.T) {
	embedder := embed.NewStaticEmbedder(testDims)
	p, s := newTestPipeline(t, embedder, Config{})
	srcID := seedSource(t, s)

	_, err := p.Ingest(context.Background(), Request{SourceID: srcID, Title: "Blank"})
	require.Error(t, err)

	var cerr *corpuserrors.CorpusError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, corpuserrors.ErrCodeEmptyDocument, cerr.Code)
}

func TestPipeline_Ingest_UnknownSourceRejected(t *testing.T) {
	embedder := embed.NewStaticEmbedder(testDims)
	p, _ := newTestPipeline(t, embedder, Config{})

	_, err := p.Ingest(context.Background(), Request{SourceID: "no-such-source", Content: "text"})
	require.Error(t, err)

	var cerr *corpuserrors.CorpusError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, corpuserrors.ErrCodeConfigInvalid, cerr.Code)
}

func TestPipeline_Ingest_LockContention(t *testing.T) {
	embedder := embed.NewStaticEmbedder(testDims)
	lockDir := t.TempDir()
	p1, s := newTestPipeline(t, embedder, Config{LockDir: lockDir})
	srcID := seedSource(t, s)

	unlock, err := p1.acquireLock()
	require.NoError(t, err)

	p2 := New(s, embedder, Config{LockDir: lockDir}, nil)
	_, err = p2.Ingest(context.Background(), Request{SourceID: srcID, Title: "Blocked", Content: "some text"})
	require.Error(t, err)

	var cerr *corpuserrors.CorpusError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, corpuserrors.ErrCodeIndexLocked, cerr.Code)

	unlock()
	_, err = p2.Ingest(context.Background(), Request{SourceID: srcID, Title: "Unblocked", Content: "some text"})
	require.NoError(t, err)
}

func TestPipeline_Ingest_BatchesRespectBatchSize(t *testing.T) {
	embedder := &countingBatchEmbedder{inner: embed.NewStaticEmbedder(testDims)}
	p, s := newTestPipeline(t, embedder, Config{ChunkSize: 8, ChunkOverlap: 0, BatchSize: 2})
	srcID := seedSource(t, s)

	content := "Alpha sentence one here. Beta sentence two here. Gamma sentence three here. " +
		"Delta sentence four here. Epsilon sentence five here."

	report, err := p.Ingest(context.Background(), Request{SourceID: srcID, Title: "Batches", Content: content})
	require.NoError(t, err)
	require.Greater(t, report.Chunks, 2)

	for _, batch := range embedder.batchSizes {
		assert.LessOrEqual(t, batch, 2)
	}
	assert.GreaterOrEqual(t, len(embedder.batchSizes), 2)
}

// countingBatchEmbedder records the size of every EmbedBatch call.
type countingBatchEmbedder struct {
	inner      *embed.StaticEmbedder
	batchSizes []int
}

func (c *countingBatchEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.inner.Embed(ctx, text)
}

func (c *countingBatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batchSizes = append(c.batchSizes, len(texts))
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *countingBatchEmbedder) Dimensions() int { return c.inner.Dimensions() }

func (c *countingBatchEmbedder) ModelName() string { return c.inner.ModelName() }

func (c *countingBatchEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }

func (c *countingBatchEmbedder) Close() error { return c.inner.Close() }

var _ embed.Embedder = (*countingBatchEmbedder)(nil)
