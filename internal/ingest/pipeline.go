// Package ingest drives the chunker and embedding gateway to populate the
// store from documents.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/corpushq/corpus/internal/chunk"
	"github.com/corpushq/corpus/internal/embed"
	corpuserrors "github.com/corpushq/corpus/internal/errors"
	"github.com/corpushq/corpus/internal/store"
)

// Config configures the ingestion pipeline.
type Config struct {
	ChunkSize    int
	ChunkOverlap int

	// BatchSize is the number of chunks embedded per gateway call.
	BatchSize int

	// InterBatchDelay spaces out embedding batches to respect upstream
	// rate limits.
	InterBatchDelay time.Duration

	// LockDir is where the ingest lock file lives. Empty disables
	// locking (in-memory stores, tests).
	LockDir string
}

// DefaultConfig returns standard ingestion settings.
func DefaultConfig() Config {
	return Config{
		ChunkSize:       500,
		ChunkOverlap:    50,
		BatchSize:       embed.DefaultBatchSize,
		InterBatchDelay: 100 * time.Millisecond,
	}
}

// Request describes one document to ingest.
type Request struct {
	SourceID string
	Title    string
	Content  string
	Metadata map[string]string
}

// Report summarizes an ingestion run. Skipped counts chunks left without an
// embedding after batch failures; they remain searchable by keyword.
type Report struct {
	DocumentID string
	Chunks     int
	Embedded   int
	Skipped    int
	Elapsed    time.Duration
}

// Pipeline ingests documents: chunk, persist, embed in batches.
type Pipeline struct {
	store    *store.Store
	embedder embed.Embedder
	cfg      Config
	logger   *slog.Logger
}

// New creates an ingestion pipeline.
func New(s *store.Store, embedder embed.Embedder, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = embed.DefaultBatchSize
	}
	return &Pipeline{store: s, embedder: embedder, cfg: cfg, logger: logger}
}

// Ingest chunks and persists one document, then embeds its chunks in
// batches. A failed batch is logged and skipped; its chunks stay unembedded
// permanently and searches treat them as non-matching for the vector leg.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()

	if req.Content == "" {
		return nil, corpuserrors.New(corpuserrors.ErrCodeEmptyDocument,
			"document content must not be empty", nil)
	}

	unlock, err := p.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	src, err := p.store.GetSource(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, corpuserrors.Newf(corpuserrors.ErrCodeConfigInvalid, nil,
			"knowledge source %s does not exist", req.SourceID)
	}

	doc := &store.Document{
		ID:       uuid.NewString(),
		SourceID: req.SourceID,
		Title:    req.Title,
		Content:  req.Content,
		Metadata: req.Metadata,
	}
	if err := p.store.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}

	pieces := chunk.Split(req.Content, chunk.Options{
		ChunkSize:    p.cfg.ChunkSize,
		ChunkOverlap: p.cfg.ChunkOverlap,
	})

	chunks := make([]*store.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &store.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Index:      piece.Index,
			Content:    piece.Text,
			TokenCount: piece.TokenCount,
		}
	}
	if err := p.store.SaveChunks(ctx, chunks); err != nil {
		return nil, err
	}

	embedded, skipped := p.embedChunks(ctx, chunks)

	report := &Report{
		DocumentID: doc.ID,
		Chunks:     len(chunks),
		Embedded:   embedded,
		Skipped:    skipped,
		Elapsed:    time.Since(start),
	}

	p.logger.Info("document ingested",
		slog.String("document_id", doc.ID),
		slog.String("title", req.Title),
		slog.Int("chunks", report.Chunks),
		slog.Int("embedded", report.Embedded),
		slog.Int("skipped", report.Skipped),
		slog.Duration("elapsed", report.Elapsed))

	return report, nil
}

// embedChunks embeds in fixed-size batches with an inter-batch delay. Batch
// failures do not abort chunks already embedded.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []*store.Chunk) (embedded, skipped int) {
	model := p.embedder.ModelName()

	for batchStart := 0; batchStart < len(chunks); batchStart += p.cfg.BatchSize {
		if batchStart > 0 && p.cfg.InterBatchDelay > 0 {
			select {
			case <-ctx.Done():
				skipped += len(chunks) - batchStart
				return embedded, skipped
			case <-time.After(p.cfg.InterBatchDelay):
			}
		}

		batchEnd := min(batchStart+p.cfg.BatchSize, len(chunks))
		batch := chunks[batchStart:batchEnd]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			p.logger.Warn("embedding batch failed, chunks remain unembedded",
				slog.Int("batch_start", batchStart),
				slog.Int("batch_size", len(batch)),
				slog.String("error", err.Error()))
			skipped += len(batch)
			continue
		}

		for i, c := range batch {
			vec := vectors[i]
			if len(vec) < p.store.Dimensions() {
				padded, padErr := embed.Pad(vec, p.store.Dimensions())
				if padErr != nil {
					p.logger.Warn("cannot pad embedding",
						slog.String("chunk_id", c.ID),
						slog.String("error", padErr.Error()))
					skipped++
					continue
				}
				vec = padded
			}
			if err := p.store.SetChunkEmbedding(ctx, c.ID, vec, model); err != nil {
				p.logger.Warn("failed to store embedding",
					slog.String("chunk_id", c.ID),
					slog.String("error", err.Error()))
				skipped++
				continue
			}
			embedded++
		}
	}

	return embedded, skipped
}

// acquireLock takes the single-writer ingest lock. Concurrent ingests from
// other processes fail fast rather than interleave index writes.
func (p *Pipeline) acquireLock() (func(), error) {
	if p.cfg.LockDir == "" {
		return func() {}, nil
	}

	if err := os.MkdirAll(p.cfg.LockDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock := flock.New(filepath.Join(p.cfg.LockDir, "ingest.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, corpuserrors.New(corpuserrors.ErrCodeIndexLocked,
			"failed to acquire ingest lock", err)
	}
	if !locked {
		return nil, corpuserrors.New(corpuserrors.ErrCodeIndexLocked,
			"another ingest is in progress", nil).
			WithSuggestion("wait for the running ingest to finish")
	}
	return func() { _ = lock.Unlock() }, nil
}
