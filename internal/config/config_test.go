package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corpuserr "github.com/corpushq/corpus/internal/errors"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500, cfg.Chunking.ChunkSize)
	assert.Equal(t, 50, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, 0.7, cfg.Retrieval.VectorWeight)
	assert.Equal(t, 0.3, cfg.Retrieval.KeywordWeight)
	assert.Equal(t, "fts5", cfg.Store.KeywordBackend)
}

func TestLoad_MissingFile_ReturnsConfigNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	var ce *corpuserr.CorpusError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, corpuserr.ErrCodeConfigNotFound, ce.Code)
}

func TestLoad_NoPath_ReturnsDefaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, Default().Chunking, cfg.Chunking)
}

func TestConfig_SaveAndLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.yaml")

	cfg := Default()
	cfg.DataDir = dir
	cfg.Embedding.Provider = "static"
	cfg.Embedding.Dimensions = 256
	cfg.Retrieval.MaxResults = 9
	cfg.Rerank.Endpoint = "https://rerank.example.com/v1"
	cfg.Rerank.Timeout = 3 * time.Second
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "static", loaded.Embedding.Provider)
	assert.Equal(t, 256, loaded.Embedding.Dimensions)
	assert.Equal(t, 9, loaded.Retrieval.MaxResults)
	assert.Equal(t, "https://rerank.example.com/v1", loaded.Rerank.Endpoint)
	assert.Equal(t, 3*time.Second, loaded.Rerank.Timeout)
}

func TestLoad_MalformedYAML_ReturnsConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: [not closed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	var ce *corpuserr.CorpusError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, corpuserr.ErrCodeConfigInvalid, ce.Code)
}

func TestLoad_EnvOverrides_TakePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	cfg := Default()
	cfg.Embedding.Provider = "ollama"
	require.NoError(t, cfg.Save(path))

	t.Setenv("CORPUS_EMBEDDING_PROVIDER", "static")
	t.Setenv("CORPUS_MAX_RESULTS", "12")
	t.Setenv("CORPUS_RERANK_FORCE_LOCAL", "true")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "static", loaded.Embedding.Provider)
	assert.Equal(t, 12, loaded.Retrieval.MaxResults)
	assert.True(t, loaded.Rerank.ForceLocal)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Chunking.ChunkSize = 0 }},
		{"overlap >= chunk size", func(c *Config) { c.Chunking.ChunkOverlap = c.Chunking.ChunkSize }},
		{"zero dimensions", func(c *Config) { c.Embedding.Dimensions = 0 }},
		{"threshold above 1", func(c *Config) { c.Retrieval.SimilarityThreshold = 1.5 }},
		{"weights not summing to 1", func(c *Config) { c.Retrieval.VectorWeight = 0.9 }},
		{"zero per-document cap", func(c *Config) { c.Retrieval.PerDocumentCap = 0 }},
		{"negative backfill floor", func(c *Config) { c.Retrieval.BackfillFloor = -0.1 }},
		{"unknown keyword backend", func(c *Config) { c.Store.KeywordBackend = "lucene" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
