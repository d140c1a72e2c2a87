// Package config loads and validates corpus configuration.
//
// Precedence, lowest to highest:
//  1. Built-in defaults
//  2. Config file (corpus.yaml in the data directory or an explicit path)
//  3. Environment variables (CORPUS_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	corpuserr "github.com/corpushq/corpus/internal/errors"
)

// Config represents the complete corpus configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	DataDir   string          `yaml:"data_dir" json:"data_dir"`
	Chunking  ChunkingConfig  `yaml:"chunking" json:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Rerank    RerankConfig    `yaml:"rerank" json:"rerank"`
	Retrieval RetrievalConfig `yaml:"retrieval" json:"retrieval"`
	LogLevel  string          `yaml:"log_level" json:"log_level"`
}

// ChunkingConfig configures the text chunker.
type ChunkingConfig struct {
	// ChunkSize is the token budget per chunk.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// ChunkOverlap is the token overlap seeded between adjacent chunks.
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
}

// EmbeddingConfig configures the embedding gateway.
type EmbeddingConfig struct {
	// Provider selects the embedder: "ollama" or "static".
	Provider string `yaml:"provider" json:"provider"`
	// Model is the provider model name.
	Model string `yaml:"model" json:"model"`
	// Dimensions is the fixed embedding dimensionality of the deployment.
	// Providers with a smaller native dimensionality are zero-padded and
	// renormalized to this size.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	// OllamaHost is the Ollama API endpoint.
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// BatchSize is the number of texts per embedding batch during ingestion.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// InterBatchDelay is the pause between embedding batches, respecting
	// upstream rate limits.
	InterBatchDelay time.Duration `yaml:"inter_batch_delay" json:"inter_batch_delay"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// CacheSize is the query-embedding LRU cache capacity.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
	// AllowStaticFallback falls back to the static embedder when the
	// configured provider is unreachable at startup.
	AllowStaticFallback bool `yaml:"allow_static_fallback" json:"allow_static_fallback"`
}

// StoreConfig configures the chunk store.
type StoreConfig struct {
	// KeywordBackend selects the lexical index: "fts5" (default) or "bleve".
	KeywordBackend string `yaml:"keyword_backend" json:"keyword_backend"`
	// MaxConnections bounds the SQLite connection pool; also sizes the
	// enrichment worker pool in the orchestrator.
	MaxConnections int `yaml:"max_connections" json:"max_connections"`
	// HNSW graph parameters.
	HNSWM        int `yaml:"hnsw_m" json:"hnsw_m"`
	HNSWEfSearch int `yaml:"hnsw_ef_search" json:"hnsw_ef_search"`
}

// RerankConfig configures the reranking subsystem.
type RerankConfig struct {
	// Endpoint is the remote neural reranker URL. Empty means local only.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// APIKey is sent as a bearer token when set.
	APIKey string `yaml:"api_key" json:"api_key"`
	// ForceLocal always uses the local scorer, even with an endpoint set.
	ForceLocal bool `yaml:"force_local" json:"force_local"`
	// Timeout is the remote request timeout.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// RetrievalConfig configures the retrieval orchestrator.
type RetrievalConfig struct {
	MaxResults          int     `yaml:"max_results" json:"max_results"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
	VectorWeight        float64 `yaml:"vector_weight" json:"vector_weight"`
	KeywordWeight       float64 `yaml:"keyword_weight" json:"keyword_weight"`
	ContextWindowSize   int     `yaml:"context_window_size" json:"context_window_size"`
	RerankTopK          int     `yaml:"rerank_top_k" json:"rerank_top_k"`
	// PerDocumentCap limits chunks per document in the final set.
	PerDocumentCap int `yaml:"per_document_cap" json:"per_document_cap"`
	// BackfillFloor re-admits capped chunks until this fraction of the
	// candidate set is preserved.
	BackfillFloor float64 `yaml:"backfill_floor" json:"backfill_floor"`
}

// Default returns the built-in configuration defaults.
// Chunking and retrieval defaults match the original deployment values.
func Default() *Config {
	return &Config{
		Version: 1,
		DataDir: DefaultDataDir(),
		Chunking: ChunkingConfig{
			ChunkSize:    500,
			ChunkOverlap: 50,
		},
		Embedding: EmbeddingConfig{
			Provider:            "ollama",
			Model:               "nomic-embed-text",
			Dimensions:          768,
			OllamaHost:          "http://localhost:11434",
			BatchSize:           32,
			InterBatchDelay:     100 * time.Millisecond,
			Timeout:             60 * time.Second,
			CacheSize:           1000,
			AllowStaticFallback: true,
		},
		Store: StoreConfig{
			KeywordBackend: "fts5",
			MaxConnections: 4,
			HNSWM:          16,
			HNSWEfSearch:   64,
		},
		Rerank: RerankConfig{
			Timeout: 10 * time.Second,
		},
		Retrieval: RetrievalConfig{
			MaxResults:          5,
			SimilarityThreshold: 0.7,
			VectorWeight:        0.7,
			KeywordWeight:       0.3,
			ContextWindowSize:   1,
			RerankTopK:          20,
			PerDocumentCap:      2,
			BackfillFloor:       0.8,
		},
		LogLevel: "info",
	}
}

// DefaultDataDir returns the default index data directory (~/.corpus).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".corpus")
	}
	return filepath.Join(home, ".corpus")
}

// Load reads configuration from the given path (optional), then applies
// environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, corpuserr.Newf(corpuserr.ErrCodeConfigNotFound, err, "config file not found: %s", path)
			}
			return nil, corpuserr.Newf(corpuserr.ErrCodeConfigInvalid, err, "cannot read config: %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, corpuserr.Newf(corpuserr.ErrCodeConfigInvalid, err, "cannot parse config: %s", path)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return corpuserr.New(corpuserr.ErrCodeConfigInvalid, "chunking.chunk_size must be positive", nil)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return corpuserr.New(corpuserr.ErrCodeConfigInvalid, "chunking.chunk_overlap must be in [0, chunk_size)", nil)
	}
	if c.Embedding.Dimensions <= 0 {
		return corpuserr.New(corpuserr.ErrCodeConfigInvalid, "embedding.dimensions must be positive", nil)
	}
	if c.Retrieval.SimilarityThreshold < 0 || c.Retrieval.SimilarityThreshold > 1 {
		return corpuserr.New(corpuserr.ErrCodeConfigInvalid, "retrieval.similarity_threshold must be in [0,1]", nil)
	}
	if w := c.Retrieval.VectorWeight + c.Retrieval.KeywordWeight; w < 0.999 || w > 1.001 {
		return corpuserr.New(corpuserr.ErrCodeConfigInvalid,
			fmt.Sprintf("retrieval vector/keyword weights must sum to 1.0, got %.3f", w), nil)
	}
	if c.Retrieval.PerDocumentCap <= 0 {
		return corpuserr.New(corpuserr.ErrCodeConfigInvalid, "retrieval.per_document_cap must be positive", nil)
	}
	if c.Retrieval.BackfillFloor < 0 || c.Retrieval.BackfillFloor > 1 {
		return corpuserr.New(corpuserr.ErrCodeConfigInvalid, "retrieval.backfill_floor must be in [0,1]", nil)
	}
	switch c.Store.KeywordBackend {
	case "", "fts5", "bleve":
	default:
		return corpuserr.Newf(corpuserr.ErrCodeConfigInvalid, nil,
			"store.keyword_backend must be fts5 or bleve, got %q", c.Store.KeywordBackend)
	}
	return nil
}

// applyEnvOverrides applies CORPUS_* environment variables on top of the
// loaded configuration. Only operationally useful knobs are exposed.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CORPUS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CORPUS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CORPUS_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("CORPUS_OLLAMA_HOST"); v != "" {
		cfg.Embedding.OllamaHost = v
	}
	if v := os.Getenv("CORPUS_RERANK_ENDPOINT"); v != "" {
		cfg.Rerank.Endpoint = v
	}
	if v := os.Getenv("CORPUS_RERANK_API_KEY"); v != "" {
		cfg.Rerank.APIKey = v
	}
	if v := os.Getenv("CORPUS_RERANK_FORCE_LOCAL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Rerank.ForceLocal = b
		}
	}
	if v := os.Getenv("CORPUS_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Retrieval.MaxResults = n
		}
	}
}
