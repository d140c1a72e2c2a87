package embed

import (
	"context"
	"log/slog"
	"time"

	corpuserrors "github.com/corpushq/corpus/internal/errors"
)

// FactoryConfig selects and configures the embedding provider.
type FactoryConfig struct {
	Provider   string // "ollama", "static", or "" for auto
	Model      string
	Dimensions int
	OllamaHost string
	BatchSize  int
	Timeout    time.Duration
	CacheSize  int

	// AllowStaticFallback permits falling back to the hash embedder when
	// Ollama is unreachable. Vectors from the two providers are not
	// comparable, so this should stay off for persistent indexes.
	AllowStaticFallback bool
}

// NewEmbedder creates an embedder per the config, wrapped with an LRU cache.
//
// Provider selection:
//   - "static": hash embedder, no external dependencies
//   - "ollama": Ollama HTTP API, fails unless AllowStaticFallback is set
//   - "" / "auto": Ollama when reachable, otherwise static
func NewEmbedder(ctx context.Context, cfg FactoryConfig) (Embedder, error) {
	inner, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}

func newProvider(ctx context.Context, cfg FactoryConfig) (Embedder, error) {
	switch cfg.Provider {
	case "static":
		return NewStaticEmbedder(cfg.Dimensions), nil

	case "ollama":
		e, err := newOllama(ctx, cfg)
		if err == nil {
			return e, nil
		}
		if cfg.AllowStaticFallback {
			slog.Warn("ollama unavailable, falling back to static embedder",
				slog.String("host", cfg.OllamaHost),
				slog.String("error", err.Error()))
			return NewStaticEmbedder(cfg.Dimensions), nil
		}
		return nil, corpuserrors.New(corpuserrors.ErrCodeEmbeddingFailed,
			"embedding provider unavailable", err).
			WithSuggestion("start Ollama or set embedding.provider to \"static\"")

	case "", "auto":
		e, err := newOllama(ctx, cfg)
		if err == nil {
			return e, nil
		}
		slog.Info("ollama unavailable, using static embedder",
			slog.String("error", err.Error()))
		return NewStaticEmbedder(cfg.Dimensions), nil

	default:
		return nil, corpuserrors.Newf(corpuserrors.ErrCodeConfigInvalid, nil,
			"unknown embedding provider %q", cfg.Provider)
	}
}

func newOllama(ctx context.Context, cfg FactoryConfig) (*OllamaEmbedder, error) {
	return NewOllamaEmbedder(ctx, OllamaConfig{
		Host:       cfg.OllamaHost,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		BatchSize:  cfg.BatchSize,
		Timeout:    cfg.Timeout,
	})
}
