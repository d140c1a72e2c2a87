package rerank

import (
	"log/slog"
	"time"
)

// Config selects the reranker implementation.
type Config struct {
	// Endpoint is the remote reranking service URL. Empty means local.
	Endpoint string
	APIKey   string

	// ForceLocal always selects the local scorer, even with an endpoint
	// configured.
	ForceLocal bool

	Timeout time.Duration
}

// New returns the reranker selected by cfg: ForceLocal wins, absence of an
// endpoint implies local.
func New(cfg Config, logger *slog.Logger) Reranker {
	if cfg.ForceLocal || cfg.Endpoint == "" {
		return NewLocalReranker()
	}
	return NewRemoteReranker(RemoteConfig{
		Endpoint: cfg.Endpoint,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.Timeout,
	}, logger)
}
