package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

const (
	// DefaultRemoteTimeout bounds each rerank request.
	DefaultRemoteTimeout = 10 * time.Second

	remoteMaxRetries  = 3
	remoteBackoffBase = 1 * time.Second
	remoteBackoffCap  = 5 * time.Second
)

// RemoteConfig configures the remote reranker.
type RemoteConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// RemoteReranker posts candidates to an external reranking service. Any
// failure after retries falls back to the local scorer and reports method
// "local-fallback"; reranking is never a hard failure point.
type RemoteReranker struct {
	client   *http.Client
	endpoint string
	apiKey   string
	timeout  time.Duration
	local    *LocalReranker
	logger   *slog.Logger
}

var _ Reranker = (*RemoteReranker)(nil)

// NewRemoteReranker creates a remote reranker with local fallback.
func NewRemoteReranker(cfg RemoteConfig, logger *slog.Logger) *RemoteReranker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRemoteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteReranker{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		local:    NewLocalReranker(),
		logger:   logger,
	}
}

type remoteDocument struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Title    string            `json:"title,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type remoteRequest struct {
	Query     string           `json:"query"`
	Documents []remoteDocument `json:"documents"`
	TopK      int              `json:"top_k,omitempty"`
}

// remoteResult accepts both "score" and "relevance_score" field names.
type remoteResult struct {
	ID             string   `json:"id"`
	Score          *float64 `json:"score"`
	RelevanceScore *float64 `json:"relevance_score"`
}

type remoteResponse struct {
	Results []remoteResult `json:"results"`
}

// Rerank tries the remote service with bounded retries, then falls back to
// the local scorer.
func (r *RemoteReranker) Rerank(ctx context.Context, query string, docs []Document, topK int) (*Response, error) {
	start := time.Now()

	if len(docs) == 0 {
		return &Response{Results: []Result{}, Method: MethodRemote}, nil
	}

	results, err := r.rerankWithRetry(ctx, query, docs, topK)
	if err != nil {
		r.logger.Warn("remote reranker failed, falling back to local scorer",
			slog.String("endpoint", r.endpoint),
			slog.String("error", err.Error()))

		resp, localErr := r.local.Rerank(ctx, query, docs, topK)
		if localErr != nil {
			return nil, localErr
		}
		resp.Method = MethodLocalFallback
		resp.ProcessingTime = time.Since(start)
		return resp, nil
	}

	return &Response{
		Results:        results,
		ProcessingTime: time.Since(start),
		Method:         MethodRemote,
	}, nil
}

func (r *RemoteReranker) rerankWithRetry(ctx context.Context, query string, docs []Document, topK int) ([]Result, error) {
	var lastErr error
	delay := remoteBackoffBase

	for attempt := 0; attempt < remoteMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > remoteBackoffCap {
				delay = remoteBackoffCap
			}
		}

		results, err := r.doRerank(ctx, query, docs, topK)
		if err == nil {
			return results, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", remoteMaxRetries, lastErr)
}

func (r *RemoteReranker) doRerank(ctx context.Context, query string, docs []Document, topK int) ([]Result, error) {
	reqDocs := make([]remoteDocument, len(docs))
	for i, d := range docs {
		reqDocs[i] = remoteDocument{ID: d.ID, Text: d.Text, Title: d.Title, Metadata: d.Metadata}
	}

	body, err := json.Marshal(remoteRequest{Query: query, Documents: reqDocs, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}
	if len(apiResp.Results) == 0 {
		return nil, fmt.Errorf("rerank response contained no results")
	}

	results := make([]Result, len(apiResp.Results))
	for i, res := range apiResp.Results {
		score := 0.0
		switch {
		case res.Score != nil:
			score = *res.Score
		case res.RelevanceScore != nil:
			score = *res.RelevanceScore
		}
		results[i] = Result{ID: res.ID, Score: score}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Close releases idle connections.
func (r *RemoteReranker) Close() error {
	if transport, ok := r.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}
