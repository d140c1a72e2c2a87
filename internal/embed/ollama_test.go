package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOllamaTestServer(t *testing.T, embeddings [][]float64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{
			Model:      "test-model",
			Embeddings: embeddings,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newOllamaTestEmbedder(t *testing.T, host string) *OllamaEmbedder {
	t.Helper()
	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            host,
		Model:           "test-model",
		Dimensions:      3,
		BatchSize:       8,
		Timeout:         2 * time.Second,
		MaxRetries:      1,
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestOllamaEmbedder_EmbedBatch_MapsResponsesByInputOrder(t *testing.T) {
	srv := newOllamaTestServer(t, [][]float64{{1, 0, 0}, {0, 1, 0}})
	e := newOllamaTestEmbedder(t, srv.URL)

	results, err := e.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []float32{1, 0, 0}, results[0])
	assert.Equal(t, []float32{0, 1, 0}, results[1])
}

func TestOllamaEmbedder_EmbedBatch_TooManyEmbeddingsRejected(t *testing.T) {
	srv := newOllamaTestServer(t, [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	e := newOllamaTestEmbedder(t, srv.URL)

	_, err := e.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 embeddings for 2 texts")
}

func TestOllamaEmbedder_EmbedBatch_TooFewEmbeddingsRejected(t *testing.T) {
	srv := newOllamaTestServer(t, [][]float64{{1, 0, 0}})
	e := newOllamaTestEmbedder(t, srv.URL)

	_, err := e.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 embeddings for 2 texts")
}

func TestOllamaEmbedder_EmbedBatch_EmptyTextsSkipAPICall(t *testing.T) {
	// One embedding for the single non-empty text; empty texts become zero
	// vectors without hitting the server.
	srv := newOllamaTestServer(t, [][]float64{{0, 1, 0}})
	e := newOllamaTestEmbedder(t, srv.URL)

	results, err := e.EmbedBatch(context.Background(), []string{"", "beta", "  "})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []float32{0, 0, 0}, results[0])
	assert.Equal(t, []float32{0, 1, 0}, results[1])
	assert.Equal(t, []float32{0, 0, 0}, results[2])
}
