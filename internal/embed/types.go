// Package embed defines the embedding gateway contract and its providers.
// The engine never computes embeddings itself; everything goes through the
// Embedder interface so the concrete provider (remote API, local model,
// deterministic fallback) is a deployment choice.
package embed

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Common embedding constants.
const (
	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size (prevents memory exhaustion).
	MaxBatchSize = 256

	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 32

	// DefaultTimeout is the default timeout for embedding requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts.
	DefaultMaxRetries = 3

	// DefaultDimensions is the deployment's default embedding dimension.
	DefaultDimensions = 768

	// StaticDimensions is the native dimension of the static embedder.
	// Smaller than DefaultDimensions; static vectors are zero-padded and
	// renormalized up to the deployment dimension.
	StaticDimensions = 256
)

// Result is a single embedding with its token accounting.
type Result struct {
	Vector     []float32
	TokenCount int
}

// Embedder converts text into fixed-dimension vectors.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

// Pad zero-pads vec up to dim and renormalizes. Vectors already at dim pass
// through unchanged. Vectors larger than dim are an error: truncating would
// corrupt the similarity space.
func Pad(vec []float32, dim int) ([]float32, error) {
	switch {
	case len(vec) == dim:
		return vec, nil
	case len(vec) > dim:
		return nil, fmt.Errorf("embedding dimension %d exceeds store dimension %d", len(vec), dim)
	}
	padded := make([]float32, dim)
	copy(padded, vec)
	return normalizeVector(padded), nil
}
