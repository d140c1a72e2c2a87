package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder(0)
	defer e.Close()

	v1, err := e.Embed(context.Background(), "the same text")
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), "the same text")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, StaticDimensions)
}

func TestStaticEmbedder_DifferentTextsDiffer(t *testing.T) {
	e := NewStaticEmbedder(128)
	defer e.Close()

	v1, err := e.Embed(context.Background(), "cats are mammals")
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), "quantum chromodynamics")
	require.NoError(t, err)

	assert.NotEqual(t, v1, v2)
	assert.Len(t, v1, 128)
}

func TestStaticEmbedder_EmptyText_ReturnsZeroVector(t *testing.T) {
	e := NewStaticEmbedder(32)
	defer e.Close()

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)

	require.Len(t, vec, 32)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestStaticEmbedder_VectorsAreNormalized(t *testing.T) {
	e := NewStaticEmbedder(64)
	defer e.Close()

	vec, err := e.Embed(context.Background(), "some text worth embedding")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestStaticEmbedder_SharedTokensIncreaseSimilarity(t *testing.T) {
	e := NewStaticEmbedder(256)
	defer e.Close()

	a, err := e.Embed(context.Background(), "cats are mammals")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "dogs are mammals too")
	require.NoError(t, err)
	c, err := e.Embed(context.Background(), "stochastic gradient descent")
	require.NoError(t, err)

	assert.Greater(t, dot(a, b), dot(a, c),
		"texts sharing tokens should be closer than unrelated texts")
}

func TestStaticEmbedder_EmbedBatch(t *testing.T) {
	e := NewStaticEmbedder(64)
	defer e.Close()

	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "two", ""})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	single, err := e.Embed(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, single, vecs[0])
}

func TestStaticEmbedder_ClosedEmbedderErrors(t *testing.T) {
	e := NewStaticEmbedder(64)
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "text")
	assert.Error(t, err)
	assert.False(t, e.Available(context.Background()))
}

func TestStaticEmbedder_ModelNameIncludesDimensions(t *testing.T) {
	assert.Equal(t, "static-hash-256", NewStaticEmbedder(256).ModelName())
	assert.Equal(t, 256, NewStaticEmbedder(0).Dimensions())
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
