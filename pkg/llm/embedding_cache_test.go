package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls int
}

func (p *countingProvider) EmbedSingle(_ context.Context, text, _ string) ([]float32, error) {
	p.calls++
	return []float32{float32(len(text))}, nil
}

func (p *countingProvider) ListModels(context.Context) ([]string, error) {
	return []string{"m"}, nil
}

func (p *countingProvider) PullModel(context.Context, string) error { return nil }

func (p *countingProvider) Name() string { return "counting" }

func TestCachedProviderNilClientPassesThrough(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedEmbeddingProvider(inner, nil, 0)

	embedding, err := cached.EmbedSingle(context.Background(), "hello", "m")
	require.NoError(t, err)
	assert.Equal(t, []float32{5}, embedding)
	assert.Equal(t, 1, inner.calls)

	_, err = cached.EmbedSingle(context.Background(), "hello", "m")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProviderDelegates(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedEmbeddingProvider(inner, nil, 0)

	assert.Equal(t, "counting", cached.Name())
	models, err := cached.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"m"}, models)
	assert.NoError(t, cached.PullModel(context.Background(), "m"))
}

func TestEmbeddingCacheKey(t *testing.T) {
	k1 := embeddingCacheKey("ollama", "nomic-embed-text", "hello")
	k2 := embeddingCacheKey("ollama", "nomic-embed-text", "hello")
	k3 := embeddingCacheKey("ollama", "bge-m3", "hello")
	k4 := embeddingCacheKey("ollama", "nomic-embed-text", "world")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.NotEqual(t, k1, k4)
}
