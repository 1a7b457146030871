package biz

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vektor-io/ragd/internal/ragd/store"
	ragderrors "github.com/vektor-io/ragd/pkg/errors"
)

func newTestRetriever(t *testing.T, vectors *fakeVectorStore, keywords *fakeKeywordSearcher) *Retriever {
	t.Helper()
	provider := newFakeEmbedProvider(8)
	embedder := newTestEmbedder(t, provider, 2)
	return NewRetriever(vectors, keywords, embedder, ScoreReranker{}, RetrieverConfig{
		DefaultEmbedModel: "nomic-embed-text",
		VectorWeight:      0.7,
		KeywordWeight:     0.3,
		DefaultLimit:      5,
	})
}

func TestRetrieveValidation(t *testing.T) {
	retriever := newTestRetriever(t, newFakeVectorStore(), &fakeKeywordSearcher{})

	tests := []struct {
		name string
		req  *RetrieveRequest
	}{
		{name: "empty owner", req: &RetrieveRequest{Query: "q"}},
		{name: "empty query", req: &RetrieveRequest{Owner: "o"}},
		{name: "blank query", req: &RetrieveRequest{Owner: "o", Query: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := retriever.Retrieve(context.Background(), tt.req)
			assert.True(t, errors.Is(err, ragderrors.ErrInvalidRequest))
		})
	}
}

func TestRetrieveVectorOnly(t *testing.T) {
	vectors := newFakeVectorStore()
	vectors.searchHits = []*store.SearchResult{hit("a", 0.9), hit("b", 0.7), hit("c", 0.5)}
	retriever := newTestRetriever(t, vectors, &fakeKeywordSearcher{})

	results, err := retriever.Retrieve(context.Background(), &RetrieveRequest{
		Owner: "agent", Query: "question", Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
}

func TestRetrieveEmptyResultIsNotAnError(t *testing.T) {
	retriever := newTestRetriever(t, newFakeVectorStore(), &fakeKeywordSearcher{})

	results, err := retriever.Retrieve(context.Background(), &RetrieveRequest{
		Owner: "agent", Query: "nothing matches",
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveHybridFusesChannels(t *testing.T) {
	vectors := newFakeVectorStore()
	vectors.searchHits = []*store.SearchResult{hit("a", 0.9), hit("b", 0.5)}
	keywords := &fakeKeywordSearcher{
		searchHits: []*store.SearchResult{hit("b", 2.0), hit("c", 1.0)},
	}
	retriever := newTestRetriever(t, vectors, keywords)

	results, err := retriever.Retrieve(context.Background(), &RetrieveRequest{
		Owner: "agent", Query: "question", Limit: 5, Hybrid: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// b carries both channels: 0.7*0.5 + 0.3*2.0 = 1.25, ahead of a at
	// 0.63 and c at 0.3.
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, "a", results[1].ID)
	assert.Equal(t, "c", results[2].ID)
}

func TestRetrieveHybridDegradesWhenKeywordFails(t *testing.T) {
	vectors := newFakeVectorStore()
	vectors.searchHits = []*store.SearchResult{hit("a", 0.9)}
	keywords := &fakeKeywordSearcher{searchErr: fmt.Errorf("index corrupted")}
	retriever := newTestRetriever(t, vectors, keywords)

	results, err := retriever.Retrieve(context.Background(), &RetrieveRequest{
		Owner: "agent", Query: "question", Hybrid: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestRetrieveThresholdAppliedAfterRanking(t *testing.T) {
	vectors := newFakeVectorStore()
	vectors.searchHits = []*store.SearchResult{
		hit("a", 0.9), hit("b", 0.7), hit("c", 0.6), hit("d", 0.2), hit("e", 0.1),
	}
	keywords := &fakeKeywordSearcher{
		searchHits: []*store.SearchResult{hit("a", 1.0)},
	}
	retriever := newTestRetriever(t, vectors, keywords)

	results, err := retriever.Retrieve(context.Background(), &RetrieveRequest{
		Owner:          "agent",
		Query:          "question",
		Limit:          5,
		Hybrid:         true,
		Rerank:         true,
		ScoreThreshold: 0.4,
	})
	require.NoError(t, err)

	// a fused over both channels, b and c pass the threshold on the
	// vector channel alone, d and e fall below it.
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].ID)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, float32(0.4))
	}
}

func TestRetrieveEmbedFailureYieldsNoResults(t *testing.T) {
	vectors := newFakeVectorStore()
	vectors.searchHits = []*store.SearchResult{hit("a", 0.9)}

	provider := newFakeEmbedProvider(8)
	provider.failAll = true
	embedder := newTestEmbedder(t, provider, 2)
	retriever := NewRetriever(vectors, &fakeKeywordSearcher{}, embedder, ScoreReranker{}, RetrieverConfig{
		DefaultEmbedModel: "nomic-embed-text",
	})

	results, err := retriever.Retrieve(context.Background(), &RetrieveRequest{Owner: "agent", Query: "q"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveVectorStoreErrorPropagates(t *testing.T) {
	vectors := newFakeVectorStore()
	vectors.searchErr = ragderrors.ErrStoreFailure.WithMessagef("milvus down")
	retriever := newTestRetriever(t, vectors, &fakeKeywordSearcher{})

	_, err := retriever.Retrieve(context.Background(), &RetrieveRequest{Owner: "agent", Query: "q"})
	assert.True(t, errors.Is(err, ragderrors.ErrStoreFailure))
}
