package biz

import (
	"context"
	"sort"

	"github.com/kart-io/logger"

	"github.com/vektor-io/ragd/internal/pkg/textutil"
	"github.com/vektor-io/ragd/internal/ragd/store"
	"github.com/vektor-io/ragd/pkg/llm"
)

// Reranker reorders candidate hits for a query and truncates to topK.
type Reranker interface {
	Rerank(ctx context.Context, query string, hits []*store.SearchResult, topK int) ([]*store.SearchResult, error)
}

// sortByScore orders hits by descending score, ties broken by id.
func sortByScore(hits []*store.SearchResult) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
}

// ScoreReranker orders by existing retrieval score. Inputs already within
// topK pass through unchanged.
type ScoreReranker struct{}

var _ Reranker = (*ScoreReranker)(nil)

// Rerank sorts by descending score and truncates to topK.
func (ScoreReranker) Rerank(_ context.Context, _ string, hits []*store.SearchResult, topK int) ([]*store.SearchResult, error) {
	if len(hits) <= topK {
		return hits, nil
	}
	out := make([]*store.SearchResult, len(hits))
	copy(out, hits)
	sortByScore(out)
	return out[:topK], nil
}

// EmbeddingReranker rescores hits by re-embedding their content and
// blending query similarity with the retrieval score. Hits that fail to
// re-embed keep their original score.
type EmbeddingReranker struct {
	provider llm.EmbeddingProvider
	model    string

	// retrievalWeight and similarityWeight blend the two signals.
	retrievalWeight  float32
	similarityWeight float32
}

var _ Reranker = (*EmbeddingReranker)(nil)

// NewEmbeddingReranker creates an EmbeddingReranker using the given
// embedding model with a 0.3/0.7 retrieval/similarity blend.
func NewEmbeddingReranker(provider llm.EmbeddingProvider, model string) *EmbeddingReranker {
	return &EmbeddingReranker{
		provider:         provider,
		model:            model,
		retrievalWeight:  0.3,
		similarityWeight: 0.7,
	}
}

// Rerank rescores, sorts and truncates hits.
func (r *EmbeddingReranker) Rerank(ctx context.Context, query string, hits []*store.SearchResult, topK int) ([]*store.SearchResult, error) {
	if len(hits) == 0 {
		return hits, nil
	}

	queryEmbedding, err := r.provider.EmbedSingle(ctx, query, r.model)
	if err != nil {
		logger.Warnw("Rerank query embedding failed, keeping retrieval order", "error", err.Error())
		return ScoreReranker{}.Rerank(ctx, query, hits, topK)
	}

	out := make([]*store.SearchResult, len(hits))
	for i, hit := range hits {
		rescored := *hit
		if embedding, err := r.provider.EmbedSingle(ctx, hit.Content, r.model); err == nil {
			similarity := float32(textutil.CosineSimilarity(queryEmbedding, embedding))
			rescored.Score = r.retrievalWeight*hit.Score + r.similarityWeight*similarity
		}
		out[i] = &rescored
	}

	sortByScore(out)
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}
