package biz

import (
	"context"
	"strings"

	"github.com/kart-io/logger"

	"github.com/vektor-io/ragd/internal/ragd/store"
	"github.com/vektor-io/ragd/pkg/errors"
)

// RetrieveRequest describes one retrieval call.
type RetrieveRequest struct {
	// Owner selects the collection to search. Required.
	Owner string
	// Query is the natural-language query. Required.
	Query string
	// Limit caps the number of returned passages. Defaults to 5.
	Limit int
	// ScoreThreshold drops passages scoring below it. Applied after
	// reranking. Zero keeps everything.
	ScoreThreshold float32
	// FileIDs restricts the search to the listed documents.
	FileIDs []string
	// Hybrid enables keyword search fused with vector search.
	Hybrid bool
	// Rerank enables the configured reranker.
	Rerank bool
	// EmbedModel overrides the default embedding model. Must match the
	// model the owner's documents were indexed with.
	EmbedModel string
}

// RetrieverConfig holds retrieval tuning knobs.
type RetrieverConfig struct {
	// DefaultEmbedModel embeds queries when the request does not name a
	// model.
	DefaultEmbedModel string
	// VectorWeight and KeywordWeight weight the two channels during
	// fusion.
	VectorWeight  float32
	KeywordWeight float32
	// DefaultLimit applies when a request has no limit.
	DefaultLimit int
}

// Retriever runs the retrieval pipeline: embed the query, search, fuse,
// rerank, threshold.
type Retriever struct {
	vectors  store.VectorStore
	keywords store.KeywordSearcher
	embedder *BatchEmbedder
	reranker Reranker
	config   RetrieverConfig
}

// NewRetriever creates a Retriever.
func NewRetriever(vectors store.VectorStore, keywords store.KeywordSearcher, embedder *BatchEmbedder, reranker Reranker, config RetrieverConfig) *Retriever {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 5
	}
	return &Retriever{
		vectors:  vectors,
		keywords: keywords,
		embedder: embedder,
		reranker: reranker,
		config:   config,
	}
}

// Retrieve returns up to Limit passages ordered by descending score. An
// empty result is a valid outcome, not an error.
func (r *Retriever) Retrieve(ctx context.Context, req *RetrieveRequest) ([]*store.SearchResult, error) {
	if strings.TrimSpace(req.Owner) == "" {
		return nil, errors.ErrInvalidRequest.WithMessagef("owner must not be empty")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.ErrInvalidRequest.WithMessagef("query must not be empty")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = r.config.DefaultLimit
	}
	embedModel := req.EmbedModel
	if embedModel == "" {
		embedModel = r.config.DefaultEmbedModel
	}

	embedding, err := r.embedder.EmbedQuery(ctx, req.Query, embedModel)
	if err != nil {
		// An unembeddable query retrieves nothing; the outage is logged
		// rather than surfaced as a request failure.
		logger.Warnw("Query embedding failed, returning no results",
			"owner", req.Owner, "error", err.Error())
		return nil, nil
	}

	// Over-fetch so fusion, reranking and the threshold still have enough
	// candidates to fill the limit.
	fetchK := 2 * limit
	searchOpts := &store.SearchOptions{FileIDs: req.FileIDs}

	vectorHits, err := r.vectors.Search(ctx, req.Owner, embedding, fetchK, searchOpts)
	if err != nil {
		return nil, err
	}

	candidates := vectorHits
	if req.Hybrid {
		keywordHits, err := r.keywords.Search(ctx, req.Owner, req.Query, fetchK, searchOpts)
		if err != nil {
			// Keyword search is best-effort; vector results stand alone.
			logger.Warnw("Keyword search failed, continuing vector-only",
				"owner", req.Owner, "error", err.Error())
			keywordHits = nil
		}
		if len(keywordHits) > 0 {
			fused := Fuse(vectorHits, keywordHits, r.config.VectorWeight, r.config.KeywordWeight)
			candidates = make([]*store.SearchResult, len(fused))
			for i, f := range fused {
				candidates[i] = f.SearchResult
			}
		}
	}

	reranker := r.reranker
	if !req.Rerank || reranker == nil {
		reranker = ScoreReranker{}
	}
	ranked, err := reranker.Rerank(ctx, req.Query, candidates, limit)
	if err != nil {
		return nil, err
	}

	return applyThreshold(ranked, req.ScoreThreshold), nil
}

// applyThreshold drops hits below the threshold. Idempotent: rerunning it
// on its own output changes nothing.
func applyThreshold(hits []*store.SearchResult, threshold float32) []*store.SearchResult {
	if threshold <= 0 {
		return hits
	}
	out := make([]*store.SearchResult, 0, len(hits))
	for _, hit := range hits {
		if hit.Score >= threshold {
			out = append(out, hit)
		}
	}
	return out
}
