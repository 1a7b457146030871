package biz

import (
	"sort"

	"github.com/vektor-io/ragd/internal/ragd/store"
)

// FusedResult carries a hit together with its per-channel scores.
type FusedResult struct {
	*store.SearchResult

	VectorScore  float32
	KeywordScore float32
}

// Fuse combines vector and keyword hits by weighted score sum over the
// union of chunk ids. A hit absent from one channel contributes 0 for that
// channel. Output is ordered by descending combined score with ties broken
// by id, so fusion is deterministic and symmetric in its inputs.
func Fuse(vectorHits, keywordHits []*store.SearchResult, vectorWeight, keywordWeight float32) []*FusedResult {
	byID := make(map[string]*FusedResult, len(vectorHits)+len(keywordHits))

	for _, hit := range vectorHits {
		byID[hit.ID] = &FusedResult{SearchResult: hit, VectorScore: hit.Score}
	}
	for _, hit := range keywordHits {
		if existing, ok := byID[hit.ID]; ok {
			existing.KeywordScore = hit.Score
			continue
		}
		byID[hit.ID] = &FusedResult{SearchResult: hit, KeywordScore: hit.Score}
	}

	fused := make([]*FusedResult, 0, len(byID))
	for _, f := range byID {
		combined := vectorWeight*f.VectorScore + keywordWeight*f.KeywordScore
		// The combined score replaces the channel score on the hit itself
		// so downstream stages see one scale.
		result := *f.SearchResult
		result.Score = combined
		f.SearchResult = &result
		fused = append(fused, f)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].ID < fused[j].ID
	})
	return fused
}
