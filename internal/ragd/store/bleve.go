package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/kart-io/logger"

	"github.com/vektor-io/ragd/internal/pkg/textutil"
	"github.com/vektor-io/ragd/pkg/errors"
)

// keywordDoc is the shape indexed per chunk.
type keywordDoc struct {
	FileID  string `json:"file_id"`
	Source  string `json:"source"`
	Section string `json:"section"`
	Content string `json:"content"`
}

// BleveKeywordSearcher implements KeywordSearcher on per-owner Bleve
// indexes. With an empty path the indexes live in memory and do not survive
// a restart; the vector store remains the system of record either way.
type BleveKeywordSearcher struct {
	path string

	mu      sync.RWMutex
	indexes map[string]bleve.Index
}

var _ KeywordSearcher = (*BleveKeywordSearcher)(nil)

// NewBleveKeywordSearcher creates a keyword searcher. path is the directory
// for on-disk indexes; empty selects in-memory indexes.
func NewBleveKeywordSearcher(path string) *BleveKeywordSearcher {
	return &BleveKeywordSearcher{
		path:    path,
		indexes: make(map[string]bleve.Index),
	}
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()

	// file_id must match exactly for filtering and deletion.
	fileIDField := bleve.NewTextFieldMapping()
	fileIDField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("file_id", fileIDField)

	for _, name := range []string{"source", "section", "content"} {
		field := bleve.NewTextFieldMapping()
		field.Store = true
		docMapping.AddFieldMappingsAt(name, field)
	}

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// indexFor returns the owner's index, opening or creating it on first use.
func (s *BleveKeywordSearcher) indexFor(owner string, create bool) (bleve.Index, error) {
	name := CollectionName(owner)

	s.mu.RLock()
	idx, ok := s.indexes[name]
	s.mu.RUnlock()
	if ok {
		return idx, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.indexes[name]; ok {
		return idx, nil
	}

	var (
		idx2 bleve.Index
		err  error
	)
	if s.path == "" {
		if !create {
			return nil, nil
		}
		idx2, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		indexPath := filepath.Join(s.path, textutil.SanitizeIdentifier(name)+".bleve")
		idx2, err = bleve.Open(indexPath)
		if err == bleve.ErrorIndexPathDoesNotExist {
			if !create {
				return nil, nil
			}
			idx2, err = bleve.New(indexPath, buildIndexMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open keyword index for %s: %w", owner, err)
	}

	s.indexes[name] = idx2
	return idx2, nil
}

// Index adds chunks to the owner's keyword index.
func (s *BleveKeywordSearcher) Index(ctx context.Context, owner string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	idx, err := s.indexFor(owner, true)
	if err != nil {
		return errors.ErrStoreFailure.WithCause(err)
	}

	batch := idx.NewBatch()
	for _, chunk := range chunks {
		doc := keywordDoc{
			FileID:  chunk.FileID,
			Source:  chunk.Source,
			Section: chunk.Section,
			Content: chunk.Content,
		}
		if err := batch.Index(chunk.ID, doc); err != nil {
			return errors.ErrStoreFailure.WithCause(err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return errors.ErrStoreFailure.WithCause(err)
	}
	return nil
}

// Search returns up to topK keyword matches for the query text.
func (s *BleveKeywordSearcher) Search(ctx context.Context, owner, queryText string, topK int, opts *SearchOptions) ([]*SearchResult, error) {
	idx, err := s.indexFor(owner, false)
	if err != nil {
		return nil, errors.ErrStoreFailure.WithCause(err)
	}
	if idx == nil {
		return nil, nil
	}

	match := bleve.NewMatchQuery(queryText)
	match.SetField("content")

	var q query.Query = match
	if opts != nil && len(opts.FileIDs) > 0 {
		fileFilter := bleve.NewBooleanQuery()
		for _, fileID := range opts.FileIDs {
			term := bleve.NewTermQuery(fileID)
			term.SetField("file_id")
			fileFilter.AddShould(term)
		}
		combined := bleve.NewBooleanQuery()
		combined.AddMust(match, fileFilter)
		q = combined
	}

	req := bleve.NewSearchRequestOptions(q, topK, 0, false)
	req.Fields = []string{"file_id", "source", "section", "content"}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.ErrStoreFailure.WithCause(err)
	}

	results := make([]*SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		result := &SearchResult{
			ID:    hit.ID,
			Score: float32(hit.Score),
		}
		if v, ok := hit.Fields["file_id"].(string); ok {
			result.FileID = v
		}
		if v, ok := hit.Fields["source"].(string); ok {
			result.Source = v
		}
		if v, ok := hit.Fields["section"].(string); ok {
			result.Section = v
		}
		if v, ok := hit.Fields["content"].(string); ok {
			result.Content = v
		}
		results = append(results, result)
	}
	return results, nil
}

// DeleteByFile removes every indexed chunk of one document.
func (s *BleveKeywordSearcher) DeleteByFile(ctx context.Context, owner, fileID string) error {
	idx, err := s.indexFor(owner, false)
	if err != nil {
		return errors.ErrStoreFailure.WithCause(err)
	}
	if idx == nil {
		return nil
	}

	term := bleve.NewTermQuery(fileID)
	term.SetField("file_id")

	// Documents are deleted in pages; a single pass covers any realistic
	// per-file chunk count.
	req := bleve.NewSearchRequestOptions(term, 10000, 0, false)
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return errors.ErrStoreFailure.WithCause(err)
	}

	batch := idx.NewBatch()
	for _, hit := range res.Hits {
		batch.Delete(hit.ID)
	}
	if err := idx.Batch(batch); err != nil {
		return errors.ErrStoreFailure.WithCause(err)
	}
	return nil
}

// Close closes all open indexes.
func (s *BleveKeywordSearcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, idx := range s.indexes {
		if err := idx.Close(); err != nil {
			logger.Warnw("Failed to close keyword index", "index", name, "error", err.Error())
		}
		delete(s.indexes, name)
	}
	return nil
}

// NoopKeywordSearcher disables keyword search; retrieval runs vector-only.
type NoopKeywordSearcher struct{}

var _ KeywordSearcher = (*NoopKeywordSearcher)(nil)

func (NoopKeywordSearcher) Index(context.Context, string, []*Chunk) error {
	return nil
}

func (NoopKeywordSearcher) Search(context.Context, string, string, int, *SearchOptions) ([]*SearchResult, error) {
	return nil, nil
}

func (NoopKeywordSearcher) DeleteByFile(context.Context, string, string) error {
	return nil
}

func (NoopKeywordSearcher) Close() error { return nil }
