package biz

import (
	"context"
	"strings"

	"github.com/kart-io/logger"

	"github.com/vektor-io/ragd/internal/model"
	"github.com/vektor-io/ragd/internal/ragd/store"
	"github.com/vektor-io/ragd/pkg/errors"
)

// Service is the business surface of the retrieval system.
type Service interface {
	// Index ingests one document into the owner's collection.
	Index(ctx context.Context, req *IndexRequest) (*model.IndexResult, error)

	// Retrieve returns ranked passages for a query.
	Retrieve(ctx context.Context, req *RetrieveRequest) ([]*store.SearchResult, error)

	// Query retrieves passages and generates a grounded answer.
	Query(ctx context.Context, req *RetrieveRequest) (*model.QueryResult, error)

	// DeleteDocument removes a document and all its chunks.
	DeleteDocument(ctx context.Context, owner, fileID string) error

	// Stats returns the number of chunks stored for the owner, or for one
	// of its documents when fileID is set.
	Stats(ctx context.Context, owner, fileID string) (int64, error)
}

type service struct {
	indexer   *Indexer
	retriever *Retriever
	generator *Generator
	vectors   store.VectorStore
	keywords  store.KeywordSearcher
}

// NewService composes the pipeline components into a Service.
func NewService(indexer *Indexer, retriever *Retriever, generator *Generator, vectors store.VectorStore, keywords store.KeywordSearcher) Service {
	return &service{
		indexer:   indexer,
		retriever: retriever,
		generator: generator,
		vectors:   vectors,
		keywords:  keywords,
	}
}

func (s *service) Index(ctx context.Context, req *IndexRequest) (*model.IndexResult, error) {
	return s.indexer.Index(ctx, req)
}

func (s *service) Retrieve(ctx context.Context, req *RetrieveRequest) ([]*store.SearchResult, error) {
	return s.retriever.Retrieve(ctx, req)
}

func (s *service) Query(ctx context.Context, req *RetrieveRequest) (*model.QueryResult, error) {
	passages, err := s.retriever.Retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, err := s.generator.Generate(ctx, req.Query, passages)
	if err != nil {
		return nil, err
	}

	sources := make([]model.ChunkSource, len(passages))
	for i, p := range passages {
		sources[i] = model.ChunkSource{
			FileID:  p.FileID,
			Source:  p.Source,
			Section: p.Section,
			Content: p.Content,
			Score:   p.Score,
		}
	}
	return &model.QueryResult{Answer: answer, Sources: sources}, nil
}

func (s *service) DeleteDocument(ctx context.Context, owner, fileID string) error {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(fileID) == "" {
		return errors.ErrInvalidRequest.WithMessagef("owner and file id must not be empty")
	}

	if err := s.vectors.DeleteByFile(ctx, owner, fileID); err != nil {
		return err
	}
	if err := s.keywords.DeleteByFile(ctx, owner, fileID); err != nil {
		logger.Warnw("Keyword index cleanup failed",
			"owner", owner, "file_id", fileID, "error", err.Error())
	}
	return nil
}

func (s *service) Stats(ctx context.Context, owner, fileID string) (int64, error) {
	if strings.TrimSpace(owner) == "" {
		return 0, errors.ErrInvalidRequest.WithMessagef("owner must not be empty")
	}
	if fileID != "" {
		return s.vectors.CountByFile(ctx, owner, fileID)
	}
	return s.vectors.Count(ctx, owner)
}
