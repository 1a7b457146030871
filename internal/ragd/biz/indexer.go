package biz

import (
	"context"
	"strings"

	"github.com/kart-io/logger"

	"github.com/vektor-io/ragd/internal/model"
	"github.com/vektor-io/ragd/internal/pkg/preprocess"
	"github.com/vektor-io/ragd/internal/pkg/textutil"
	"github.com/vektor-io/ragd/internal/ragd/store"
	"github.com/vektor-io/ragd/pkg/errors"
)

// IndexRequest describes one ingestion call.
type IndexRequest struct {
	// Owner selects the collection to write into. Required.
	Owner string
	// FileID identifies the document. Derived from the content hash when
	// empty, which makes re-uploads of identical content idempotent.
	FileID string
	// FileName is the human-readable document name.
	FileName string
	// Raw is the uploaded document content. Required.
	Raw []byte
	// ContentType selects the preprocessing path. Guessed from FileName
	// when empty.
	ContentType string
	// EmbedModel names the embedding model. Defaults to the configured
	// model and must be on the approved list when one is set.
	EmbedModel string
}

// IndexerConfig holds ingestion settings.
type IndexerConfig struct {
	DefaultEmbedModel string
	// ApprovedModels whitelists embedding models. Empty allows any.
	ApprovedModels []string
	// MinChunkSize triggers small-chunk merging when positive.
	MinChunkSize int
}

// Indexer runs the ingestion pipeline: preprocess, chunk, embed, store.
type Indexer struct {
	vectors  store.VectorStore
	keywords store.KeywordSearcher
	preproc  *preprocess.Preprocessor
	chunker  *Chunker
	embedder *BatchEmbedder
	config   IndexerConfig
}

// NewIndexer creates an Indexer.
func NewIndexer(vectors store.VectorStore, keywords store.KeywordSearcher, preproc *preprocess.Preprocessor, chunker *Chunker, embedder *BatchEmbedder, config IndexerConfig) *Indexer {
	return &Indexer{
		vectors:  vectors,
		keywords: keywords,
		preproc:  preproc,
		chunker:  chunker,
		embedder: embedder,
		config:   config,
	}
}

// Index ingests one document. Chunks whose embedding fails are skipped and
// counted; if every chunk fails nothing is written and the call errors.
func (i *Indexer) Index(ctx context.Context, req *IndexRequest) (*model.IndexResult, error) {
	if strings.TrimSpace(req.Owner) == "" {
		return nil, errors.ErrInvalidRequest.WithMessagef("owner must not be empty")
	}
	if len(req.Raw) == 0 {
		return nil, errors.ErrInvalidRequest.WithMessagef("document content must not be empty")
	}

	embedModel := req.EmbedModel
	if embedModel == "" {
		embedModel = i.config.DefaultEmbedModel
	}
	if err := i.checkModel(embedModel); err != nil {
		return nil, err
	}

	fileID := req.FileID
	if fileID == "" {
		fileID = textutil.HashString(string(req.Raw))
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = preprocess.ContentTypeForFilename(req.FileName)
	}

	text := i.preproc.ProcessBytes(req.Raw, contentType)
	chunks := i.chunker.SemanticChunk(text, req.FileName)
	if i.config.MinChunkSize > 0 {
		chunks = i.chunker.MergeSmallChunks(chunks, i.config.MinChunkSize)
	}
	if len(chunks) == 0 {
		logger.Infow("Document produced no chunks", "owner", req.Owner, "file_id", fileID)
		return &model.IndexResult{}, nil
	}

	dimension, err := i.embedder.Dimension(ctx, embedModel)
	if err != nil {
		return nil, err
	}
	if err := i.vectors.EnsureCollection(ctx, req.Owner, dimension); err != nil {
		return nil, err
	}

	if err := i.embedder.EmbedChunks(ctx, chunks, embedModel); err != nil {
		return nil, err
	}

	stored := make([]*store.Chunk, 0, len(chunks))
	skipped := 0
	for _, chunk := range chunks {
		if chunk.Embedding == nil {
			skipped++
			continue
		}
		if len(chunk.Embedding) != dimension {
			return nil, errors.ErrDimensionMismatch.WithMessagef(
				"model %s returned dimension %d, collection expects %d",
				embedModel, len(chunk.Embedding), dimension)
		}
		stored = append(stored, &store.Chunk{
			ID:         store.ChunkID(fileID, chunk.Index),
			FileID:     fileID,
			Source:     req.FileName,
			Section:    chunk.Section,
			Content:    chunk.Content,
			ChunkIndex: chunk.Index,
			Embedding:  chunk.Embedding,
		})
	}

	if len(stored) == 0 {
		return nil, errors.ErrIndexFailed.WithMessagef(
			"all %d chunks failed to embed for file %s", len(chunks), fileID)
	}

	if err := i.vectors.Upsert(ctx, req.Owner, stored); err != nil {
		// A failed upsert may have written part of the document; remove
		// whatever landed so the document is absent rather than truncated.
		if delErr := i.vectors.DeleteByFile(ctx, req.Owner, fileID); delErr != nil {
			logger.Warnw("Rollback after failed upsert also failed",
				"owner", req.Owner, "file_id", fileID, "error", delErr.Error())
		}
		return nil, err
	}

	// Keyword indexing is best-effort; the vector store is the system of
	// record.
	if err := i.keywords.Index(ctx, req.Owner, stored); err != nil {
		logger.Warnw("Keyword indexing failed",
			"owner", req.Owner, "file_id", fileID, "error", err.Error())
	}

	logger.Infow("Indexed document",
		"owner", req.Owner,
		"file_id", fileID,
		"chunks_created", len(stored),
		"chunks_skipped", skipped)

	return &model.IndexResult{
		ChunksCreated: len(stored),
		ChunksSkipped: skipped,
	}, nil
}

func (i *Indexer) checkModel(embedModel string) error {
	if len(i.config.ApprovedModels) == 0 {
		return nil
	}
	for _, approved := range i.config.ApprovedModels {
		if approved == embedModel {
			return nil
		}
	}
	return errors.ErrModelNotApproved.WithMessagef("embedding model %s is not approved", embedModel)
}
