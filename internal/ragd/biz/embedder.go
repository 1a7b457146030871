package biz

import (
	"context"
	"fmt"
	"sync"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"

	"github.com/vektor-io/ragd/internal/model"
	"github.com/vektor-io/ragd/pkg/errors"
	"github.com/vektor-io/ragd/pkg/llm"
)

// knownDimensions maps embedding models to their vector dimensions, used
// when the provider cannot be probed.
var knownDimensions = map[string]int{
	"nomic-embed-text": 768,
	"bge-m3":           1024,
	"e5-large":         1024,
	"gte-large":        1024,
}

// BatchEmbedder embeds chunks in bounded concurrent batches. Within a
// batch, chunks are embedded in parallel on a worker pool; batches run
// sequentially so provider load stays bounded.
type BatchEmbedder struct {
	provider  llm.EmbeddingProvider
	pool      *ants.Pool
	batchSize int
}

// NewBatchEmbedder creates a BatchEmbedder. batchSize caps both the batch
// length and the worker pool size.
func NewBatchEmbedder(provider llm.EmbeddingProvider, batchSize int) (*BatchEmbedder, error) {
	if batchSize <= 0 {
		batchSize = 10
	}
	pool, err := ants.NewPool(batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding pool: %w", err)
	}
	return &BatchEmbedder{
		provider:  provider,
		pool:      pool,
		batchSize: batchSize,
	}, nil
}

// Release frees the worker pool.
func (e *BatchEmbedder) Release() {
	e.pool.Release()
}

// EmbedChunks attaches embeddings to chunks in place, preserving input
// order. A chunk whose embedding fails is logged and left with a nil
// embedding; the rest of the batch is unaffected.
func (e *BatchEmbedder) EmbedChunks(ctx context.Context, chunks []model.Chunk, embedModel string) error {
	for start := 0; start < len(chunks); start += e.batchSize {
		end := start + e.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := e.embedBatch(ctx, chunks[start:end], embedModel); err != nil {
			return err
		}
	}
	return nil
}

// embedBatch fans one batch out over the pool. Results land in the slot of
// their originating chunk, so order is preserved regardless of completion
// order.
func (e *BatchEmbedder) embedBatch(ctx context.Context, batch []model.Chunk, embedModel string) error {
	var wg sync.WaitGroup
	for i := range batch {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return err
		}

		wg.Add(1)
		idx := i
		submitErr := e.pool.Submit(func() {
			defer wg.Done()
			embedding, err := e.provider.EmbedSingle(ctx, batch[idx].Content, embedModel)
			if err != nil {
				logger.Warnw("Failed to embed chunk",
					"chunk_index", batch[idx].Index,
					"source", batch[idx].Source,
					"error", err.Error())
				return
			}
			batch[idx].Embedding = embedding
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return errors.ErrProviderUnavailable.WithCause(submitErr)
		}
	}
	wg.Wait()
	return nil
}

// EmbedQuery embeds a single query text.
func (e *BatchEmbedder) EmbedQuery(ctx context.Context, query, embedModel string) ([]float32, error) {
	embedding, err := e.provider.EmbedSingle(ctx, query, embedModel)
	if err != nil {
		return nil, errors.ErrProviderUnavailable.WithCause(err)
	}
	return embedding, nil
}

// Dimension determines the vector dimension of an embedding model by
// probing it with a short sentinel text, falling back to a table of known
// models when the provider is unreachable.
func (e *BatchEmbedder) Dimension(ctx context.Context, embedModel string) (int, error) {
	embedding, err := e.provider.EmbedSingle(ctx, "test", embedModel)
	if err == nil && len(embedding) > 0 {
		return len(embedding), nil
	}

	if dim, ok := knownDimensions[embedModel]; ok {
		logger.Warnw("Dimension probe failed, using known dimension",
			"model", embedModel, "dimension", dim)
		return dim, nil
	}
	return 0, errors.ErrProviderUnavailable.WithMessagef(
		"cannot determine embedding dimension for model %s", embedModel)
}
