package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/vektor-io/ragd/pkg/component/milvus"
	"github.com/vektor-io/ragd/pkg/errors"
)

// MilvusStore implements VectorStore on a Milvus cluster.
type MilvusStore struct {
	client *milvus.Client
}

// NewMilvusStore creates a Milvus-backed vector store.
func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return &MilvusStore{client: client}
}

var _ VectorStore = (*MilvusStore)(nil)

// EnsureCollection creates the owner's collection if missing.
func (s *MilvusStore) EnsureCollection(ctx context.Context, owner string, dimension int) error {
	schema := &milvus.CollectionSchema{
		Name:             CollectionName(owner),
		Description:      fmt.Sprintf("document chunks for %s", owner),
		Dimension:        dimension,
		PrimaryKeyMaxLen: 256,
		MetaFields: []milvus.MetaField{
			{Name: "document_id", DataType: entity.FieldTypeVarChar, MaxLen: 128},
			{Name: "source", DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: "section", DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: "content", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
			{Name: "chunk_index", DataType: entity.FieldTypeInt64},
		},
	}
	if err := s.client.EnsureCollection(ctx, schema); err != nil {
		return errors.ErrStoreFailure.WithCause(err)
	}
	return nil
}

// Upsert writes chunks into the owner's collection. Chunks whose embedding
// dimension disagrees with the first chunk are rejected before anything is
// written.
func (s *MilvusStore) Upsert(ctx context.Context, owner string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	dim := len(chunks[0].Embedding)
	for _, chunk := range chunks {
		if len(chunk.Embedding) != dim {
			return errors.ErrDimensionMismatch.WithMessagef(
				"chunk %s has dimension %d, expected %d", chunk.ID, len(chunk.Embedding), dim)
		}
	}

	data := &milvus.UpsertData{
		IDs:        make([]string, len(chunks)),
		Embeddings: make([][]float32, len(chunks)),
		Metadata: map[string][]any{
			"document_id": make([]any, len(chunks)),
			"source":      make([]any, len(chunks)),
			"section":     make([]any, len(chunks)),
			"content":     make([]any, len(chunks)),
			"chunk_index": make([]any, len(chunks)),
		},
	}
	for i, chunk := range chunks {
		data.IDs[i] = chunk.ID
		data.Embeddings[i] = chunk.Embedding
		data.Metadata["document_id"][i] = chunk.FileID
		data.Metadata["source"][i] = chunk.Source
		data.Metadata["section"][i] = chunk.Section
		data.Metadata["content"][i] = chunk.Content
		data.Metadata["chunk_index"][i] = int64(chunk.ChunkIndex)
	}

	if err := s.client.Upsert(ctx, CollectionName(owner), data); err != nil {
		return errors.ErrStoreFailure.WithCause(err)
	}
	return nil
}

var outputFields = []string{"document_id", "source", "section", "content"}

// Search returns the topK nearest chunks.
func (s *MilvusStore) Search(ctx context.Context, owner string, embedding []float32, topK int, opts *SearchOptions) ([]*SearchResult, error) {
	expr := ""
	if opts != nil && len(opts.FileIDs) > 0 {
		expr = fileIDFilter(opts.FileIDs)
	}

	hits, err := s.client.Search(ctx, CollectionName(owner), embedding, topK, expr, outputFields)
	if err != nil {
		return nil, errors.ErrStoreFailure.WithCause(err)
	}

	results := make([]*SearchResult, 0, len(hits))
	for _, hit := range hits {
		result := &SearchResult{
			ID:    hit.ID,
			Score: hit.Score,
		}
		if v, ok := hit.Metadata["document_id"].(string); ok {
			result.FileID = v
		}
		if v, ok := hit.Metadata["source"].(string); ok {
			result.Source = v
		}
		if v, ok := hit.Metadata["section"].(string); ok {
			result.Section = v
		}
		if v, ok := hit.Metadata["content"].(string); ok {
			result.Content = v
		}
		results = append(results, result)
	}
	return results, nil
}

// DeleteByFile removes every chunk of one document.
func (s *MilvusStore) DeleteByFile(ctx context.Context, owner, fileID string) error {
	expr := fmt.Sprintf("document_id == %s", quoteExprString(fileID))
	if err := s.client.DeleteByExpr(ctx, CollectionName(owner), expr); err != nil {
		return errors.ErrStoreFailure.WithCause(err)
	}
	return nil
}

// Count returns the number of chunks stored for the owner. A missing
// collection counts as empty.
func (s *MilvusStore) Count(ctx context.Context, owner string) (int64, error) {
	name := CollectionName(owner)
	exists, err := s.client.HasCollection(ctx, name)
	if err != nil {
		return 0, errors.ErrStoreFailure.WithCause(err)
	}
	if !exists {
		return 0, nil
	}

	count, err := s.client.CountByExpr(ctx, name, "")
	if err != nil {
		return 0, errors.ErrStoreFailure.WithCause(err)
	}
	return count, nil
}

// CountByFile returns the number of chunks stored for one document.
func (s *MilvusStore) CountByFile(ctx context.Context, owner, fileID string) (int64, error) {
	name := CollectionName(owner)
	exists, err := s.client.HasCollection(ctx, name)
	if err != nil {
		return 0, errors.ErrStoreFailure.WithCause(err)
	}
	if !exists {
		return 0, nil
	}

	expr := fmt.Sprintf("document_id == %s", quoteExprString(fileID))
	count, err := s.client.CountByExpr(ctx, name, expr)
	if err != nil {
		return 0, errors.ErrStoreFailure.WithCause(err)
	}
	return count, nil
}

// Close closes the Milvus connection.
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func fileIDFilter(fileIDs []string) string {
	quoted := make([]string, len(fileIDs))
	for i, id := range fileIDs {
		quoted[i] = quoteExprString(id)
	}
	return fmt.Sprintf("document_id in [%s]", strings.Join(quoted, ", "))
}

// quoteExprString quotes a value for use in a Milvus filter expression.
func quoteExprString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
