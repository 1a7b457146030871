// Package store defines the storage interfaces of the retrieval service and
// their Milvus and Bleve implementations. Every owner gets an isolated
// collection; nothing is shared across owners.
package store

import (
	"context"
	"fmt"

	"github.com/vektor-io/ragd/internal/pkg/textutil"
)

// Chunk is the storage representation of an embedded document chunk.
type Chunk struct {
	// ID is the primary key, derived from the document id and chunk index
	// so re-ingesting a document replaces its rows.
	ID string
	// FileID identifies the source document within the owner's collection.
	FileID string
	// Source is the human-readable document name.
	Source string
	// Section is the nearest enclosing header label, if any.
	Section string
	// Content is the chunk text.
	Content string
	// ChunkIndex is the chunk position within the document.
	ChunkIndex int
	// Embedding is the chunk vector.
	Embedding []float32
}

// SearchResult is one retrieval hit.
type SearchResult struct {
	ID      string
	FileID  string
	Source  string
	Section string
	Content string
	// Score is on a higher-is-better scale for both vector and keyword
	// search.
	Score float32
}

// SearchOptions narrows a search.
type SearchOptions struct {
	// FileIDs restricts hits to the listed documents. Empty means all.
	FileIDs []string
}

// VectorStore is the dense retrieval backend.
type VectorStore interface {
	// EnsureCollection creates the owner's collection if missing.
	// Idempotent.
	EnsureCollection(ctx context.Context, owner string, dimension int) error

	// Upsert writes chunks, replacing rows with matching ids.
	Upsert(ctx context.Context, owner string, chunks []*Chunk) error

	// Search returns up to topK nearest chunks by cosine similarity,
	// ordered by descending score.
	Search(ctx context.Context, owner string, embedding []float32, topK int, opts *SearchOptions) ([]*SearchResult, error)

	// DeleteByFile removes every chunk of one document.
	DeleteByFile(ctx context.Context, owner, fileID string) error

	// Count returns the number of chunks stored for the owner.
	Count(ctx context.Context, owner string) (int64, error)

	// CountByFile returns the number of chunks stored for one document.
	CountByFile(ctx context.Context, owner, fileID string) (int64, error)

	// Close releases the connection.
	Close(ctx context.Context) error
}

// KeywordSearcher is the sparse retrieval backend. Implementations may be
// inert; retrieval degrades to vector-only search when keyword search
// returns nothing.
type KeywordSearcher interface {
	// Index makes chunks findable by keyword search.
	Index(ctx context.Context, owner string, chunks []*Chunk) error

	// Search returns up to topK keyword matches ordered by descending
	// score.
	Search(ctx context.Context, owner, query string, topK int, opts *SearchOptions) ([]*SearchResult, error)

	// DeleteByFile removes every chunk of one document.
	DeleteByFile(ctx context.Context, owner, fileID string) error

	// Close releases index resources.
	Close() error
}

// CollectionName maps an owner id onto a valid collection name. The mapping
// is deterministic and collision-free for sane owner ids.
func CollectionName(owner string) string {
	return fmt.Sprintf("rag_agent_%s", textutil.SanitizeIdentifier(owner))
}

// ChunkID builds the primary key for a chunk.
func ChunkID(fileID string, chunkIndex int) string {
	return fmt.Sprintf("%s_%d", fileID, chunkIndex)
}
