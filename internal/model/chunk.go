// Package model defines the shared data model of the retrieval service.
package model

// Chunk is a contiguous unit of source text selected for independent
// retrieval. Chunks are created in bulk by the chunker, embedded once and
// never mutated after indexing.
type Chunk struct {
	// Content is the chunk text.
	Content string `json:"content"`

	// Index is the position of the chunk within its source document,
	// assigned in strictly increasing emission order starting at 0.
	Index int `json:"chunk_index"`

	// Section is the nearest enclosing header label, if any.
	Section string `json:"section,omitempty"`

	// Source identifies the originating document.
	Source string `json:"source,omitempty"`

	// TokenCount is the token length of Content under the deployment's
	// encoding.
	TokenCount int `json:"token_count"`

	// Embedding is the vector attached by the embedding step. Nil until
	// embedded; nil after a failed embedding, in which case the chunk is
	// skipped by ingestion.
	Embedding []float32 `json:"-"`
}

// IndexResult reports the outcome of one ingestion call.
type IndexResult struct {
	// ChunksCreated is the number of chunks successfully written to the
	// vector store. May be lower than the chunk count under partial
	// embedding failure.
	ChunksCreated int `json:"chunks_created"`

	// ChunksSkipped counts chunks dropped because their embedding failed.
	ChunksSkipped int `json:"chunks_skipped,omitempty"`
}

// QueryResult is the outcome of a generative query: an answer plus the
// passages it was grounded on.
type QueryResult struct {
	Answer  string        `json:"answer"`
	Sources []ChunkSource `json:"sources"`
}

// ChunkSource describes one passage used to ground an answer.
type ChunkSource struct {
	FileID  string  `json:"file_id"`
	Source  string  `json:"source"`
	Section string  `json:"section,omitempty"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}
