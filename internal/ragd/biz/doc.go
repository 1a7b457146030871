// Package biz implements the retrieval pipeline: semantic chunking, batch
// embedding, hybrid search with score fusion, reranking and grounded answer
// generation.
package biz
