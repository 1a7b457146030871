package biz

import (
	"strings"

	"github.com/kart-io/logger"

	"github.com/vektor-io/ragd/internal/model"
	"github.com/vektor-io/ragd/internal/pkg/textsplit"
	"github.com/vektor-io/ragd/pkg/tokenizer"
)

// Chunker splits cleaned document text into retrieval-sized chunks. It
// follows document structure when headers are present and falls back to
// fixed token windows for unstructured text.
type Chunker struct {
	tok        *tokenizer.Tokenizer
	targetSize int
	overlap    int
}

// NewChunker creates a Chunker. targetSize is the token budget per chunk;
// overlap only applies to the token-window fallback and must be smaller
// than targetSize.
func NewChunker(tok *tokenizer.Tokenizer, targetSize, overlap int) *Chunker {
	return &Chunker{
		tok:        tok,
		targetSize: targetSize,
		overlap:    overlap,
	}
}

// SemanticChunk splits text into chunks with strictly increasing indices
// starting at 0. Structured documents (more than one header section) are
// split along section and paragraph boundaries; unstructured text is
// windowed by tokens with the configured overlap.
func (c *Chunker) SemanticChunk(text, source string) []model.Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sections := textsplit.SplitByHeaders(text)

	var chunks []model.Chunk
	if len(sections) > 1 {
		for _, section := range sections {
			chunks = c.chunkSection(chunks, section, source)
		}
	} else {
		chunks = c.windowChunks(text, source)
	}

	chunks = c.applyOverlap(chunks)

	logger.Debugw("Chunked document", "source", source, "chunks", len(chunks))
	return chunks
}

// chunkSection appends the chunks of one header section. A section within
// the token budget becomes a single chunk; a larger one is packed greedily
// from its paragraphs.
func (c *Chunker) chunkSection(chunks []model.Chunk, section textsplit.Section, source string) []model.Chunk {
	content := strings.TrimSpace(section.Content)
	if content == "" {
		return chunks
	}

	if count := c.tok.Count(content); count <= c.targetSize {
		return append(chunks, model.Chunk{
			Content:    content,
			Index:      len(chunks),
			Section:    section.Label,
			Source:     source,
			TokenCount: count,
		})
	}

	var (
		current       []string
		currentTokens int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		content := strings.Join(current, "\n\n")
		chunks = append(chunks, model.Chunk{
			Content:    content,
			Index:      len(chunks),
			Section:    section.Label,
			Source:     source,
			TokenCount: c.tok.Count(content),
		})
		current = current[:0]
		currentTokens = 0
	}

	for _, para := range textsplit.SplitByParagraphs(content) {
		paraTokens := c.tok.Count(para)
		if currentTokens+paraTokens > c.targetSize {
			flush()
		}
		current = append(current, para)
		currentTokens += paraTokens
	}
	flush()

	return chunks
}

// windowChunks splits unstructured text into token windows of targetSize
// advancing by targetSize-overlap, so consecutive chunks share overlap
// tokens.
func (c *Chunker) windowChunks(text, source string) []model.Chunk {
	tokens := c.tok.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	step := c.targetSize - c.overlap
	if step <= 0 {
		step = c.targetSize
	}

	var chunks []model.Chunk
	for start := 0; start < len(tokens); start += step {
		end := start + c.targetSize
		if end > len(tokens) {
			end = len(tokens)
		}
		window := tokens[start:end]
		chunks = append(chunks, model.Chunk{
			Content:    c.tok.Decode(window),
			Index:      len(chunks),
			Source:     source,
			TokenCount: len(window),
		})
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// applyOverlap is the post-processing hook for cross-chunk overlap.
// Windowed chunks already overlap and structural chunks keep their natural
// boundaries, so chunks pass through unchanged.
func (c *Chunker) applyOverlap(chunks []model.Chunk) []model.Chunk {
	return chunks
}

// MergeSmallChunks merges a chunk below minSize tokens into its predecessor
// when both belong to the same section and the merge stays within the
// token budget. Indices are reassigned afterwards.
func (c *Chunker) MergeSmallChunks(chunks []model.Chunk, minSize int) []model.Chunk {
	if len(chunks) < 2 {
		return chunks
	}

	merged := make([]model.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if len(merged) > 0 {
			prev := &merged[len(merged)-1]
			if chunk.TokenCount < minSize &&
				prev.Section == chunk.Section &&
				prev.TokenCount+chunk.TokenCount <= c.targetSize {
				prev.Content = prev.Content + "\n\n" + chunk.Content
				prev.TokenCount = c.tok.Count(prev.Content)
				continue
			}
		}
		merged = append(merged, chunk)
	}

	for i := range merged {
		merged[i].Index = i
	}
	return merged
}
