package biz

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/vektor-io/ragd/internal/ragd/store"
	"github.com/vektor-io/ragd/pkg/tokenizer"
)

func newTestTokenizer(t *testing.T) *tokenizer.Tokenizer {
	t.Helper()
	tok, err := tokenizer.New(tokenizer.DefaultEncoding)
	if err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}
	return tok
}

// fakeEmbedProvider returns deterministic vectors and can be told to fail
// for specific texts.
type fakeEmbedProvider struct {
	mu        sync.Mutex
	dimension int
	failTexts map[string]bool
	failAll   bool
	calls     []string
}

func newFakeEmbedProvider(dimension int) *fakeEmbedProvider {
	return &fakeEmbedProvider{
		dimension: dimension,
		failTexts: make(map[string]bool),
	}
}

func (f *fakeEmbedProvider) EmbedSingle(_ context.Context, text, _ string) ([]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	if f.failAll || f.failTexts[text] {
		return nil, fmt.Errorf("embedding failed for %q", text)
	}

	// A cheap content-dependent vector so distinct texts embed distinctly.
	v := make([]float32, f.dimension)
	for i, r := range text {
		v[i%f.dimension] += float32(r)
	}
	return v, nil
}

func (f *fakeEmbedProvider) ListModels(context.Context) ([]string, error) {
	return []string{"nomic-embed-text"}, nil
}

func (f *fakeEmbedProvider) PullModel(context.Context, string) error { return nil }

func (f *fakeEmbedProvider) Name() string { return "fake" }

func (f *fakeEmbedProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeChatProvider records the prompt it was given.
type fakeChatProvider struct {
	answer     string
	err        error
	lastPrompt string
	calls      int
}

func (f *fakeChatProvider) Generate(_ context.Context, prompt, _ string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeChatProvider) Name() string { return "fake" }

// fakeVectorStore keeps chunks in memory and serves canned search hits.
type fakeVectorStore struct {
	mu          sync.Mutex
	collections map[string]int
	chunks      map[string][]*store.Chunk
	searchHits  []*store.SearchResult
	searchErr   error
	upsertErr   error
	deleted     []string
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{
		collections: make(map[string]int),
		chunks:      make(map[string][]*store.Chunk),
	}
}

func (f *fakeVectorStore) EnsureCollection(_ context.Context, owner string, dimension int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[owner] = dimension
	return nil
}

func (f *fakeVectorStore) Upsert(_ context.Context, owner string, chunks []*store.Chunk) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[owner] = append(f.chunks[owner], chunks...)
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, _ string, _ []float32, topK int, _ *store.SearchOptions) ([]*store.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.searchHits) > topK {
		return f.searchHits[:topK], nil
	}
	return f.searchHits, nil
}

func (f *fakeVectorStore) DeleteByFile(_ context.Context, owner, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, owner+"/"+fileID)
	return nil
}

func (f *fakeVectorStore) Count(_ context.Context, owner string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.chunks[owner])), nil
}

func (f *fakeVectorStore) CountByFile(_ context.Context, owner, fileID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, chunk := range f.chunks[owner] {
		if chunk.FileID == fileID {
			n++
		}
	}
	return n, nil
}

func (f *fakeVectorStore) Close(context.Context) error { return nil }

func (f *fakeVectorStore) stored(owner string) []*store.Chunk {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chunks[owner]
}

// fakeKeywordSearcher serves canned keyword hits.
type fakeKeywordSearcher struct {
	mu         sync.Mutex
	searchHits []*store.SearchResult
	searchErr  error
	indexed    []*store.Chunk
	deleted    []string
}

func (f *fakeKeywordSearcher) Index(_ context.Context, _ string, chunks []*store.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, chunks...)
	return nil
}

func (f *fakeKeywordSearcher) Search(_ context.Context, _, _ string, topK int, _ *store.SearchOptions) ([]*store.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.searchHits) > topK {
		return f.searchHits[:topK], nil
	}
	return f.searchHits, nil
}

func (f *fakeKeywordSearcher) DeleteByFile(_ context.Context, owner, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, owner+"/"+fileID)
	return nil
}

func (f *fakeKeywordSearcher) Close() error { return nil }
