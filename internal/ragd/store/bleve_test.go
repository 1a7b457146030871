package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunks() []*Chunk {
	return []*Chunk{
		{ID: "doc-1_0", FileID: "doc-1", Source: "guide.md", Section: "Setup", Content: "install the milvus binary and start it"},
		{ID: "doc-1_1", FileID: "doc-1", Source: "guide.md", Section: "Usage", Content: "run queries against the collection"},
		{ID: "doc-2_0", FileID: "doc-2", Source: "notes.txt", Content: "unrelated grocery list with apples"},
	}
}

func newTestSearcher(t *testing.T) *BleveKeywordSearcher {
	t.Helper()
	s := NewBleveKeywordSearcher("")
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Index(context.Background(), "agent", testChunks()))
	return s
}

func TestBleveSearchFindsByKeyword(t *testing.T) {
	s := newTestSearcher(t)

	results, err := s.Search(context.Background(), "agent", "milvus", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-1_0", results[0].ID)
	assert.Equal(t, "doc-1", results[0].FileID)
	assert.Equal(t, "guide.md", results[0].Source)
	assert.Equal(t, "Setup", results[0].Section)
	assert.Greater(t, results[0].Score, float32(0))
}

func TestBleveSearchRespectsFileFilter(t *testing.T) {
	s := newTestSearcher(t)

	// "the" matches chunks of both documents; the filter keeps one.
	results, err := s.Search(context.Background(), "agent", "the", 10, &SearchOptions{FileIDs: []string{"doc-2"}})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "doc-2", r.FileID)
	}
}

func TestBleveSearchUnknownOwner(t *testing.T) {
	s := NewBleveKeywordSearcher("")
	t.Cleanup(func() { _ = s.Close() })

	results, err := s.Search(context.Background(), "nobody", "anything", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleveOwnersAreIsolated(t *testing.T) {
	s := newTestSearcher(t)
	require.NoError(t, s.Index(context.Background(), "other", []*Chunk{
		{ID: "x_0", FileID: "x", Content: "milvus elsewhere"},
	}))

	results, err := s.Search(context.Background(), "other", "milvus", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "x_0", results[0].ID)
}

func TestBleveDeleteByFile(t *testing.T) {
	s := newTestSearcher(t)

	require.NoError(t, s.DeleteByFile(context.Background(), "agent", "doc-1"))

	results, err := s.Search(context.Background(), "agent", "milvus", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	// The other document survives.
	results, err = s.Search(context.Background(), "agent", "apples", 10, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "rag_agent_team_a", CollectionName("team-a"))
	assert.Equal(t, CollectionName("x"), CollectionName("x"))
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "doc-1_3", ChunkID("doc-1", 3))
}
