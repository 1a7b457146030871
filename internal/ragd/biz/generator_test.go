package biz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vektor-io/ragd/internal/ragd/store"
)

func TestGenerateWithoutPassages(t *testing.T) {
	chat := &fakeChatProvider{answer: "should not be used"}
	generator := NewGenerator(chat)

	answer, err := generator.Generate(context.Background(), "what is this?", nil)
	require.NoError(t, err)
	assert.Equal(t, noContextAnswer, answer)
	// The provider is never called without grounding passages.
	assert.Zero(t, chat.calls)
}

func TestGenerateBuildsGroundedPrompt(t *testing.T) {
	chat := &fakeChatProvider{answer: "  the answer  "}
	generator := NewGenerator(chat)

	passages := []*store.SearchResult{
		{ID: "a", Source: "guide.md", Section: "Setup", Content: "install the binary"},
		{ID: "b", Source: "guide.md", Content: "run it"},
	}

	answer, err := generator.Generate(context.Background(), "how do I start?", passages)
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)

	assert.Contains(t, chat.lastPrompt, "install the binary")
	assert.Contains(t, chat.lastPrompt, "run it")
	assert.Contains(t, chat.lastPrompt, "guide.md")
	assert.Contains(t, chat.lastPrompt, "Setup")
	assert.Contains(t, chat.lastPrompt, "how do I start?")
	assert.NotContains(t, chat.lastPrompt, "{{context}}")
	assert.NotContains(t, chat.lastPrompt, "{{question}}")
}

func TestGenerateProviderFailure(t *testing.T) {
	chat := &fakeChatProvider{err: fmt.Errorf("model offline")}
	generator := NewGenerator(chat)

	_, err := generator.Generate(context.Background(), "q", []*store.SearchResult{
		{ID: "a", Content: "text"},
	})
	assert.Error(t, err)
}
