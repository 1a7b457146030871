package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/vektor-io/ragd/internal/ragd/store"
	"github.com/vektor-io/ragd/pkg/errors"
	"github.com/vektor-io/ragd/pkg/llm"
)

const defaultAnswerPrompt = `Use the following context to answer the question. If the context does not contain the answer, say so.

Context:
{{context}}

Question: {{question}}

Answer:`

const noContextAnswer = "I could not find relevant information to answer this question."

// Generator produces grounded answers from retrieved passages.
type Generator struct {
	provider     llm.ChatProvider
	promptTmpl   string
	systemPrompt string
}

// NewGenerator creates a Generator with the default prompt template.
func NewGenerator(provider llm.ChatProvider) *Generator {
	return &Generator{
		provider:   provider,
		promptTmpl: defaultAnswerPrompt,
	}
}

// WithSystemPrompt sets a system prompt for generation.
func (g *Generator) WithSystemPrompt(prompt string) *Generator {
	g.systemPrompt = prompt
	return g
}

// Generate answers the question from the passages. Without passages it
// returns a fixed fallback answer and never calls the provider.
func (g *Generator) Generate(ctx context.Context, question string, passages []*store.SearchResult) (string, error) {
	if len(passages) == 0 {
		return noContextAnswer, nil
	}

	prompt := strings.ReplaceAll(g.promptTmpl, "{{context}}", buildContextBlock(passages))
	prompt = strings.ReplaceAll(prompt, "{{question}}", question)

	answer, err := g.provider.Generate(ctx, prompt, g.systemPrompt)
	if err != nil {
		return "", errors.ErrProviderUnavailable.WithCause(err)
	}
	return strings.TrimSpace(answer), nil
}

// buildContextBlock renders passages as numbered entries with their source
// attribution.
func buildContextBlock(passages []*store.SearchResult) string {
	var b strings.Builder
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] Source: %s", i+1, p.Source)
		if p.Section != "" {
			fmt.Fprintf(&b, " (%s)", p.Section)
		}
		b.WriteString("\n")
		b.WriteString(p.Content)
	}
	return b.String()
}
