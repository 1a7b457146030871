// Package llm provides the provider abstraction for embedding and text
// generation backends.
//
// The retrieval core depends only on these interfaces; concrete providers
// register themselves by name and are selected from configuration at
// startup.
package llm

import (
	"context"
	"fmt"
	"sync"
)

// EmbeddingProvider maps text onto fixed-size numeric vectors.
type EmbeddingProvider interface {
	// EmbedSingle returns the embedding of one text under the named model.
	// A failed embedding returns an error for that text only; callers
	// running batches isolate the failure.
	EmbedSingle(ctx context.Context, text, model string) ([]float32, error)

	// ListModels lists the models currently available at the provider.
	ListModels(ctx context.Context) ([]string, error)

	// PullModel asks the provider to fetch a model that is not yet
	// available locally.
	PullModel(ctx context.Context, model string) error

	// Name returns the provider name.
	Name() string
}

// ChatProvider generates text from prompts.
type ChatProvider interface {
	// Generate produces a completion for prompt, optionally steered by a
	// system prompt.
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)

	// Name returns the provider name.
	Name() string
}

// Provider supports both embedding and generation.
type Provider interface {
	EmbeddingProvider
	ChatProvider
}

// ProviderFactory builds a provider from a configuration map.
type ProviderFactory func(config map[string]any) (Provider, error)

var registry = struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}{factories: make(map[string]ProviderFactory)}

// RegisterProvider registers a provider factory under a name. Called from
// provider package init functions.
func RegisterProvider(name string, factory ProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.factories[name] = factory
}

// NewProvider creates a provider instance by name.
func NewProvider(name string, config map[string]any) (Provider, error) {
	registry.mu.RLock()
	factory, ok := registry.factories[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return factory(config)
}

// ListProviders lists the registered provider names.
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	return names
}
