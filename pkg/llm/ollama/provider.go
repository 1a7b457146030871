// Package ollama implements the llm provider interfaces against an Ollama
// server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/vektor-io/ragd/pkg/llm"
)

const ProviderName = "ollama"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config holds Ollama connection settings.
type Config struct {
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// ChatModel is the model used for generation.
	ChatModel string `json:"chat-model" mapstructure:"chat-model"`

	// EmbedTimeout bounds a single embedding call.
	EmbedTimeout time.Duration `json:"embed-timeout" mapstructure:"embed-timeout"`

	// GenerateTimeout bounds a single generation call. Generation is much
	// slower than embedding.
	GenerateTimeout time.Duration `json:"generate-timeout" mapstructure:"generate-timeout"`
}

// DefaultConfig returns defaults matching a local Ollama install.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "http://localhost:11434",
		ChatModel:       "llama3.1:8b",
		EmbedTimeout:    60 * time.Second,
		GenerateTimeout: 2 * time.Minute,
	}
}

// Provider is an Ollama-backed llm.Provider.
type Provider struct {
	config     *Config
	httpClient *http.Client

	// mu guards known, a cache of models confirmed available so the tags
	// endpoint is not hit on every embedding call.
	mu    sync.RWMutex
	known map[string]bool
}

// NewProvider builds a Provider from a configuration map. Unset keys fall
// back to defaults.
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()
	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["embed_timeout"].(time.Duration); ok && v > 0 {
		cfg.EmbedTimeout = v
	}
	if v, ok := configMap["generate_timeout"].(time.Duration); ok && v > 0 {
		cfg.GenerateTimeout = v
	}
	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig builds a Provider from structured configuration.
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		// Per-call deadlines are applied via context; the client timeout
		// is a backstop covering the slowest operation.
		httpClient: &http.Client{Timeout: cfg.GenerateTimeout},
		known:      make(map[string]bool),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return ProviderName
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedSingle embeds one text. If the model is not yet available the
// provider pulls it and retries exactly once.
func (p *Provider) EmbedSingle(ctx context.Context, text, model string) ([]float32, error) {
	if err := p.ensureModel(ctx, model); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.EmbedTimeout)
	defer cancel()

	reqBody := embedRequest{Model: model, Prompt: text}
	var resp embedResponse
	if err := p.postJSON(ctx, "/api/embeddings", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}

	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding in response for model %s", model)
	}
	return resp.Embedding, nil
}

// ensureModel confirms model availability, pulling it if absent. The result
// is cached so steady-state embedding calls skip the round trip.
func (p *Provider) ensureModel(ctx context.Context, model string) error {
	p.mu.RLock()
	ok := p.known[model]
	p.mu.RUnlock()
	if ok {
		return nil
	}

	models, err := p.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	available := false
	for _, m := range models {
		if m == model || strings.TrimSuffix(m, ":latest") == model {
			available = true
			break
		}
	}

	if !available {
		logger.Infof("Model %s not found, attempting to pull", model)
		if err := p.PullModel(ctx, model); err != nil {
			return fmt.Errorf("model %s not available and pull failed: %w", model, err)
		}
	}

	p.mu.Lock()
	p.known[model] = true
	p.mu.Unlock()
	return nil
}

// ListModels lists models available at the server.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models failed with status %d", resp.StatusCode)
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode list models response: %w", err)
	}

	models := make([]string, len(result.Models))
	for i, m := range result.Models {
		models[i] = m.Name
	}
	return models, nil
}

// PullModel fetches a model to the server.
func (p *Provider) PullModel(ctx context.Context, model string) error {
	reqBody := map[string]any{"name": model, "stream": false}
	if err := p.postJSON(ctx, "/api/pull", reqBody, &struct{}{}); err != nil {
		return fmt.Errorf("pull model %s failed: %w", model, err)
	}
	return nil
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	System string `json:"system,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate produces a completion for prompt using the configured chat model.
func (p *Provider) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.GenerateTimeout)
	defer cancel()

	reqBody := generateRequest{
		Model:  p.config.ChatModel,
		Prompt: prompt,
		Stream: false,
		System: systemPrompt,
	}
	var resp generateResponse
	if err := p.postJSON(ctx, "/api/generate", reqBody, &resp); err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	return resp.Response, nil
}

// Ping checks that the server is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}

// postJSON marshals reqBody, posts it to path and decodes the response into
// out.
func (p *Provider) postJSON(ctx context.Context, path string, reqBody, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
