package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOllama struct {
	models    []string
	pulled    atomic.Int32
	embedDim  int
	embedHits atomic.Int32
}

func (f *fakeOllama) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		type m struct {
			Name string `json:"name"`
		}
		resp := struct {
			Models []m `json:"models"`
		}{}
		for _, name := range f.models {
			resp.Models = append(resp.Models, m{Name: name})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/pull", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.pulled.Add(1)
		f.models = append(f.models, req.Name)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	})
	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		f.embedHits.Add(1)
		embedding := make([]float64, f.embedDim)
		for i := range embedding {
			embedding[i] = 0.1
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": embedding})
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
			System string `json:"system"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "answer to: " + req.Prompt, "done": true})
	})
	return mux
}

func newTestProvider(t *testing.T, f *fakeOllama) *Provider {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.ChatModel = "test-chat"
	cfg.EmbedTimeout = 5 * time.Second
	cfg.GenerateTimeout = 5 * time.Second
	return NewProviderWithConfig(cfg)
}

func TestEmbedSingle(t *testing.T) {
	f := &fakeOllama{models: []string{"nomic-embed-text:latest"}, embedDim: 768}
	p := newTestProvider(t, f)

	embedding, err := p.EmbedSingle(context.Background(), "hello", "nomic-embed-text")
	require.NoError(t, err)
	assert.Len(t, embedding, 768)
	assert.Zero(t, f.pulled.Load())
}

func TestEmbedSinglePullsMissingModel(t *testing.T) {
	f := &fakeOllama{embedDim: 768}
	p := newTestProvider(t, f)

	embedding, err := p.EmbedSingle(context.Background(), "hello", "nomic-embed-text")
	require.NoError(t, err)
	assert.Len(t, embedding, 768)
	assert.Equal(t, int32(1), f.pulled.Load())

	// Availability is cached; a second call pulls nothing.
	_, err = p.EmbedSingle(context.Background(), "again", "nomic-embed-text")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.pulled.Load())
}

func TestListModels(t *testing.T) {
	f := &fakeOllama{models: []string{"a", "b"}}
	p := newTestProvider(t, f)

	models, err := p.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, models)
}

func TestGenerate(t *testing.T) {
	f := &fakeOllama{}
	p := newTestProvider(t, f)

	answer, err := p.Generate(context.Background(), "what is up?", "")
	require.NoError(t, err)
	assert.Equal(t, "answer to: what is up?", answer)
}

func TestPingUnreachableServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "http://127.0.0.1:1"
	cfg.EmbedTimeout = time.Second
	cfg.GenerateTimeout = time.Second
	p := NewProviderWithConfig(cfg)

	assert.Error(t, p.Ping(context.Background()))
}
