package ragd

import (
	"fmt"
	"time"

	logopt "github.com/kart-io/logger/option"
	"github.com/spf13/pflag"

	"github.com/vektor-io/ragd/pkg/component/milvus"
)

// Options contains all retrieval service options.
type Options struct {
	// Server contains HTTP server configuration.
	Server *ServerOptions `json:"server" mapstructure:"server"`

	// Log contains logger configuration.
	Log *logopt.LogOption `json:"log" mapstructure:"log"`

	// Milvus contains vector store configuration.
	Milvus *milvus.Options `json:"milvus" mapstructure:"milvus"`

	// Embedding contains embedding provider configuration.
	Embedding *LLMProviderOptions `json:"embedding" mapstructure:"embedding"`

	// Chat contains chat provider configuration.
	Chat *LLMProviderOptions `json:"chat" mapstructure:"chat"`

	// Retrieval contains pipeline tuning.
	Retrieval *RetrievalOptions `json:"retrieval" mapstructure:"retrieval"`

	// Cache contains the embedding cache configuration.
	Cache *CacheOptions `json:"cache" mapstructure:"cache"`
}

// ServerOptions contains HTTP server configuration.
type ServerOptions struct {
	// Addr is the listen address.
	Addr string `json:"addr" mapstructure:"addr"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// LLMProviderOptions configures one model provider.
type LLMProviderOptions struct {
	// Provider is the provider name (ollama).
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL is the provider API base address.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// Model is the default model name.
	Model string `json:"model" mapstructure:"model"`

	// Timeout bounds a single provider call.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// ToConfigMap converts the options for the provider factory.
func (o *LLMProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":         o.BaseURL,
		"chat_model":       o.Model,
		"embed_timeout":    o.Timeout,
		"generate_timeout": o.Timeout,
	}
}

// RetrievalOptions contains pipeline tuning.
type RetrievalOptions struct {
	// ChunkSize is the token budget per chunk.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the token overlap between windowed chunks.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// MinChunkSize merges smaller adjacent chunks when positive.
	MinChunkSize int `json:"min-chunk-size" mapstructure:"min-chunk-size"`

	// TopK is the default number of passages returned.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// VectorWeight and KeywordWeight weight hybrid score fusion.
	VectorWeight  float32 `json:"vector-weight" mapstructure:"vector-weight"`
	KeywordWeight float32 `json:"keyword-weight" mapstructure:"keyword-weight"`

	// EmbedBatchSize caps concurrent embedding calls per batch.
	EmbedBatchSize int `json:"embed-batch-size" mapstructure:"embed-batch-size"`

	// ApprovedModels whitelists embedding models. Empty allows any.
	ApprovedModels []string `json:"approved-models" mapstructure:"approved-models"`

	// KeywordIndexPath is the directory for on-disk keyword indexes.
	// Empty keeps them in memory.
	KeywordIndexPath string `json:"keyword-index-path" mapstructure:"keyword-index-path"`

	// KeywordEnabled toggles keyword search entirely.
	KeywordEnabled bool `json:"keyword-enabled" mapstructure:"keyword-enabled"`

	// SystemPrompt steers answer generation.
	SystemPrompt string `json:"system-prompt" mapstructure:"system-prompt"`
}

// CacheOptions configures the Redis embedding cache.
type CacheOptions struct {
	// Enabled toggles the cache.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Addr is the Redis address.
	Addr string `json:"addr" mapstructure:"addr"`

	// Password is the Redis password.
	Password string `json:"password" mapstructure:"password"`

	// DB is the Redis database number.
	DB int `json:"db" mapstructure:"db"`

	// TTL is the cache entry lifetime.
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`
}

// NewOptions returns default options.
func NewOptions() *Options {
	return &Options{
		Server: &ServerOptions{
			Addr:            ":8082",
			ShutdownTimeout: 10 * time.Second,
		},
		Log:    logopt.DefaultLogOption(),
		Milvus: milvus.NewOptions(),
		Embedding: &LLMProviderOptions{
			Provider: "ollama",
			BaseURL:  "http://localhost:11434",
			Model:    "nomic-embed-text",
			Timeout:  60 * time.Second,
		},
		Chat: &LLMProviderOptions{
			Provider: "ollama",
			BaseURL:  "http://localhost:11434",
			Model:    "llama3.1:8b",
			Timeout:  2 * time.Minute,
		},
		Retrieval: &RetrievalOptions{
			ChunkSize:      512,
			ChunkOverlap:   50,
			TopK:           5,
			VectorWeight:   0.7,
			KeywordWeight:  0.3,
			EmbedBatchSize: 10,
			KeywordEnabled: true,
		},
		Cache: &CacheOptions{
			Addr: "localhost:6379",
			TTL:  24 * time.Hour,
		},
	}
}

// AddFlags binds all options to the flag set.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Server.Addr, "server.addr", o.Server.Addr, "HTTP listen address.")
	fs.DurationVar(&o.Server.ShutdownTimeout, "server.shutdown-timeout", o.Server.ShutdownTimeout, "Graceful shutdown timeout.")

	o.Log.AddFlags(fs)
	o.Milvus.AddFlags(fs)

	fs.StringVar(&o.Embedding.Provider, "embedding.provider", o.Embedding.Provider, "Embedding provider name.")
	fs.StringVar(&o.Embedding.BaseURL, "embedding.base-url", o.Embedding.BaseURL, "Embedding provider base URL.")
	fs.StringVar(&o.Embedding.Model, "embedding.model", o.Embedding.Model, "Default embedding model.")
	fs.DurationVar(&o.Embedding.Timeout, "embedding.timeout", o.Embedding.Timeout, "Embedding call timeout.")

	fs.StringVar(&o.Chat.Provider, "chat.provider", o.Chat.Provider, "Chat provider name.")
	fs.StringVar(&o.Chat.BaseURL, "chat.base-url", o.Chat.BaseURL, "Chat provider base URL.")
	fs.StringVar(&o.Chat.Model, "chat.model", o.Chat.Model, "Chat model.")
	fs.DurationVar(&o.Chat.Timeout, "chat.timeout", o.Chat.Timeout, "Chat call timeout.")

	fs.IntVar(&o.Retrieval.ChunkSize, "retrieval.chunk-size", o.Retrieval.ChunkSize, "Token budget per chunk.")
	fs.IntVar(&o.Retrieval.ChunkOverlap, "retrieval.chunk-overlap", o.Retrieval.ChunkOverlap, "Token overlap between windowed chunks.")
	fs.IntVar(&o.Retrieval.MinChunkSize, "retrieval.min-chunk-size", o.Retrieval.MinChunkSize, "Merge chunks below this token count (0 disables).")
	fs.IntVar(&o.Retrieval.TopK, "retrieval.top-k", o.Retrieval.TopK, "Default number of passages returned.")
	fs.Float32Var(&o.Retrieval.VectorWeight, "retrieval.vector-weight", o.Retrieval.VectorWeight, "Vector channel weight in fusion.")
	fs.Float32Var(&o.Retrieval.KeywordWeight, "retrieval.keyword-weight", o.Retrieval.KeywordWeight, "Keyword channel weight in fusion.")
	fs.IntVar(&o.Retrieval.EmbedBatchSize, "retrieval.embed-batch-size", o.Retrieval.EmbedBatchSize, "Concurrent embedding calls per batch.")
	fs.StringSliceVar(&o.Retrieval.ApprovedModels, "retrieval.approved-models", o.Retrieval.ApprovedModels, "Approved embedding models (empty allows any).")
	fs.StringVar(&o.Retrieval.KeywordIndexPath, "retrieval.keyword-index-path", o.Retrieval.KeywordIndexPath, "Directory for keyword indexes (empty keeps them in memory).")
	fs.BoolVar(&o.Retrieval.KeywordEnabled, "retrieval.keyword-enabled", o.Retrieval.KeywordEnabled, "Enable keyword search.")
	fs.StringVar(&o.Retrieval.SystemPrompt, "retrieval.system-prompt", o.Retrieval.SystemPrompt, "System prompt for answer generation.")

	fs.BoolVar(&o.Cache.Enabled, "cache.enabled", o.Cache.Enabled, "Enable the Redis embedding cache.")
	fs.StringVar(&o.Cache.Addr, "cache.addr", o.Cache.Addr, "Redis address.")
	fs.StringVar(&o.Cache.Password, "cache.password", o.Cache.Password, "Redis password.")
	fs.IntVar(&o.Cache.DB, "cache.db", o.Cache.DB, "Redis database number.")
	fs.DurationVar(&o.Cache.TTL, "cache.ttl", o.Cache.TTL, "Embedding cache TTL.")
}

// Validate checks all options.
func (o *Options) Validate() error {
	var errs []error

	if o.Server.Addr == "" {
		errs = append(errs, fmt.Errorf("server addr must not be empty"))
	}
	if err := o.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.Milvus.Validate()...)

	if o.Retrieval.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive"))
	}
	if o.Retrieval.ChunkOverlap < 0 || o.Retrieval.ChunkOverlap >= o.Retrieval.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk overlap must be in [0, chunk size)"))
	}
	if o.Retrieval.VectorWeight < 0 || o.Retrieval.KeywordWeight < 0 {
		errs = append(errs, fmt.Errorf("fusion weights must not be negative"))
	}
	if o.Retrieval.EmbedBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("embed batch size must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid options: %v", errs)
	}
	return nil
}
