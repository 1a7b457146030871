package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"github.com/redis/go-redis/v9"
)

// CachedEmbeddingProvider wraps an EmbeddingProvider with a Redis cache.
// Cache failures are logged and degrade to the underlying provider; they
// never fail an embedding call.
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	client   redis.UniversalClient
	ttl      time.Duration
}

// NewCachedEmbeddingProvider wraps provider. A nil client disables caching.
func NewCachedEmbeddingProvider(provider EmbeddingProvider, client redis.UniversalClient, ttl time.Duration) *CachedEmbeddingProvider {
	return &CachedEmbeddingProvider{
		provider: provider,
		client:   client,
		ttl:      ttl,
	}
}

// EmbedSingle returns a cached embedding when available, otherwise delegates
// to the wrapped provider and stores the result.
func (c *CachedEmbeddingProvider) EmbedSingle(ctx context.Context, text, model string) ([]float32, error) {
	if c.client == nil {
		return c.provider.EmbedSingle(ctx, text, model)
	}

	key := embeddingCacheKey(c.provider.Name(), model, text)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var embedding []float32
		if err := json.Unmarshal([]byte(cached), &embedding); err == nil {
			return embedding, nil
		}
		logger.Warnw("Failed to decode cached embedding, refetching", "key", key)
	} else if err != redis.Nil {
		logger.Warnw("Embedding cache read failed", "error", err.Error())
	}

	embedding, err := c.provider.EmbedSingle(ctx, text, model)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(embedding); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			logger.Warnw("Embedding cache write failed", "error", err.Error())
		}
	}
	return embedding, nil
}

// ListModels delegates to the wrapped provider.
func (c *CachedEmbeddingProvider) ListModels(ctx context.Context) ([]string, error) {
	return c.provider.ListModels(ctx)
}

// PullModel delegates to the wrapped provider.
func (c *CachedEmbeddingProvider) PullModel(ctx context.Context, model string) error {
	return c.provider.PullModel(ctx, model)
}

// Name returns the wrapped provider name.
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name()
}

func embeddingCacheKey(provider, model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("ragd:emb:%s:%s:%s", provider, model, hex.EncodeToString(sum[:]))
}
